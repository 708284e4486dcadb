package eventstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelHandlerTagsEventsWithSource(t *testing.T) {
	ch := make(chan SourceEvent, 4)
	h := NewChannelHandler("yt", ch)

	assert.NoError(t, h.OnEvent("a"))
	assert.NoError(t, h.OnComplete())
	close(ch)

	var got []SourceEvent
	for ev := range ch {
		got = append(got, ev)
	}
	assert.Equal(t, []SourceEvent{{Source: "yt", Event: "a"}}, got)
}

func TestChannelHandlerDropsEventsAfterError(t *testing.T) {
	ch := make(chan SourceEvent, 4)
	h := NewChannelHandler("yt", ch)

	h.OnError(assertionError{"boom"})
	assert.NoError(t, h.OnEvent("late"))
	close(ch)

	var got []SourceEvent
	for ev := range ch {
		got = append(got, ev)
	}
	assert.Len(t, got, 1)
	assert.Error(t, got[0].Err)
}

func TestHandlerFuncNilFieldsAreNoops(t *testing.T) {
	var h HandlerFunc
	assert.NoError(t, h.OnEvent("x"))
	assert.NoError(t, h.OnComplete())
	h.OnError(assertionError{"ignored"})
}
