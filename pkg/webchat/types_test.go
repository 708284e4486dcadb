package webchat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedRunToChatStringText(t *testing.T) {
	var run LocalizedRun
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hello world"}`), &run))
	assert.Equal(t, "hello world", run.ToChatString())
}

func TestLocalizedRunToChatStringCustomEmoji(t *testing.T) {
	raw := `{
		"emoji": {
			"emojiId": "abc:custom_emoji",
			"isCustomEmoji": true,
			"image": {"thumbnails": [], "accessibility": {"accessibilityData": {"label": "myemote"}}}
		}
	}`
	var run LocalizedRun
	require.NoError(t, json.Unmarshal([]byte(raw), &run))
	assert.Equal(t, ":myemote:", run.ToChatString())
}

func TestLocalizedRunToChatStringStandardEmoji(t *testing.T) {
	raw := `{
		"emoji": {
			"emojiId": "1f600",
			"isCustomEmoji": false,
			"image": {"thumbnails": [], "accessibility": {"accessibilityData": {"label": "grinning face"}}}
		}
	}`
	var run LocalizedRun
	require.NoError(t, json.Unmarshal([]byte(raw), &run))
	assert.Equal(t, "grinning face", run.ToChatString())
}

func TestLocalizedTextFlattensRunsInOrder(t *testing.T) {
	raw := `{"runs":[{"text":"hi "},{"emoji":{"emojiId":"x","isCustomEmoji":true,"image":{"thumbnails":[],"accessibility":{"accessibilityData":{"label":"wave"}}}}},{"text":"!"}]}`
	var text LocalizedText
	require.NoError(t, json.Unmarshal([]byte(raw), &text))
	assert.Equal(t, "hi :wave:!", text.ToChatString())
}

func TestMicroTimestampSplitsSecondsAndMicros(t *testing.T) {
	var ts MicroTimestamp
	require.NoError(t, json.Unmarshal([]byte(`"1700000000123456"`), &ts))
	assert.Equal(t, int64(1700000000), ts.Time.Unix())
	assert.Equal(t, 123456000, ts.Time.Nanosecond())
	assert.True(t, ts.Time.Equal(time.Unix(1700000000, 123456000).UTC()))
}

func TestChatItemUnmarshalsTextMessage(t *testing.T) {
	raw := `{"liveChatTextMessageRenderer":{"id":"msg1","timestampUsec":"1700000000000000","authorExternalChannelId":"UC1","authorPhoto":{"thumbnails":[]},"contextMenuEndpoint":{"commandMetadata":{"webCommandMetadata":{}},"liveChatItemContextMenuEndpoint":{"params":"p"}},"contextMenuAccessibility":{"accessibilityData":{"label":"menu"}},"message":{"runs":[{"text":"hello"}]}}}`
	var item ChatItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))
	assert.Equal(t, ChatItemTextMessage, item.Kind)
	require.NotNil(t, item.TextMessage)
	assert.Equal(t, "msg1", item.ID())
	assert.Equal(t, "hello", item.TextMessage.Message.ToChatString())
}

func TestChatItemUnrecognizedRendererErrors(t *testing.T) {
	var item ChatItem
	err := json.Unmarshal([]byte(`{"someFutureRenderer":{}}`), &item)
	assert.Error(t, err)
}

func TestActionUnknownVariantBecomesOpaque(t *testing.T) {
	raw := `{"someFutureAction":{"foo":"bar"}}`
	var action Action
	require.NoError(t, json.Unmarshal([]byte(raw), &action))
	assert.Equal(t, ActionOpaque, action.Kind)
	assert.NotEmpty(t, action.Opaque)
}

func TestActionAddChatItemRoundTrips(t *testing.T) {
	raw := `{"clickTrackingParams":"ctp","addChatItemAction":{"item":{"liveChatViewerEngagementMessageRenderer":{"id":"eng1"}}}}`
	var action Action
	require.NoError(t, json.Unmarshal([]byte(raw), &action))
	assert.Equal(t, ActionAddChatItem, action.Kind)
	assert.Equal(t, "ctp", action.ClickTrackingParams)
	require.NotNil(t, action.AddChatItem)
	assert.Equal(t, "eng1", action.AddChatItem.Item.ID())
}

func TestContinuationVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind ContinuationKind
		tok  string
	}{
		{"invalidation", `{"invalidationContinuationData":{"invalidationId":{"objectSource":1,"objectId":"o","topic":"t","subscribeToGcmTopics":true,"protoCreationTimestampMs":"1"},"timeoutMs":5000,"continuation":"cont-inv"}}`, ContinuationInvalidation, "cont-inv"},
		{"timed", `{"timedContinuationData":{"timeoutMs":1000,"continuation":"cont-timed"}}`, ContinuationTimed, "cont-timed"},
		{"replay", `{"liveChatReplayContinuationData":{"timeUntilLastMessageMsec":2000,"continuation":"cont-replay"}}`, ContinuationReplay, "cont-replay"},
		{"player-seek", `{"playerSeekContinuationData":{"continuation":"cont-seek"}}`, ContinuationPlayerSeek, "cont-seek"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Continuation
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &c))
			assert.Equal(t, tc.kind, c.Kind)
			assert.Equal(t, tc.tok, c.Token())
		})
	}
}
