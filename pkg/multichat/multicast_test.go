package multichat

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/chatcast/pkg/eventstream"
)

func TestMulticast(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Multicast Suite")
}

func sourceEmitting(name string, events []any) Source {
	return Source{
		Name: name,
		Run: func(ctx context.Context, handler eventstream.Handler) error {
			for _, e := range events {
				if err := handler.OnEvent(e); err != nil {
					return err
				}
			}
			return handler.OnComplete()
		},
	}
}

var _ = Describe("Merge", func() {
	It("tags every event with its source and closes once all sources finish", func() {
		a := sourceEmitting("yt", []any{"a1", "a2"})
		b := sourceEmitting("twitch", []any{"b1"})

		out := Merge(context.Background(), []Source{a, b})

		var got []eventstream.SourceEvent
		for ev := range out {
			got = append(got, ev)
		}

		Expect(got).To(HaveLen(3))
		bySource := map[string]int{}
		for _, ev := range got {
			bySource[ev.Source]++
		}
		Expect(bySource["yt"]).To(Equal(2))
		Expect(bySource["twitch"]).To(Equal(1))
	})

	It("keeps delivering from surviving sources when one source errors", func() {
		failing := Source{
			Name: "broken",
			Run: func(ctx context.Context, handler eventstream.Handler) error {
				handler.OnError(assertionError{"boom"})
				return assertionError{"boom"}
			},
		}
		healthy := sourceEmitting("ok", []any{"fine"})

		out := Merge(context.Background(), []Source{failing, healthy})

		var got []eventstream.SourceEvent
		for ev := range out {
			got = append(got, ev)
		}

		Expect(got).To(HaveLen(2))
	})
})

type assertionError struct{ msg string }

func (e assertionError) Error() string { return e.msg }
