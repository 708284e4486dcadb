// Package multichat fans the web and IRC adapters into a single stream
// of platform-tagged events, the way a caller wanting one merged feed
// across YouTube and Twitch chat would otherwise have to hand-roll.
package multichat

import (
	"context"
	"sync"

	"github.com/killallgit/chatcast/pkg/eventstream"
	"github.com/killallgit/chatcast/pkg/logger"
)

// Source is one named producer of events: Run blocks, delivering events
// to handler, until ctx is cancelled or the source is exhausted.
type Source struct {
	Name string
	Run  func(ctx context.Context, handler eventstream.Handler) error
}

var log = logger.WithComponent("multichat")

// Merge runs every source concurrently and returns a single channel
// carrying every event each source produces, tagged with its source
// name. The channel closes once every source has returned, whether
// normally or with an error. There is no fairness guarantee beyond
// whatever Go's select gives a set of ready channels.
func Merge(ctx context.Context, sources []Source) <-chan eventstream.SourceEvent {
	out := make(chan eventstream.SourceEvent, 128)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			handler := eventstream.NewChannelHandler(src.Name, out)
			if err := src.Run(ctx, handler); err != nil {
				log.Warn("source ended with error", "source", src.Name, "error", err.Error())
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
