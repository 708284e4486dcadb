package webchat

import (
	"context"
	"time"

	"github.com/killallgit/chatcast/pkg/chaterrors"
	"github.com/killallgit/chatcast/pkg/config"
	"github.com/killallgit/chatcast/pkg/eventstream"
	"github.com/killallgit/chatcast/pkg/logger"
)

// Orchestrator drives the fetch/signal loop for one video: it issues
// chat-fetch RPCs, deduplicates additive chat items across overlapping
// fetches, and paces successive fetches either by waiting on a
// signaling push (when the continuation carries an invalidation topic)
// or by sleeping the continuation's own timeout.
type Orchestrator struct {
	cfg      *config.Config
	fetch    *FetchClient
	log      *logger.ComponentLogger
	signaler *SignalerChannel
	sessions *eventstream.Tracker
}

func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		fetch:    NewFetchClient(&cfg.HTTP),
		log:      logger.WithComponent("webchat.orchestrator"),
		sessions: eventstream.NewTracker(),
	}
}

// Sessions reports the lifecycle state of every video this orchestrator
// has streamed, keyed by video id.
func (o *Orchestrator) Sessions() *eventstream.Tracker {
	return o.sessions
}

// Stream runs the fetch loop until the continuation chain ends
// (EndOfContinuation), ctx is cancelled, or a fatal error occurs. It
// always calls exactly one of handler.OnComplete or handler.OnError
// before returning, matching the eventstream.Handler contract.
func (o *Orchestrator) Stream(ctx context.Context, cc *ChatContext, handler eventstream.Handler) error {
	seen := make(map[string]struct{})
	o.sessions.Start(cc.VideoID, seen)

	for {
		select {
		case <-ctx.Done():
			o.sessions.UpdateState(cc.VideoID, eventstream.SessionCancelled)
			_ = handler.OnComplete()
			return nil
		default:
		}

		chunk, err := o.fetchWithRetry(ctx, cc)
		if err != nil {
			if ce, ok := err.(*chaterrors.Error); ok && ce.Kind == chaterrors.KindEndOfContinuation {
				o.log.Info("continuation chain ended", "video_id", cc.VideoID)
				o.sessions.UpdateState(cc.VideoID, eventstream.SessionComplete)
				_ = handler.OnComplete()
				return nil
			}
			o.sessions.SetError(cc.VideoID, err)
			handler.OnError(err)
			return err
		}

		for _, action := range chunk.Actions {
			if action.Kind == ActionAddChatItem {
				id := action.AddChatItem.Item.ID()
				if id != "" {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
				}
			}
			if err := handler.OnEvent(action); err != nil {
				handler.OnError(err)
				return err
			}
		}

		cc.Continuation = chunk.NextContinuation

		if err := o.pace(ctx, cc, chunk); err != nil {
			_ = handler.OnComplete()
			return nil
		}
	}
}

// fetchWithRetry retries a timed-out fetch exactly once, and retries a
// server error (5xx) up to cfg.HTTP.RetryAttempts times with a bounded
// exponential backoff. Any other failure, including a 4xx status, is
// returned immediately since it is not going to resolve by retrying.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, cc *ChatContext) (*ActionChunk, error) {
	var lastErr error
	delay := o.cfg.HTTP.RetryBaseDelay
	for attempt := 0; attempt <= o.cfg.HTTP.RetryAttempts; attempt++ {
		chunk, err := o.fetch.Fetch(ctx, cc)
		if err == nil {
			return chunk, nil
		}
		lastErr = err

		ce, ok := err.(*chaterrors.Error)
		if !ok || !ce.IsFatal() {
			if attempt == 0 {
				continue
			}
			return nil, lastErr
		}
		if ce.Kind != chaterrors.KindBadStatus {
			return nil, lastErr
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, lastErr
}

// pace waits either for a signaling push on the chunk's topic, or for
// the continuation's own timeout, whichever the continuation variant
// calls for. It returns an error only when ctx is cancelled mid-wait.
func (o *Orchestrator) pace(ctx context.Context, cc *ChatContext, chunk *ActionChunk) error {
	if chunk.SignalingTopic != "" {
		if o.signaler == nil || o.signaler.topic != chunk.SignalingTopic {
			signalingCfg := o.cfg.Signaling
			if cc.TangoAPIKey != "" {
				signalingCfg.APIKey = cc.TangoAPIKey
			}
			o.signaler = NewSignalerChannel(&signalingCfg, &o.cfg.HTTP, chunk.SignalingTopic)
			go o.signaler.Run(ctx)
		}
		pushes := o.signaler.Subscribe(ctx)
		timeout := time.Duration(chunk.TimeoutMs) * time.Millisecond
		select {
		case <-pushes:
			return nil
		case <-time.After(timeout):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-time.After(time.Duration(chunk.TimeoutMs) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
