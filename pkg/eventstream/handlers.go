package eventstream

import "sync"

// ChannelHandler forwards every event onto a buffered channel. It is the
// bridge between the callback-style Handler interface and the
// channel-of-events style the orchestrator, IRC adapter, and multicast
// fan-in all expose to their own callers.
type ChannelHandler struct {
	sourceID string
	events   chan<- SourceEvent
	mu       sync.Mutex
	closed   bool
}

// SourceEvent tags a payload with the source that produced it, so a
// fan-in consumer reading from a single channel can still tell platforms
// apart.
type SourceEvent struct {
	Source string
	Event  any
	Err    error
}

// NewChannelHandler creates a handler that forwards events, tagged with
// sourceID, onto events. The caller owns the channel and is responsible
// for closing it after OnComplete/OnError has been observed.
func NewChannelHandler(sourceID string, events chan<- SourceEvent) *ChannelHandler {
	return &ChannelHandler{sourceID: sourceID, events: events}
}

func (h *ChannelHandler) OnEvent(event any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.events <- SourceEvent{Source: h.sourceID, Event: event}
	return nil
}

func (h *ChannelHandler) OnComplete() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *ChannelHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.events <- SourceEvent{Source: h.sourceID, Err: err}
	h.closed = true
}
