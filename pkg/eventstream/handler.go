// Package eventstream provides the callback and channel-forwarding
// primitives shared by the web-platform and IRC adapters for delivering
// typed chat events to a consumer.
package eventstream

// Handler receives events emitted by a chat stream. Implementations must
// be safe to call from a single goroutine at a time; the producers in
// this repository never call a Handler concurrently from two goroutines.
type Handler interface {
	// OnEvent is called once per emitted event, in emission order.
	OnEvent(event any) error
	// OnComplete is called exactly once when the stream ends normally.
	OnComplete() error
	// OnError is called at most once, in place of OnComplete, when the
	// stream ends because of an error.
	OnError(err error)
}

// HandlerFunc adapts plain functions to Handler. Any field left nil is a
// no-op for that callback.
type HandlerFunc struct {
	EventFunc    func(event any) error
	CompleteFunc func() error
	ErrorFunc    func(err error)
}

var _ Handler = HandlerFunc{}

func (f HandlerFunc) OnEvent(event any) error {
	if f.EventFunc != nil {
		return f.EventFunc(event)
	}
	return nil
}

func (f HandlerFunc) OnComplete() error {
	if f.CompleteFunc != nil {
		return f.CompleteFunc()
	}
	return nil
}

func (f HandlerFunc) OnError(err error) {
	if f.ErrorFunc != nil {
		f.ErrorFunc(err)
	}
}
