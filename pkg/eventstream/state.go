package eventstream

import (
	"sync"
	"time"
)

// SessionState is the lifecycle state of one ingestion session (one
// ChatContext stream, or one IRC connection).
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionStreaming
	SessionComplete
	SessionError
	SessionCancelled
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionStreaming:
		return "streaming"
	case SessionComplete:
		return "complete"
	case SessionError:
		return "error"
	case SessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SessionInfo holds the bookkeeping the orchestrator and IRC adapter keep
// per running session: lifecycle state, timing, last error, and the
// opaque per-protocol Data field (the orchestrator stores its seen-id set
// and retry counters here; the IRC adapter stores nothing beyond state).
type SessionInfo struct {
	ID        string
	State     SessionState
	StartTime time.Time
	EndTime   time.Time
	Error     error
	Data      any
}

// Tracker tracks the lifecycle of multiple concurrent sessions keyed by
// an opaque session ID (a video id or an IRC channel name).
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*SessionInfo
}

func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*SessionInfo)}
}

func (t *Tracker) Start(id string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = &SessionInfo{
		ID:        id,
		State:     SessionStreaming,
		StartTime: time.Now(),
		Data:      data,
	}
}

func (t *Tracker) UpdateState(id string, state SessionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info, ok := t.sessions[id]; ok {
		info.State = state
		if state == SessionComplete || state == SessionError || state == SessionCancelled {
			info.EndTime = time.Now()
		}
	}
}

func (t *Tracker) SetError(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info, ok := t.sessions[id]; ok {
		info.Error = err
		info.State = SessionError
		info.EndTime = time.Now()
	}
}

func (t *Tracker) Get(id string) (SessionInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return *info, true
}

// Cleanup drops finished sessions whose end time is older than olderThan.
func (t *Tracker) Cleanup(olderThan time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for id, info := range t.sessions {
		if info.State == SessionComplete || info.State == SessionError || info.State == SessionCancelled {
			if now.Sub(info.EndTime) > olderThan {
				delete(t.sessions, id)
			}
		}
	}
}
