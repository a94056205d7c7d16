package session

import (
	"sync"
)

// State is the shared session-state handle threaded through every component
// of a chat session. Components mutate it only through its methods; in-flight
// async resolutions may touch it from their own goroutines, so access is
// mutex-guarded in the localSession style.
type State struct {
	appName   string
	userID    string
	sessionID string

	mu                  sync.RWMutex
	stateDelta          map[string]any
	functionCallEventID string
	bidiUsed            bool
}

// NewState creates the state handle for one logical session.
func NewState(appName, userID, sessionID string) *State {
	return &State{
		appName:   appName,
		userID:    userID,
		sessionID: sessionID,
	}
}

func (s *State) AppName() string   { return s.appName }
func (s *State) UserID() string    { return s.userID }
func (s *State) SessionID() string { return s.sessionID }

// SetStateDelta stages a state delta to be attached to the next run request.
func (s *State) SetStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateDelta = delta
}

// TakeStateDelta returns the staged delta and clears it. The delta rides on
// exactly one run request.
func (s *State) TakeStateDelta() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := s.stateDelta
	s.stateDelta = nil
	return delta
}

// SetFunctionCallEventID remembers the event whose long-running function call
// is awaiting resolution.
func (s *State) SetFunctionCallEventID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functionCallEventID = id
}

// FunctionCallEventID returns the pending function-call event id, if any.
func (s *State) FunctionCallEventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.functionCallEventID
}

// MarkBidiUsed records that this session has opened its bidirectional
// sub-session. Returns false when it had already been used: the backend does
// not support restarting bidirectional streaming within a session, so the
// caller must reject the attempt instead of silently reconnecting.
func (s *State) MarkBidiUsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bidiUsed {
		return false
	}
	s.bidiUsed = true
	return true
}

// BidiUsed reports whether the bidirectional sub-session has been opened.
func (s *State) BidiUsed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bidiUsed
}
