package conversation

import "sync"

// Step is the position of a user in the conversation.
type Step string

// Conversation steps.
const (
	StepIdle            Step = "idle"
	StepProjectSelected Step = "project_selected"
	StepAwaitingSet     Step = "awaiting_set"
	StepAwaitingAdd     Step = "awaiting_add"
)

// Awaiting reports whether the step expects a numeric value.
func (s Step) Awaiting() bool {
	return s == StepAwaitingSet || s == StepAwaitingAdd
}

// Session is the conversation state of one user.
type Session struct {
	Step      Step
	ProjectID string
}

// HasProject reports whether a project is active.
func (s Session) HasProject() bool { return s.ProjectID != "" }

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// Sessions keeps per-user sessions in memory.
// Sessions are lost on restart; users start over with /start.
type Sessions struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{entries: make(map[int64]*sessionEntry)}
}

func (s *Sessions) entry(userID int64) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &sessionEntry{session: Session{Step: StepIdle}}
		s.entries[userID] = e
	}
	return e
}

// Lock serializes event handling for one user and returns a handle to the session.
// Different users never block each other.
func (s *Sessions) Lock(userID int64) *Handle {
	e := s.entry(userID)
	e.mu.Lock()
	return &Handle{entry: e}
}

// Get returns a snapshot of the user's session. Unknown users read as idle.
func (s *Sessions) Get(userID int64) Session {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Session{Step: StepIdle}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Len returns the number of users with a session.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Handle is exclusive access to a session until Unlock.
type Handle struct {
	entry *sessionEntry
}

// Session returns the current session.
func (h *Handle) Session() Session { return h.entry.session }

// Set replaces the session.
func (h *Handle) Set(s Session) { h.entry.session = s }

// Reset returns the session to idle without a project.
func (h *Handle) Reset() { h.entry.session = Session{Step: StepIdle} }

// Unlock releases the session.
func (h *Handle) Unlock() { h.entry.mu.Unlock() }
