// Package session holds per-session conversation state across template
// switches. Entries live for the session only and are never persisted.
package session

import (
	"sync"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// Flow is the handle a session keeps on its long-running profile-creation
// task so teardown can cancel outstanding timers.
type Flow interface {
	Cancel()
	Active() bool
}

// Session is one user's conversation cache: a lazily populated map from
// template to ConversationState plus the currently active template. All
// access is serialized through the session mutex.
type Session struct {
	ID     string
	UserID string
	Locale string

	mu     sync.Mutex
	states map[domain.Template]*domain.ConversationState
	active domain.Template
	flow   Flow
}

func newSession(userID, locale string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Locale: locale,
		states: make(map[domain.Template]*domain.ConversationState),
	}
}

// Active returns the currently selected template (zero before the first
// switch).
func (s *Session) Active() domain.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsActive reports whether t is still the selected template. Pollers and
// streams started under one template call this before applying a mutation so
// a stale resolution cannot write into another template's state.
func (s *Session) IsActive(t domain.Template) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == t
}

// SnapshotAndSwitch makes t the active template. The outgoing state stays in
// the map untouched; the incoming one is restored verbatim or freshly
// initialized on first visit. Returns a snapshot of the incoming state.
func (s *Session) SnapshotAndSwitch(t domain.Template) *domain.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = t
	return s.stateLocked(t).Clone()
}

// Mutate applies fn to the stored state for t under the session lock,
// regardless of which template is active. The poller uses this to write into
// the correct Session Store entry directly instead of through a captured
// reference.
func (s *Session) Mutate(t domain.Template, fn func(*domain.ConversationState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.stateLocked(t))
}

// Snapshot returns a deep copy of the state for t.
func (s *Session) Snapshot(t domain.Template) *domain.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(t).Clone()
}

func (s *Session) stateLocked(t domain.Template) *domain.ConversationState {
	st, ok := s.states[t]
	if !ok {
		st = domain.NewConversationState(t)
		s.states[t] = st
	}
	return st
}

// SetFlow registers the session's profile-creation flow. Only one may run
// per session; a second concurrent start is rejected.
func (s *Session) SetFlow(f Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow != nil && s.flow.Active() {
		return domain.ErrProfileActive
	}
	s.flow = f
	return nil
}

// CurrentFlow returns the registered profile flow, if any.
func (s *Session) CurrentFlow() Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow
}

func (s *Session) cancelFlow() {
	s.mu.Lock()
	f := s.flow
	s.flow = nil
	s.mu.Unlock()
	if f != nil {
		f.Cancel()
	}
}

// Registry tracks live sessions by id. Created at app start; entries are
// removed on sign-out, cancelling any outstanding poll.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create opens a new session.
func (r *Registry) Create(userID, locale string) *Session {
	s := newSession(userID, locale)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get looks a session up by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete tears a session down, cancelling its profile flow so stale timer
// resolutions cannot mutate state that no longer has a listener.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.cancelFlow()
	}
}
