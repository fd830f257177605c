// Package history keeps chat sessions and the current-session pointer,
// persisting the whole list after every change.
// Reads are best-effort: missing or corrupt data loads as an empty history.
// Writes are best-effort too: a failed write is logged and the in-memory state stays authoritative.
package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/comigor/unichat/internal/logger"
	"github.com/comigor/unichat/internal/storage"
)

// Storage entry names.
const (
	SessionsKey       = "chat_sessions_v1"
	CurrentSessionKey = "current_session_id_v1"
)

// DefaultTitle names a session until its first message arrives.
const DefaultTitle = "New Conversation"

const (
	titleLimit    = 50
	titleEllipsis = "..."
)

// Store owns the sessions. Everything it hands out is a copy.
type Store struct {
	backend storage.Backend
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	sessions []Session // most recent first
	current  string    // "" when there is no current session
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces NewID for session identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New returns an empty store over backend without reading it.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store populated from backend.
func Open(ctx context.Context, backend storage.Backend, opts ...Option) *Store {
	s := New(backend, opts...)
	s.LoadAll(ctx)
	return s
}

// LoadAll replaces the in-memory state with what the backend holds and returns
// the sessions. It never fails: unreadable data yields no sessions. The
// current session is the stored one if it still exists, else the first session.
func (s *Store) LoadAll(ctx context.Context) []Session {
	sessions := s.readSessions(ctx)
	current := s.readCurrent(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
	s.current = resolveCurrent(sessions, current)
	logger.L.Debug("history loaded", "sessions", len(sessions), "current", s.current)
	return cloneAll(s.sessions)
}

func (s *Store) readSessions(ctx context.Context) []Session {
	raw, err := s.backend.Get(ctx, SessionsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []Session{}
	}
	if err != nil {
		logger.L.Warn("failed to read chat history; starting empty", "error", err)
		return []Session{}
	}
	sessions, err := decodeSessions(raw)
	if err != nil {
		logger.L.Warn("ignoring corrupt chat history", "error", err)
		return []Session{}
	}
	return sessions
}

func (s *Store) readCurrent(ctx context.Context) string {
	id, err := s.backend.Get(ctx, CurrentSessionKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.L.Warn("failed to read current session id", "error", err)
		}
		return ""
	}
	return id
}

func resolveCurrent(sessions []Session, want string) string {
	if want != "" && slices.ContainsFunc(sessions, func(s Session) bool { return s.ID == want }) {
		return want
	}
	if len(sessions) > 0 {
		return sessions[0].ID
	}
	return ""
}

// SaveAll replaces the sessions with a copy of sessions and persists them.
// Message counts are resynced and the current pointer is kept only if its
// session is still present.
func (s *Store) SaveAll(ctx context.Context, sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = cloneAll(sessions)
	for i := range s.sessions {
		if s.sessions[i].Messages == nil {
			s.sessions[i].Messages = []Message{}
		}
		s.sessions[i].MessageCount = len(s.sessions[i].Messages)
	}
	s.current = resolveCurrent(s.sessions, s.current)
	s.persistLocked(ctx)
}

// CreateSession starts an empty conversation at the front of the list and
// makes it current.
func (s *Store) CreateSession(ctx context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(ctx).clone()
}

func (s *Store) createLocked(ctx context.Context) *Session {
	sess := Session{
		ID:        s.newID(),
		Title:     DefaultTitle,
		Timestamp: s.now(),
		Messages:  []Message{},
	}
	s.sessions = append([]Session{sess}, s.sessions...)
	s.current = sess.ID
	s.persistLocked(ctx)
	logger.L.Debug("session created", "session", sess.ID)
	return &s.sessions[0]
}

// EnsureCurrent returns the current session, creating one when there is none.
func (s *Store) EnsureCurrent(ctx context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(s.current); i >= 0 {
		return s.sessions[i].clone()
	}
	return s.createLocked(ctx).clone()
}

// AppendMessage adds msg to the session and updates its preview, timestamp
// and count. A session still carrying DefaultTitle is renamed after the
// message text. It reports false, changing nothing, if the session is unknown.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(sessionID)
	if i < 0 {
		logger.L.Debug("append to unknown session ignored", "session", sessionID)
		return false
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	sess := &s.sessions[i]
	sess.Messages = append(sess.Messages, msg.clone())
	sess.MessageCount = len(sess.Messages)
	sess.LastMessage = msg.Text
	sess.Timestamp = msg.Timestamp
	if sess.Title == DefaultTitle {
		sess.Title = titleFrom(msg.Text)
	}
	s.persistLocked(ctx)
	return true
}

func titleFrom(text string) string {
	r := []rune(text)
	if len(r) > titleLimit {
		r = r[:titleLimit]
	}
	return string(r) + titleEllipsis
}

// DeleteSession removes a session. Deleting the current session promotes the
// first remaining one, or clears the pointer when none remain.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(sessionID)
	if i < 0 {
		return false
	}
	s.sessions = slices.Delete(s.sessions, i, i+1)
	if s.current == sessionID {
		s.current = resolveCurrent(s.sessions, "")
	}
	s.persistLocked(ctx)
	return true
}

// SetCurrent points the store at an existing session.
func (s *Store) SetCurrent(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(sessionID) < 0 {
		return false
	}
	s.current = sessionID
	s.persistLocked(ctx)
	return true
}

// CurrentID returns the current session id, or "" if there is none.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns a copy of the current session.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(s.current); i >= 0 {
		return s.sessions[i].clone(), true
	}
	return Session{}, false
}

// Get returns a copy of the named session.
func (s *Store) Get(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(sessionID); i >= 0 {
		return s.sessions[i].clone(), true
	}
	return Session{}, false
}

// Sessions returns a copy of every session, most recent first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.sessions)
}

func (s *Store) indexLocked(sessionID string) int {
	if sessionID == "" {
		return -1
	}
	return slices.IndexFunc(s.sessions, func(sess Session) bool { return sess.ID == sessionID })
}

// persistLocked writes both entries. Cancelling the caller's request must not
// lose a write, so the context's cancellation is dropped.
func (s *Store) persistLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	raw, err := encodeSessions(s.sessions)
	if err != nil {
		logger.L.Error("failed to encode chat history", "error", err)
		return
	}
	if err := s.backend.Set(ctx, SessionsKey, raw); err != nil {
		logger.L.Warn("failed to persist chat history", "error", err)
	}

	if s.current != "" {
		err = s.backend.Set(ctx, CurrentSessionKey, s.current)
	} else {
		err = s.backend.Delete(ctx, CurrentSessionKey)
	}
	if err != nil {
		logger.L.Warn("failed to persist current session id", "error", err)
	}
}

func cloneAll(sessions []Session) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.clone()
	}
	return out
}
