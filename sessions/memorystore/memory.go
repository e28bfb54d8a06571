package memorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/stevelorddremio/arrow/ids"
	"github.com/stevelorddremio/arrow/metrics"
	"github.com/stevelorddremio/arrow/sessions"
)

var _ sessions.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the identifier strategy. Tests use this to get
// deterministic, collision-free sequences.
func WithIDGenerator(gen sessions.IDGenerator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMetrics instruments session creation and removal.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is an in-memory session registry. The zero value is not usable;
// construct with New.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	newID   sessions.IDGenerator
	metrics *metrics.Metrics
}

// New builds an empty Store. Identifiers come from ids.UUID unless
// overridden.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*session),
		newID:    ids.UUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession registers a new empty session under a fresh identifier.
func (s *Store) CreateSession(ctx context.Context) (string, sessions.Session, error) {
	id := s.newID()
	sess := &session{options: make(map[string]sessions.OptionValue)}

	s.mu.Lock()
	if _, exists := s.sessions[id]; exists {
		s.mu.Unlock()
		return "", nil, fmt.Errorf("%w: generator returned a live identifier", sessions.ErrIDCollision)
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.ActiveSessions.Inc()
	}
	return id, sess, nil
}

// Lookup returns the session registered under id.
func (s *Store) Lookup(ctx context.Context, id string) (sessions.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	return sess, nil
}

// CloseSession removes the session registered under id. Calls already
// holding the session keep their reference; only future lookups miss.
func (s *Store) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return sessions.ErrSessionNotFound
	}
	if s.metrics != nil {
		s.metrics.SessionsClosed.Inc()
		s.metrics.ActiveSessions.Dec()
	}
	return nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// session is one client's option map. Its lock is independent of the
// registry lock and of every other session's lock.
type session struct {
	mu      sync.RWMutex
	options map[string]sessions.OptionValue
}

var _ sessions.Session = (*session)(nil)

func (c *session) GetOption(name string) (sessions.OptionValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.options[name]
	return v, ok
}

func (c *session) SetOption(name string, value sessions.OptionValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options[name] = value
}

func (c *session) EraseOption(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.options, name)
}

func (c *session) Options() map[string]sessions.OptionValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]sessions.OptionValue, len(c.options))
	for k, v := range c.options {
		out[k] = v
	}
	return out
}
