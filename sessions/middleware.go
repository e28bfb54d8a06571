package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stevelorddremio/arrow/cookies"
	"github.com/stevelorddremio/arrow/metrics"
)

// bindState tracks how a call came to hold (or not hold) a session. The
// state machine is Unbound -> BoundNew via GetSession; BoundExisting is set
// at construction. Both bound states are terminal for the call: the session
// identity of a call never changes once established, which is what makes
// "announce the cookie only for fresh sessions" structural rather than a
// flag to keep in sync.
type bindState int

const (
	stateUnbound bindState = iota
	stateBoundNew
	stateBoundExisting
)

// CallCompletedFunc observes the end of a call's lifecycle. callErr is the
// handler's final error (nil on success).
type CallCompletedFunc func(ctx context.Context, mw *Middleware, callErr error)

// FactoryOption configures a MiddlewareFactory.
type FactoryOption func(*MiddlewareFactory)

// WithCookieName overrides the session cookie key. Both sides of the wire
// must agree on it; the default is SessionCookieName.
func WithCookieName(name string) FactoryOption {
	return func(f *MiddlewareFactory) { f.cookieName = name }
}

// WithLogger sets the slog logger used by the factory and the middleware it
// produces. If not provided, logs are discarded.
func WithLogger(log *slog.Logger) FactoryOption {
	return func(f *MiddlewareFactory) { f.log = log }
}

// WithCallCompleted installs a hook invoked exactly once when each call
// completes, after the handler has finished, regardless of outcome.
func WithCallCompleted(fn CallCompletedFunc) FactoryOption {
	return func(f *MiddlewareFactory) { f.onCompleted = fn }
}

// WithMetrics instruments the factory's rejection paths.
func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *MiddlewareFactory) { f.metrics = m }
}

// MiddlewareFactory is the per-call entry point of the session layer. It is
// safe for concurrent use by every in-flight call.
type MiddlewareFactory struct {
	store       Store
	cookieName  string
	log         *slog.Logger
	onCompleted CallCompletedFunc
	metrics     *metrics.Metrics
}

// NewMiddlewareFactory builds a factory over the given store.
func NewMiddlewareFactory(store Store, opts ...FactoryOption) *MiddlewareFactory {
	f := &MiddlewareFactory{
		store:      store,
		cookieName: SessionCookieName,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CookieName returns the session cookie key the factory matches against.
func (f *MiddlewareFactory) CookieName() string { return f.cookieName }

// StartCall inspects the inbound headers and either binds an existing
// session or leaves the call unbound for lazy creation. A returned error
// aborts the call before any handler logic runs; no session is created or
// mutated on that path.
//
// Resolution rule: cookie header values are scanned in wire order; within
// one header value the last pair matching the cookie name wins; the first
// header value that yields a candidate ends the scan, so a later header
// value never overrides an earlier one.
func (f *MiddlewareFactory) StartCall(ctx context.Context, headers CallHeaders) (*Middleware, error) {
	var sessionID string
	for _, headerValue := range headers.Values(CookieHeader) {
		for _, ck := range cookies.ParseCookieHeader(headerValue) {
			if ck.Name != f.cookieName {
				continue
			}
			if ck.Value == "" {
				f.reject(ctx, metrics.ReasonEmptyCookie)
				return nil, fmt.Errorf("%w (%s)", ErrEmptyCookie, f.cookieName)
			}
			sessionID = ck.Value
		}
		if sessionID != "" {
			break
		}
	}

	if sessionID == "" {
		return &Middleware{factory: f, headers: headers}, nil
	}

	sess, err := f.store.Lookup(ctx, sessionID)
	if err != nil {
		f.reject(ctx, metrics.ReasonUnknownSession)
		f.log.InfoContext(ctx, "session.lookup.miss", slog.String("session_id", sessionID))
		return nil, fmt.Errorf("%w (%s)", err, f.cookieName)
	}

	return &Middleware{
		factory:   f,
		headers:   headers,
		state:     stateBoundExisting,
		sess:      sess,
		sessionID: sessionID,
	}, nil
}

func (f *MiddlewareFactory) reject(ctx context.Context, reason string) {
	if f.metrics != nil {
		f.metrics.CallsRejected.WithLabelValues(reason).Inc()
	}
	f.log.WarnContext(ctx, "call.reject", slog.String("reason", reason))
}

// Middleware is the per-call session handle. Its lifetime is exactly one
// RPC call; the hosting transport drives SendingHeaders and CallCompleted,
// handler code uses the session accessors. All methods are safe for
// concurrent use within the call.
type Middleware struct {
	factory *MiddlewareFactory
	headers CallHeaders

	mu        sync.Mutex
	state     bindState
	sess      Session
	sessionID string

	completed sync.Once
}

// CallHeaders returns the call's original inbound header multi-map.
func (m *Middleware) CallHeaders() CallHeaders { return m.headers }

// HasSession reports whether the call currently holds a session, either
// bound at StartCall or created by an earlier GetSession.
func (m *Middleware) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != stateUnbound
}

// SessionID returns the identifier of the bound session, or "" while
// unbound.
func (m *Middleware) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// GetSession returns the call's session, creating and registering a fresh
// one on first use if the call arrived without a cookie. Repeated calls
// within one RPC return the same session; a second session is never
// created. Creation failure (generator collision) is Internal and leaves
// the call unbound.
func (m *Middleware) GetSession(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateUnbound {
		return m.sess, nil
	}

	id, sess, err := m.factory.store.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	m.state = stateBoundNew
	m.sess = sess
	m.sessionID = id
	m.factory.log.InfoContext(ctx, "session.create.ok", slog.String("session_id", id))
	return sess, nil
}

// CloseSession removes the bound session from the store. The call's binding
// is unaffected; the state machine has no transition out of a bound state,
// so a freshly created session that is closed on the same call still gets
// its cookie announced.
func (m *Middleware) CloseSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateUnbound {
		return ErrNoActiveSession
	}
	if err := m.factory.store.CloseSession(ctx, m.sessionID); err != nil {
		return err
	}
	m.factory.log.InfoContext(ctx, "session.close.ok", slog.String("session_id", m.sessionID))
	return nil
}

// SendingHeaders emits the new-session cookie, if and only if this call
// created the session it holds. Existing sessions are never re-announced
// and unbound calls emit nothing. The transport must invoke it exactly once
// per call, before the first response message.
func (m *Middleware) SendingHeaders(w HeaderWriter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateBoundNew {
		w.Add(SetCookieHeader, cookies.FormatSessionCookie(m.factory.cookieName, m.sessionID))
	}
}

// CallCompleted runs the factory's completion hook, if any. The transport
// invokes it exactly once after the handler finishes, regardless of
// outcome; repeat invocations are no-ops.
func (m *Middleware) CallCompleted(ctx context.Context, callErr error) {
	m.completed.Do(func() {
		if m.factory.onCompleted != nil {
			m.factory.onCompleted(ctx, m, callErr)
		}
	})
}
