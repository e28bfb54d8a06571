package sessions

import (
	"context"
	"errors"
)

// SessionCookieName is the cookie key both client and server use for the
// session token. It must match byte-for-byte across implementations.
const SessionCookieName = "arrow_flight_session_id"

// Header names for the cookie protocol. Lookups through CallHeaders are
// case-insensitive for both the http and grpc metadata representations.
const (
	CookieHeader    = "cookie"
	SetCookieHeader = "set-cookie"
)

var (
	// ErrEmptyCookie indicates a session cookie pair with an empty value in
	// the inbound headers. The call is rejected before handler dispatch.
	ErrEmptyCookie = errors.New("empty session cookie value")
	// ErrSessionNotFound indicates the presented identifier has no entry in
	// the store, either because it never existed or the server restarted.
	ErrSessionNotFound = errors.New("invalid or expired session cookie")
	// ErrNoActiveSession indicates a session-scoped action was invoked on a
	// call that has no bound session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrIDCollision indicates the injected generator produced an identifier
	// already present in the store. The generator contract is violated and
	// the failure is not retried.
	ErrIDCollision = errors.New("session id collision")
)

// IDGenerator produces a fresh session identifier on each invocation. The
// returned string must be non-empty, printable, globally unique with
// overwhelming probability, and contain neither "=" nor ";". Production
// stores default to ids.UUID; tests inject deterministic sequences.
type IDGenerator func() string

// Session is one client's mapping of option name to option value, shared by
// every in-flight call that presents the same identifier. Implementations
// guard the map with their own lock so calls against different sessions
// never contend.
type Session interface {
	// GetOption returns the value stored under name, reporting whether it
	// was ever set.
	GetOption(name string) (OptionValue, bool)

	// SetOption inserts or overwrites the value stored under name.
	SetOption(name string, value OptionValue)

	// EraseOption removes name if present. Erasing an absent name is not an
	// error.
	EraseOption(name string)

	// Options returns a point-in-time copy of the full option map.
	Options() map[string]OptionValue
}

// Store is the process-scoped registry of session identifier to Session.
// Implementations must never hold their registry lock while acquiring a
// Session's own lock.
type Store interface {
	// CreateSession obtains a fresh identifier from the injected generator,
	// registers a new empty Session under it, and returns both. Concurrent
	// invocations never return the same identifier; a detected collision is
	// reported as ErrIDCollision.
	CreateSession(ctx context.Context) (id string, sess Session, err error)

	// Lookup returns the Session registered under id, or ErrSessionNotFound.
	Lookup(ctx context.Context, id string) (Session, error)

	// CloseSession removes the Session registered under id, or returns
	// ErrSessionNotFound. Removal by explicit client request is the only
	// way a session leaves the store.
	CloseSession(ctx context.Context, id string) error
}

// CallHeaders is a read-only view of a call's inbound header multi-map.
// http.Header satisfies it directly; grpctransport adapts metadata.MD.
type CallHeaders interface {
	// Values returns every value associated with name, in wire order.
	Values(name string) []string
}

// HeaderWriter receives response headers before the first response message
// is sent. http.Header satisfies it directly.
type HeaderWriter interface {
	Add(name, value string)
}
