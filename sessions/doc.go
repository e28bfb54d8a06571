// Package sessions defines the session affinity layer for an otherwise
// stateless RPC service: a server-side bag of named options correlated with
// a client across calls via a cookie-style token.
//
// Layers & Roles
//
//	Transport         -> runs the per-call lifecycle (StartCall .. CallCompleted)
//	MiddlewareFactory -> resolves the inbound cookie to a session, or defers binding
//	Middleware        -> per-call handle; lazily creates sessions, announces new ones once
//	Store             -> registry of identifier -> Session for the server's lifetime
//	Session           -> one client's option map, independently lock-guarded
//
// # Lifecycle
//
// For every call the hosting transport invokes, in order and exactly once
// each: MiddlewareFactory.StartCall, then any number of HasSession/GetSession
// calls from handler code, then Middleware.SendingHeaders immediately before
// response headers are written, then Middleware.CallCompleted. A session is
// created only when a handler asks for one on a call that presented no
// cookie; the fresh identifier is announced to the client through a single
// set-cookie response header on that call and never re-announced afterwards.
//
// # Implementations
//
// memorystore provides the in-memory Store used by tests and single-process
// servers. The identifier strategy is injected (see IDGenerator) so tests
// can run with deterministic sequences; package ids supplies the production
// generators.
package sessions
