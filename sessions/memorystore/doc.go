// Package memorystore provides the in-memory sessions.Store used by tests
// and single-process servers. All state is ephemeral and discarded on
// process exit.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Identifier policy : injected generator, ids.UUID by default
//	Concurrency       : safe (registry RWMutex + per-session RWMutex)
//
// The registry lock is never held while a session's own lock is acquired,
// so the two lock classes cannot form an ordering cycle.
package memorystore
