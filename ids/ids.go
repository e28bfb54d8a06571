// Package ids provides session identifier generators. Both generators
// produce printable tokens that contain neither "=" nor ";" and are unique
// with overwhelming probability, which is the contract sessions.IDGenerator
// requires.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// UUID returns a random RFC 4122 UUID string. This is the default session
// identifier strategy.
func UUID() string {
	return uuid.NewString()
}

// ULID returns a new ULID string (26 chars). ULIDs are lexicographically
// sortable, which makes session registries easier to eyeball in debugging
// tools at the cost of leaking creation time.
func ULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}
