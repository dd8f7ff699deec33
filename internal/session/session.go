// Package session implements the per-phone conversation session store.
//
// A session lives for a fixed TTL set at creation; updates do not extend the
// window. Reads fail open: store errors are logged and treated as "no
// session" so the conversation restarts at the welcome menu instead of
// surfacing an error the user cannot act on.
package session

import (
	"context"

	"github.com/skillsmapper/skillsmapper/internal/domain"
)

// Updates describes a partial session mutation. A zero Step keeps the
// current step; a nil Data leaves the payload untouched. Set Data fields are
// merged key-wise into the existing payload (new values win).
type Updates struct {
	Step domain.Step
	Data *domain.SessionData
}

// Store is the conversation session store.
type Store interface {
	// Get retrieves the live session for a phone number. Returns (nil, nil)
	// when no session exists, the TTL has elapsed, or the backing store
	// fails (fail-open).
	Get(ctx context.Context, phone string) (*domain.Session, error)

	// Create starts a fresh session at the welcome step with a new TTL
	// window, replacing any existing session for the phone number.
	Create(ctx context.Context, phone string, data domain.SessionData) (*domain.Session, error)

	// Update applies the given updates to the existing session, preserving
	// its TTL window. If no live session exists it behaves like Create.
	Update(ctx context.Context, phone string, u Updates) (*domain.Session, error)

	// Clear deletes the session. Clearing a missing session is a no-op.
	Clear(ctx context.Context, phone string) error

	// SweepExpired removes expired sessions and returns how many were
	// deleted. Safe to run concurrently with any other operation.
	SweepExpired(ctx context.Context) (int64, error)
}
