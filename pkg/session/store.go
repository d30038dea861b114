package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidSession indicates a stored session could not be decoded.
	ErrInvalidSession = errors.New("invalid stored session")
)

// Store persists sessions by ID.
type Store interface {
	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Save stores the session and refreshes its expiry.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
