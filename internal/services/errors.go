package services

import (
	"errors"

	"github.com/brightbooks/backend/internal/store"
)

// Error taxonomy shared by the core routines. Handlers map these onto HTTP
// status codes; the reconciliation job accumulates them per template.
var (
	// ErrInvalidAmount rejects negative or otherwise malformed monetary
	// fields before any aggregation happens.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound covers rows that do not exist or belong to another
	// organization. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers a missing/invalid session or scheduler secret.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUpstreamFailure wraps failed or timed-out external calls during a
	// single template's processing.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrRaceLost means the conditional advance found next_generation_date
	// already moved by a concurrent run. Callers treat it as a no-op success.
	ErrRaceLost = errors.New("schedule already advanced by concurrent run")
)

// IsNotFound reports whether err is a not-found from either the service or
// the storage layer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, store.ErrNotFound)
}
