package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row is absent or hidden by a tombstone.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness invariant:
	// duplicate membership, duplicate pending join request, or a project/course
	// link already taken by another room.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState is returned when a transition is attempted from the wrong
	// state, such as processing a join request that is no longer pending.
	ErrInvalidState = errors.New("invalid state")
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
)

// translateError converts driver-level failures into the store's typed errors
// so callers never see a raw pq fault for an invariant violation.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqSerializationFailure:
			return ErrConflict
		}
	}

	return err
}
