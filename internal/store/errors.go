// internal/store/errors.go
//
// Sentinel errors shared by the store and mapped to HTTP statuses in the
// httpserver package. Wrap with fmt.Errorf("...: %w", Err...) so callers can
// use errors.Is while keeping a human-readable message.

package store

import "errors"

var (
	// ErrNotFound: no matching entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict: invalid state transition (already active, already admin,
	// second active game, duplicate phone, ...).
	ErrConflict = errors.New("conflict")
	// ErrPermission: entity exists but does not belong to the caller, or the
	// caller lacks the required role.
	ErrPermission = errors.New("permission denied")
)
