// Package errors declares the sentinel errors of the messaging domain.
// Callers classify with errors.Is; the transport layer maps them to
// response codes (400/404/403).
package errors

import "fmt"

var (
	// ErrValidation covers malformed or insufficient input: empty body,
	// fewer than 2 participants, duplicate email on update.
	ErrValidation = fmt.Errorf("validation failed")

	// ErrNotFound covers referenced entities that are absent or soft-deleted.
	ErrNotFound = fmt.Errorf("not found")

	// ErrPermissionDenied covers callers lacking the required relationship,
	// e.g. a non-participant posting into a conversation.
	ErrPermissionDenied = fmt.Errorf("permission denied")
)
