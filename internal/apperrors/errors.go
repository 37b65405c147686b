// Package apperrors defines the error kinds surfaced to API callers.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Kind is the stable, machine-readable error code.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindDuplicateVote    Kind = "duplicate_vote"
	KindAuthorization    Kind = "authorization"
	KindTransientStorage Kind = "transient_storage"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindUnauthenticated  Kind = "unauthenticated"
	KindInternal         Kind = "internal"
)

// Error carries a Kind, a message safe to show to callers, and the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Internal wraps an unexpected failure. Its message never includes the cause.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// NotFound reports a missing group, event, poll, option or user.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// DuplicateVote reports a second ballot by the same user in the same poll.
func DuplicateVote() *Error {
	return &Error{Kind: KindDuplicateVote, Message: "you have already voted in this poll"}
}

// Authorization reports that the actor lacks the required membership or role.
func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// Validation reports a malformed or inconsistent request.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Conflict reports a uniqueness clash that is not a vote (e.g. an email already registered).
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Unauthenticated reports missing or invalid credentials.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// TransientStorage wraps a datastore failure. The caller may retry the whole operation.
func TransientStorage(err error) *Error {
	return &Error{Kind: KindTransientStorage, Message: "storage temporarily unavailable", Err: err}
}

// FromStorage maps a repository error: pgx.ErrNoRows becomes NotFound(entity), an *Error passes
// through, anything else is TransientStorage.
func FromStorage(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity)
	}
	return TransientStorage(err)
}

// KindOf returns the Kind of err: "" for nil, KindInternal when err carries no *Error.
func KindOf(err error) Kind {
	var appErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &appErr):
		return appErr.Kind
	default:
		return KindInternal
	}
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
