package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrUnauthenticated indicates a collection operation without a user handle
	ErrUnauthenticated = errors.New("no user is logged in")

	// ErrInvalidInput indicates a malformed kind, id or username
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence matches every *PersistenceError via errors.Is
	ErrPersistence = errors.New("storage failure")

	// ErrNotFound indicates the remote catalog has no entry for the id
	ErrNotFound = errors.New("catalog entry not found")

	// ErrRateLimited indicates the remote catalog answered 429
	ErrRateLimited = errors.New("catalog rate limit exceeded")

	// ErrServerError indicates the remote catalog answered 5xx
	ErrServerError = errors.New("catalog server error")

	// ErrServerOffline indicates the remote catalog is unreachable
	ErrServerOffline = errors.New("catalog is unreachable")
)

// PersistenceError reports a failed read or write against local storage.
type PersistenceError struct {
	Op  string // "read", "write", "delete", "decode", "encode"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// FetchError reports a failure to materialize a single collection item.
type FetchError struct {
	Kind MediaKind
	ID   MediaID
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether trying again later could succeed.
// Missing entries and caller cancellation are final.
func (e *FetchError) Retryable() bool {
	switch {
	case errors.Is(e.Err, ErrNotFound), errors.Is(e.Err, context.Canceled):
		return false
	case errors.Is(e.Err, ErrRateLimited),
		errors.Is(e.Err, ErrServerError),
		errors.Is(e.Err, ErrServerOffline),
		errors.Is(e.Err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}
