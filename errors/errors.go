// Package errors provides error types and utilities for the viewsync package.
package errors

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents cache store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeRemote represents remote call failures
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeValidation represents locally rejected input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeMutation represents mutation coordination errors
	ErrorTypeMutation ErrorType = "mutation"
)

// Common error types
var (
	// Store errors
	ErrStoreClosed     = errors.New("store is closed")
	ErrKeyNotFound     = errors.New("key not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrNoFetcher       = errors.New("no fetcher configured for key")
	ErrContextCanceled = errors.New("operation canceled by context")

	// Remote errors
	ErrNetwork  = errors.New("network failure")
	ErrServer   = errors.New("server failure")
	ErrConflict = errors.New("conflicting server state")

	// Validation errors
	ErrValidation    = errors.New("invalid input")
	ErrEmptyComment  = errors.New("comment body is empty")
	ErrInvalidRating = errors.New("rating out of range")

	// Pagination errors
	ErrNotPaginated   = errors.New("key is not paginated")
	ErrCursorReleased = errors.New("cursor has been released")
)

// SyncError represents a viewsync operation error
type SyncError struct {
	Op      string
	Key     any
	Err     error
	ErrType ErrorType
}

// determineErrorType determines the error type based on the error
func determineErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrStoreClosed) || errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrNoFetcher) ||
		errors.Is(err, ErrContextCanceled):
		return ErrorTypeStore
	case errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer) ||
		errors.Is(err, ErrConflict):
		return ErrorTypeRemote
	case errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyComment) ||
		errors.Is(err, ErrInvalidRating):
		return ErrorTypeValidation
	default:
		return ErrorTypeMutation
	}
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: %s: key=%v: %v", e.ErrType, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.ErrType, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error is of the same type as the receiver
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return e.ErrType == t.ErrType && e.Op == t.Op && errors.Is(e.Err, t.Err)
}

// NewSyncError creates a new SyncError
func NewSyncError(errType ErrorType, op string, key any, err error) error {
	return &SyncError{
		ErrType: errType,
		Op:      op,
		Key:     key,
		Err:     err,
	}
}

// ErrorMetrics tracks error statistics
type ErrorMetrics struct {
	// Error counts by type
	StoreErrors      atomic.Int64
	RemoteErrors     atomic.Int64
	ValidationErrors atomic.Int64
	MutationErrors   atomic.Int64

	// Last error timestamps
	LastStoreError      atomic.Value // time.Time
	LastRemoteError     atomic.Value // time.Time
	LastValidationError atomic.Value // time.Time
	LastMutationError   atomic.Value // time.Time
}

var metrics = &ErrorMetrics{}

// GetErrorMetrics returns the current error metrics
func GetErrorMetrics() *ErrorMetrics {
	return metrics
}

// ResetErrorMetrics resets all error metrics
func ResetErrorMetrics() {
	metrics.StoreErrors.Store(0)
	metrics.RemoteErrors.Store(0)
	metrics.ValidationErrors.Store(0)
	metrics.MutationErrors.Store(0)
	metrics.LastStoreError.Store(time.Time{})
	metrics.LastRemoteError.Store(time.Time{})
	metrics.LastValidationError.Store(time.Time{})
	metrics.LastMutationError.Store(time.Time{})
}

// updateErrorMetrics updates metrics for the given error type
func updateErrorMetrics(errType ErrorType) {
	now := time.Now()
	switch errType {
	case ErrorTypeStore:
		metrics.StoreErrors.Add(1)
		metrics.LastStoreError.Store(now)
	case ErrorTypeRemote:
		metrics.RemoteErrors.Add(1)
		metrics.LastRemoteError.Store(now)
	case ErrorTypeValidation:
		metrics.ValidationErrors.Add(1)
		metrics.LastValidationError.Store(now)
	case ErrorTypeMutation:
		metrics.MutationErrors.Add(1)
		metrics.LastMutationError.Store(now)
	}
}

// WrapError wraps an error with context and updates metrics
func WrapError(op string, key any, err error) error {
	if err == nil {
		return nil
	}

	// Determine error type
	errType := determineErrorType(err)

	// Update metrics
	updateErrorMetrics(errType)

	// Create and return wrapped error
	return NewSyncError(errType, op, key, err)
}

// IsSyncError checks if an error is a SyncError
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// GetSyncError returns the SyncError if the error is a SyncError
func GetSyncError(err error) *SyncError {
	var se *SyncError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if se := GetSyncError(err); se != nil {
		return se.ErrType == errType
	}
	return false
}

// IsKeyNotFound checks if the error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsContextCanceled checks if the error is a context canceled error
func IsContextCanceled(err error) bool {
	return errors.Is(err, ErrContextCanceled)
}

// IsStoreClosed checks if the error is a store closed error
func IsStoreClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}

// IsNetwork checks if the error is a transient network or server failure
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}

// IsConflict checks if the error is a domain-level conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if the error is a locally rejected input
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyComment) ||
		errors.Is(err, ErrInvalidRating)
}

