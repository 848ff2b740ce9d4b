package service

import (
	"errors"
	"fmt"

	"warung-service/internal/store"
)

// Kind classifies engine errors for the boundary layer.
type Kind string

// Error kinds surfaced across the boundary.
const (
	KindNotFound          Kind = "NotFound"
	KindValidation        Kind = "ValidationError"
	KindInsufficientStock Kind = "InsufficientStock"
	KindConflict          Kind = "ConflictError"
	KindInternal          Kind = "InternalError"
)

// Error is a typed engine error carrying its kind and a human message.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error with the same kind, so sentinel checks with
// errors.Is work across wrapped errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates a typed engine error.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error, translating store-level sentinels.
// Unknown errors report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, store.ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// ItemError records a per-item failure inside a multi-item operation.
// Ref is the product reference from the request (id or name).
type ItemError struct {
	Index   int    `json:"index"`
	Ref     string `json:"ref"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func newItemError(index int, ref string, kind Kind, format string, args ...interface{}) ItemError {
	return ItemError{Index: index, Ref: ref, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
