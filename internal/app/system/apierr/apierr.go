// Package apierr defines the error taxonomy of the JSON API surface.
//
// Each error carries a kind that maps to exactly one HTTP status, so every
// handler reports failures the same way. "Not found" and "forbidden" are
// deliberately a single kind: a caller who may not see a file learns nothing
// beyond its apparent non-existence.
package apierr

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratafiles/internal/app/system/jsonutil"
)

// Kind classifies an API error.
type Kind int

const (
	// KindValidation is a missing or invalid input (400).
	KindValidation Kind = iota
	// KindUnauthenticated is a missing, invalid, or expired token (401).
	KindUnauthenticated
	// KindNotFound merges not-found and forbidden (404).
	KindNotFound
	// KindInvalidOperation is a well-formed request that makes no sense for
	// the target, e.g. fetching the content of a folder (400).
	KindInvalidOperation
	// KindInternal is an unexpected failure (500). The client only ever
	// sees a generic message.
	KindInternal
)

// Error is an API error with a taxonomy kind and client-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation returns a 400 validation error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Unauthenticated returns the canonical 401 error.
func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Unauthorized"}
}

// NotFound returns the merged not-found-or-forbidden 404 error.
func NotFound() *Error {
	return &Error{Kind: KindNotFound, Message: "Not found"}
}

// InvalidOperation returns a 400 invalid-operation error.
func InvalidOperation(message string) *Error {
	return &Error{Kind: KindInvalidOperation, Message: message}
}

// Internal returns a 500 error with a generic client message.
func Internal() *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error"}
}

// Write sends err as a JSON response. Non-*Error values are treated as
// internal failures so storage detail never leaks to the client.
func Write(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal()
	}

	switch apiErr.Kind {
	case KindValidation, KindInvalidOperation:
		jsonutil.BadRequest(w, apiErr.Message)
	case KindUnauthenticated:
		jsonutil.Unauthorized(w, apiErr.Message)
	case KindNotFound:
		jsonutil.NotFound(w, apiErr.Message)
	default:
		jsonutil.InternalError(w, Internal().Message)
	}
}
