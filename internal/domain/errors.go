package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes for request failures.
const (
	CodeNotFound    = 1
	CodeUnavailable = 2
	CodeInternal    = 3
)

// AppError represents a request failure with a code, a client-facing message,
// an optional kind and detail, and an optional wrapped error.
type AppError struct {
	Code    int    `json:"code"`
	Kind    string `json:"type,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors.
//
// Use the helper functions (IsNotFound, IsUnavailable, ...) to classify an
// error. They compare codes through errors.As, so they also match freshly
// built AppErrors and wrapped ones.
var (
	ErrNotFound = &AppError{Code: CodeNotFound, Kind: "NotFound", Message: "not found"}
	// ErrUnavailable is returned by every read while the store is disconnected.
	ErrUnavailable = &AppError{
		Code:    CodeUnavailable,
		Kind:    "ConnectionFailure",
		Message: "Database connection failed",
		Details: "MongoDB client not initialized",
	}
	ErrInternal = &AppError{Code: CodeInternal, Kind: "InternalError", Message: "internal error"}
)

// Internal wraps err as a CodeInternal AppError whose message is err's text,
// so the client sees what went wrong.
func Internal(err error) *AppError {
	if err == nil {
		return ErrInternal
	}
	return &AppError{Code: CodeInternal, Message: err.Error(), Err: err}
}

// Unavailable wraps a failed liveness probe.
func Unavailable(err error) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Kind:    ErrUnavailable.Kind,
		Message: ErrUnavailable.Message,
		Details: errText(err),
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsUnavailable reports whether err is or wraps an AppError with CodeUnavailable.
func IsUnavailable(err error) bool {
	return hasCode(err, CodeUnavailable)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// hasCode checks whether err is or wraps an *AppError with the given code.
func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// KindOf names the kind of err for clients. An AppError with an explicit Kind
// wins; otherwise the Go type name of the innermost wrapped error is used,
// without package qualifier or pointer marker.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}

	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}

	name := strings.TrimPrefix(fmt.Sprintf("%T", inner), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// HTTPStatusCode maps an error to an HTTP status code. Only CodeNotFound maps
// to a 4xx; every other failure is a 500.
func HTTPStatusCode(err error) int {
	if IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
