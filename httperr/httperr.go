// Copyright (c) 2025 Resin Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httperr defines the error taxonomy shared by the dispatch pipeline.
//
// Every error carries an HTTP status code and a human readable detail. Errors
// raised during resolution, authorization and parameter binding propagate
// through the filter chain as ordinary Go errors until the baseline error
// filter converts them into responses.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error carrying an HTTP status code.
type Error struct {
	// Status is the HTTP status code, in the 400-599 range.
	Status int

	// Detail is a short human readable description, safe to return to clients.
	Detail string

	// Challenge optionally carries a WWW-Authenticate header value for
	// 401 responses.
	Challenge string
}

// Error implements the error interface.
func (e *Error) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = fmt.Sprintf("status %d", e.Status)
	}
	if e.Detail == "" {
		return text
	}
	return fmt.Sprintf("%s: %s", text, e.Detail)
}

// New returns an [Error] for an arbitrary status code. Codes outside the
// 400-599 range are coerced to 500.
func New(status int, detail string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Status: status,
		Detail: detail,
	}
}

// BadRequest reports a malformed, missing or invalid parameter or body.
func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(detail string) *Error {
	return New(http.StatusUnauthorized, detail)
}

// UnauthorizedChallenge reports missing or invalid credentials along with a
// WWW-Authenticate challenge value.
func UnauthorizedChallenge(detail, challenge string) *Error {
	err := New(http.StatusUnauthorized, detail)
	err.Challenge = challenge
	return err
}

// Forbidden reports valid credentials with insufficient authorization.
func Forbidden(detail string) *Error {
	return New(http.StatusForbidden, detail)
}

// NotFound reports that no resource exists at the requested path.
func NotFound(detail string) *Error {
	return New(http.StatusNotFound, detail)
}

// MethodNotAllowed reports that the resource exists but does not support the
// requested method.
func MethodNotAllowed(detail string) *Error {
	return New(http.StatusMethodNotAllowed, detail)
}

// Conflict reports a domain specific state conflict.
func Conflict(detail string) *Error {
	return New(http.StatusConflict, detail)
}

// PreconditionFailed reports a failed conditional request.
func PreconditionFailed(detail string) *Error {
	return New(http.StatusPreconditionFailed, detail)
}

// Internal reports an unclassified server failure.
func Internal(detail string) *Error {
	return New(http.StatusInternalServerError, detail)
}

// StatusOf reports the HTTP status associated with err. Errors which are not
// an [Error] map to 500.
func StatusOf(err error) int {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Status
	}
	return http.StatusInternalServerError
}
