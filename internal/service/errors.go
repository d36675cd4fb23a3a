// Package service implements the vendor-facing tool operations: credential
// lookup, payload assembly, bounded-retry invocation and result parsing.
package service

import (
	"errors"
	"fmt"
)

// Kind is the failure class of a terminal request error.
type Kind string

// Failure classes. The handler maps each to an HTTP status.
const (
	KindConfiguration     Kind = "configuration"
	KindInvalidInput      Kind = "invalid_input"
	KindOverloaded        Kind = "overloaded"
	KindVendor            Kind = "vendor"
	KindBlockedContent    Kind = "blocked_content"
	KindMalformedResponse Kind = "malformed_response"
	KindTransport         Kind = "transport"
	KindTimeout           Kind = "timeout"
)

// Error is the typed failure returned by every service operation.
// Message is safe to show to the caller; Err carries the diagnostic cause.
type Error struct {
	Kind    Kind
	Vendor  string
	Status  int // vendor HTTP status, zero when no response was received
	Message string
	Err     error
}

func (e *Error) Error() string {
	var s string
	if e.Vendor != "" {
		s = e.Vendor + ": "
	}
	s += string(e.Kind)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}
