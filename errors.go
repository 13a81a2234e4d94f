package pnp

import (
	"errors"
	"strings"
)

// Error is the I/O-boundary error type for this module. Load constructs
// it when a manifest file cannot be read; pkg/ziparchive and
// pkg/zipcache report zip-open and decompression failures with their
// own plain errors instead.
//
// Errors coming from this package's components should be able to be
// inspected as ([errors.As]) an *Error at some point in the error
// chain. Components should create an Error at the system boundary
// (reading a file) and intermediate layers
// should not wrap in another Error except to add additional
// [ErrorKind] information — prefer [fmt.Errorf] with a "%w" verb.
// Malformed-input and resolution-logic failures use the named error
// types in errors_resolve.go instead; this type is reserved for actual
// I/O and decoding failures.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

// Assert this implements all the cool features.
var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrInternal:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents the class of error being reported.
//
// claircore's errors.go defines six kinds (conflict, internal, invalid,
// precondition, transient, permanent) for its much larger surface of
// callers; this module only ever produces an internal I/O-boundary
// failure (manifest.go's Load), so the vocabulary is trimmed to that one
// kind. The type stays an enum rather than collapsing Error.Kind to a
// bool or dropping it outright: it is the seam a future caller (e.g. a
// network-backed manifest fetch that can fail transiently) would extend
// by adding a kind here, not by inventing a new error shape.
type ErrorKind string

// ErrInternal marks a non-specific internal I/O or decoding failure.
var ErrInternal = ErrorKind("internal")

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
