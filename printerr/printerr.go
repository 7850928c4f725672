// Package printerr defines the failure kinds a print attempt can end with.
package printerr

import "errors"

// Kind classifies a print failure. Every kind is terminal for the current attempt.
type Kind string

const (
	InvalidRequest       Kind = "INVALID_REQUEST"
	InvalidDocument      Kind = "INVALID_DOCUMENT"
	EmptyDocument        Kind = "EMPTY_DOCUMENT"
	NoPagesToPrint       Kind = "NO_PAGES_TO_PRINT"
	ToolchainUnavailable Kind = "TOOLCHAIN_UNAVAILABLE"
	DeviceError          Kind = "DEVICE_ERROR"
	UnsupportedPlatform  Kind = "UNSUPPORTED_PLATFORM"
)

// Error is a classified print failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates a new Error
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// Wrap classifies err as kind unless it is already classified.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return New(kind, message, err)
}
