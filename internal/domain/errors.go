package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it without reading messages.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

var (
	// ErrValidation matches any error of KindValidation via errors.Is.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound matches any error of KindNotFound via errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrConflict matches any error of KindConflict via errors.Is.
	ErrConflict = errors.New("conflict")

	// ErrInternal matches any error of KindInternal via errors.Is.
	ErrInternal = errors.New("internal error")
)

var kindSentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
	KindConflict:   ErrConflict,
	KindInternal:   ErrInternal,
}

// Error is a classified domain error.
type Error struct {
	Op   string // e.g. "tweet.unlike"
	Kind Kind
	Msg  string
	Err  error // optional cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) and friends match by kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return kindSentinels[e.Kind] == target
}

// Validation builds a KindValidation error.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure, typically from a store.
func Internal(op string, err error) error {
	return &Error{Op: op, Kind: KindInternal, Msg: "internal error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// Message returns the client-facing message of a domain error. Errors
// without a domain classification are reported generically.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}
