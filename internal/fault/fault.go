package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the caller's retry decision.
type Kind string

const (
	// KindConfiguration means a required credential or setting is missing or
	// invalid. Fatal, surfaced before any outbound call, never retried.
	KindConfiguration Kind = "configuration"
	// KindUpstream means an external collaborator returned a non-success
	// status or was unreachable. Retryable by the caller with backoff.
	KindUpstream Kind = "upstream"
	// KindParse means a structured response was received but could not be
	// decoded. Not retryable without changing the request shape.
	KindParse Kind = "parse"
	// KindExtraction means a document was received but yielded no usable
	// fields. Not retryable without changing the request shape.
	KindExtraction Kind = "extraction"
	// KindTimeout means no response arrived within the allotted budget.
	KindTimeout Kind = "timeout"
)

// Error carries the failure kind plus the source and operation it came from.
type Error struct {
	Kind   Kind
	Source string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Source != "" {
		msg += " [" + e.Source + "]"
	}
	if e.Op != "" {
		msg += " " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed error for the given kind.
func New(kind Kind, source, op string, err error) *Error {
	return &Error{Kind: kind, Source: source, Op: op, Err: err}
}

// Newf builds a typed error from a format string.
func Newf(kind Kind, source, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Source: source, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether the caller may usefully retry the same request.
// Only upstream failures qualify; timeouts warrant one retry with a larger
// budget, which is the caller's call, so they are not reported here.
func Retryable(err error) bool { return Is(err, KindUpstream) }
