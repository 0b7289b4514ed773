package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers wrap them with %w and classify with errors.Is.
var (
	// ErrValidation rejects a request before anything is persisted.
	ErrValidation = errors.New("validation error")
	// ErrAuth means no authenticated owner was supplied.
	ErrAuth = errors.New("unauthorized")
	// ErrPersistence wraps database failures.
	ErrPersistence = errors.New("persistence error")
	// ErrUpstream wraps model provider failures.
	ErrUpstream = errors.New("upstream error")
	// ErrTransport wraps network failures between client and service.
	ErrTransport = errors.New("transport error")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validationf builds an ErrValidation with a user-facing message.
func Validationf(format string, args ...any) error {
	return &categorized{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps err as ErrPersistence with an operation label.
func Persistence(op string, err error) error {
	return &categorized{kind: ErrPersistence, msg: op, err: err}
}

// Upstream wraps err as ErrUpstream with an operation label.
func Upstream(op string, err error) error {
	return &categorized{kind: ErrUpstream, msg: op, err: err}
}

// Transport wraps err as ErrTransport with an operation label.
func Transport(op string, err error) error {
	return &categorized{kind: ErrTransport, msg: op, err: err}
}

type categorized struct {
	kind error
	msg  string
	err  error
}

func (e *categorized) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *categorized) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// Message returns the text meant for API clients: the validation message for
// validation errors and a generic category label for everything else.
func Message(err error) string {
	var c *categorized
	if errors.As(err, &c) && errors.Is(c.kind, ErrValidation) {
		return c.msg
	}
	switch {
	case errors.Is(err, ErrAuth):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrPersistence):
		return "failed to store generation"
	case errors.Is(err, ErrUpstream):
		return "generation provider failed"
	}
	return "internal error"
}
