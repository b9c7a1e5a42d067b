package models

import "errors"

type ErrorKind string

const (
	ErrMalformedInput ErrorKind = "malformed_input"
	ErrValidation     ErrorKind = "validation"
	ErrGeneration     ErrorKind = "generation"
	ErrTransport      ErrorKind = "transport"
	ErrUnexpected     ErrorKind = "unexpected"
)

// ChatError tags a failure with the kind that decides how the connection
// reacts to it.
type ChatError struct {
	Kind ErrorKind
	Err  error
}

func NewChatError(kind ErrorKind, err error) *ChatError {
	return &ChatError{Kind: kind, Err: err}
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, or ErrUnexpected for untagged errors.
func KindOf(err error) ErrorKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrUnexpected
}
