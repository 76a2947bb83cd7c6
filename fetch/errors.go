package fetch

import (
	"errors"
	"fmt"
)

// UnknownErrorMessage is used when a failure carries no message of its own
const UnknownErrorMessage = "An unknown error occurred"

// Error is the normalized failure stored in State.Err
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// normalizeError converts any producer failure into an *Error
func normalizeError(err error) *Error {
	if err == nil {
		return &Error{Message: UnknownErrorMessage}
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe
	}

	msg := err.Error()
	if msg == "" {
		msg = UnknownErrorMessage
	}
	return &Error{Message: msg, Err: err}
}

// panicError converts a recovered panic value into an *Error
func panicError(p any) *Error {
	switch v := p.(type) {
	case error:
		return normalizeError(v)
	case string:
		if v == "" {
			return &Error{Message: UnknownErrorMessage}
		}
		return &Error{Message: v}
	case fmt.Stringer:
		return panicError(v.String())
	default:
		return &Error{Message: UnknownErrorMessage}
	}
}
