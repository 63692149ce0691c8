package mail

import "errors"

// ErrValidation is matched by every ValidationError
var ErrValidation = errors.New("mail: validation failed")

// ErrTransportClosed is reported for asynchronous sends submitted after the
// transport was closed
var ErrTransportClosed = errors.New("mail: transport closed")

// ValidationError reports a required field that was left empty
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " cannot be null or empty"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
