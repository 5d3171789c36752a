package chathub

import "errors"

// Error kinds. Every error returned by an Engine operation matches one of these with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAuthorization = errors.New("not authorized")
	ErrPersistence   = errors.New("persistence error")
)

// Error is a failure reported back to the acting user. Key selects the localized text.
type Error struct {
	Kind  error
	Key   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Key + ": " + e.Cause.Error()
	}
	return e.Kind.Error() + ": " + e.Key
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newError(kind error, key string) *Error {
	return &Error{Kind: kind, Key: key}
}

func wrapError(kind error, key string, cause error) *Error {
	return &Error{Kind: kind, Key: key, Cause: cause}
}
