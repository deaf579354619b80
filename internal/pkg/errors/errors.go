package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	// ErrCodeInvalid covers wrong, expired and already-used passcodes alike;
	// callers never learn which case they hit.
	ErrCodeInvalid = errors.New("invalid or expired code")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsCodeInvalid(err error) bool {
	return errors.Is(err, ErrCodeInvalid)
}
