package errors

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")

	ErrBadCredentials = errors.New("unknown username or wrong pin")
)
