package service

import "errors"

var (
	// ErrUnknownCard is returned when a command references a card that is not stored.
	ErrUnknownCard = errors.New("service: unknown card")
	// ErrStoreUnavailable wraps any store failure, timeouts included.
	ErrStoreUnavailable = errors.New("service: store unavailable")
)
