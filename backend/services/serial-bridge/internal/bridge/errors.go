package bridge

import "errors"

var (
	// ErrNotOpen is returned when writing while no transport is open.
	ErrNotOpen = errors.New("bridge: serial port is not open")
	// ErrOpenFailed wraps transport open failures.
	ErrOpenFailed = errors.New("bridge: open transport failed")
)
