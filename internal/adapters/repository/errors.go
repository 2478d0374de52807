package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	// ErrUnavailable marks a failing backend. It is distinct from record
	// absence, which Get reports through its bool return.
	ErrUnavailable = errors.New("record store unavailable")

	// ErrInvalidLimit rejects non-positive TopN limits.
	ErrInvalidLimit = errors.New("invalid top-n limit")
)
