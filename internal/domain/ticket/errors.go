package ticket

import "errors"

// Sentinel kinds for ticket errors.
var (
	// ErrNotFound means the customer has no open ticket.
	ErrNotFound = errors.New("no active ticket for customer")

	// ErrInvalidCode means the presented one-time code does not match.
	ErrInvalidCode = errors.New("invalid one-time code")

	// ErrInvalidState rejects a transition from the wrong status.
	ErrInvalidState = errors.New("ticket is not in the required state")

	// ErrTicketExists rejects creating over an existing open ticket.
	ErrTicketExists = errors.New("customer already has an open ticket")

	// ErrCodeGeneration marks a failure producing a one-time code.
	ErrCodeGeneration = errors.New("one-time code generation failed")
)
