package services

import "errors"

// Allocation outcomes surfaced to handlers. The first two are expected
// terminal states, not failures; callers must not retry allocation after
// seeing them. ErrAllocationContention is retryable from the top.
var (
	ErrAlreadyClaimed       = errors.New("attendee has already claimed a prize")
	ErrOutOfStock           = errors.New("no prizes available")
	ErrAttendeeNotFound     = errors.New("attendee not found")
	ErrNotVerified          = errors.New("attendee has not completed verification")
	ErrAllocationContention = errors.New("allocation lost repeated races, try again")
	ErrInvalidCode          = errors.New("verification code is invalid or expired")
)
