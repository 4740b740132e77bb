package repository

import "errors"

var (
	// ErrTicketNotFound is returned when no ticket has the requested id.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrVersionConflict is returned when an update lost an optimistic concurrency race.
	ErrVersionConflict = errors.New("ticket version conflict")
)
