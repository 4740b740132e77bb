package sla

import "errors"

var (
	// ErrUnknownPriority is returned for a priority outside HIGH/MEDIUM/LOW.
	ErrUnknownPriority = errors.New("unknown priority")
	// ErrInvalidTimestamp is returned when a checkpoint precedes ticket creation.
	ErrInvalidTimestamp = errors.New("checkpoint precedes ticket creation")
	// ErrAlreadyRecorded is returned when a checkpoint is written twice.
	ErrAlreadyRecorded = errors.New("checkpoint already recorded")
)
