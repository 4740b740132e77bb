package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus        TicketChangeType = "STATUS_CHANGE"
	ChangeTypePriority      TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeFirstResponse TicketChangeType = "FIRST_RESPONSE_RECORDED"
	ChangeTypeResolution    TicketChangeType = "RESOLUTION_RECORDED"
	ChangeTypeDeadlines     TicketChangeType = "DEADLINES_RECOMPUTED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType SubjectType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
