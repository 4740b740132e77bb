package events

import (
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventFirstResponseRecorded EventType = "sla_first_response_recorded"
	EventResolutionRecorded    EventType = "sla_resolution_recorded"
	EventDeadlinesRecomputed   EventType = "sla_deadlines_recomputed"
	EventSLABreached           EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority           domain.TicketPriority `json:"priority"`
	Title              string                `json:"title"`
	ResponseDeadline   time.Time             `json:"response_deadline"`
	ResolutionDeadline time.Time             `json:"resolution_deadline"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority         domain.TicketPriority `json:"old_priority"`
	NewPriority         domain.TicketPriority `json:"new_priority"`
	DeadlinesRecomputed bool                  `json:"deadlines_recomputed"`
}

// CheckpointRecordedPayload is shared by first response and resolution events.
type CheckpointRecordedPayload struct {
	Checkpoint string        `json:"checkpoint"`
	At         time.Time     `json:"at"`
	Deadline   time.Time     `json:"deadline"`
	State      string        `json:"state"`
	Remaining  time.Duration `json:"remaining_ns"`
}

// DeadlinesRecomputedPayload payload.
type DeadlinesRecomputedPayload struct {
	Priority              domain.TicketPriority `json:"priority"`
	OldResponseDeadline   time.Time             `json:"old_response_deadline"`
	NewResponseDeadline   time.Time             `json:"new_response_deadline"`
	OldResolutionDeadline time.Time             `json:"old_resolution_deadline"`
	NewResolutionDeadline time.Time             `json:"new_resolution_deadline"`
}

// SLABreachedPayload carries one breach notification.
type SLABreachedPayload struct {
	ExternalKey string        `json:"external_key,omitempty"`
	Checkpoint  string        `json:"checkpoint"`
	BreachedAt  time.Time     `json:"breached_at"`
	OverdueBy   time.Duration `json:"overdue_by_ns"`
	DetectedAt  time.Time     `json:"detected_at"`
}
