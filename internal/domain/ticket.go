package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// ActiveStatuses are the statuses still accruing SLA time.
func ActiveStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusPendingUser}
}

// TerminalStatuses are the statuses that stop the SLA clock.
func TerminalStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled}
}

// IsTerminal reports whether the ticket left the working set.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPendingUser,
		TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityLow    TicketPriority = "LOW"
)

// TicketPriorities is the closed set of priority tiers, most urgent first.
func TicketPriorities() []TicketPriority {
	return []TicketPriority{TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow}
}

// Valid reports whether p belongs to the closed enumeration.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities, 0 being the most urgent; -1 for unknown values.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityHigh:
		return 0
	case TicketPriorityMedium:
		return 1
	case TicketPriorityLow:
		return 2
	default:
		return -1
	}
}

// Ticket is the aggregate for support requests and owns its SLA fields.
type Ticket struct {
	ID                 string
	ExternalKey        string
	Title              string
	Status             TicketStatus
	Priority           TicketPriority
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           *time.Time
	ResponseDeadline   time.Time
	ResolutionDeadline time.Time
	FirstRespondedAt   *time.Time
	ResolvedAt         *time.Time
	// Version guards SLA writes with optimistic concurrency.
	Version int64
}
