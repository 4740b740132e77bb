package dto

import (
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// CreateTicketRequest payload. Priority is checked against the policy table,
// not here, so unknown tiers surface as UNKNOWN_PRIORITY.
type CreateTicketRequest struct {
	Title     string                `json:"title" validate:"required,max=255"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatedAt *time.Time            `json:"created_at"`
}

// RecordCheckpointRequest payload. A missing At means now.
type RecordCheckpointRequest struct {
	At *time.Time `json:"at"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status" validate:"required"`
	Comment string              `json:"comment" validate:"max=1000"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority  domain.TicketPriority `json:"priority"`
	Recompute bool                  `json:"recompute"`
}

// ComplianceResponse is one evaluated checkpoint.
type ComplianceResponse struct {
	Checkpoint       string    `json:"checkpoint"`
	Deadline         time.Time `json:"deadline"`
	State            string    `json:"state"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Occurred         bool      `json:"occurred"`
}

// TicketSLAResponse is a ticket with both checkpoints evaluated.
type TicketSLAResponse struct {
	ID                 string                `json:"id"`
	ExternalKey        string                `json:"external_key"`
	Title              string                `json:"title"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	ClosedAt           *time.Time            `json:"closed_at"`
	ResponseDeadline   time.Time             `json:"response_deadline"`
	ResolutionDeadline time.Time             `json:"resolution_deadline"`
	FirstRespondedAt   *time.Time            `json:"first_responded_at"`
	ResolvedAt         *time.Time            `json:"resolved_at"`
	Version            int64                 `json:"version"`
	EvaluatedAt        time.Time             `json:"evaluated_at"`
	Response           ComplianceResponse    `json:"response"`
	Resolution         ComplianceResponse    `json:"resolution"`
}

// PolicyResponse is one row of the policy table.
type PolicyResponse struct {
	Priority                domain.TicketPriority `json:"priority"`
	ResponseBudget          string                `json:"response_budget"`
	ResolutionBudget        string                `json:"resolution_budget"`
	ResponseBudgetSeconds   int64                 `json:"response_budget_seconds"`
	ResolutionBudgetSeconds int64                 `json:"resolution_budget_seconds"`
}

// CheckpointReportResponse aggregates one checkpoint kind.
type CheckpointReportResponse struct {
	Checkpoint          string  `json:"checkpoint"`
	Met                 int     `json:"met"`
	Breached            int     `json:"breached"`
	Pending             int     `json:"pending"`
	CompliancePercent   float64 `json:"compliance_percent"`
	WorstOverdueSeconds int64   `json:"worst_overdue_seconds"`
}

// ComplianceReportResponse is the compliance report.
type ComplianceReportResponse struct {
	GeneratedAt  time.Time                  `json:"generated_at"`
	TotalTickets int                        `json:"total_tickets"`
	Checkpoints  []CheckpointReportResponse `json:"checkpoints"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangedByType domain.SubjectType      `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
