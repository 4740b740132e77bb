package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// Status is the pair of compliance results for a ticket.
type Status struct {
	Response   ComplianceResult
	Resolution ComplianceResult
}

// Results returns both results in checkpoint order.
func (s Status) Results() []ComplianceResult {
	return []ComplianceResult{s.Response, s.Resolution}
}

// ApplyDeadlines stamps freshly computed deadlines on a ticket.
func ApplyDeadlines(t *domain.Ticket, d Deadlines) {
	t.ResponseDeadline = d.Response
	t.ResolutionDeadline = d.Resolution
}

// RecordFirstResponse sets FirstRespondedAt once. A rejected call leaves t untouched.
func RecordFirstResponse(t *domain.Ticket, at time.Time) error {
	if t.FirstRespondedAt != nil {
		return fmt.Errorf("ticket %s first response: %w", t.ID, ErrAlreadyRecorded)
	}
	if err := checkAfterCreation(t, at); err != nil {
		return fmt.Errorf("ticket %s first response: %w", t.ID, err)
	}
	stamped := at.UTC()
	t.FirstRespondedAt = &stamped
	return nil
}

// RecordResolution sets ResolvedAt once, independently of the response checkpoint.
func RecordResolution(t *domain.Ticket, at time.Time) error {
	if t.ResolvedAt != nil {
		return fmt.Errorf("ticket %s resolution: %w", t.ID, ErrAlreadyRecorded)
	}
	if err := checkAfterCreation(t, at); err != nil {
		return fmt.Errorf("ticket %s resolution: %w", t.ID, err)
	}
	stamped := at.UTC()
	t.ResolvedAt = &stamped
	return nil
}

// Record dispatches to the checkpoint specific recorder.
func Record(t *domain.Ticket, kind Checkpoint, at time.Time) error {
	switch kind {
	case CheckpointResponse:
		return RecordFirstResponse(t, at)
	case CheckpointResolution:
		return RecordResolution(t, at)
	default:
		return fmt.Errorf("unknown checkpoint %q", kind)
	}
}

// CurrentStatus evaluates both checkpoints of t against now.
func CurrentStatus(t *domain.Ticket, now time.Time) Status {
	return Status{
		Response:   Evaluate(CheckpointResponse, t.ResponseDeadline, t.FirstRespondedAt, now),
		Resolution: Evaluate(CheckpointResolution, t.ResolutionDeadline, t.ResolvedAt, now),
	}
}

func checkAfterCreation(t *domain.Ticket, at time.Time) error {
	if at.Before(t.CreatedAt) {
		return fmt.Errorf("%s before created_at %s: %w",
			at.UTC().Format(time.RFC3339Nano), t.CreatedAt.UTC().Format(time.RFC3339Nano), ErrInvalidTimestamp)
	}
	return nil
}
