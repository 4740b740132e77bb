package sla

import (
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// Deadlines holds the two binding instants derived at ticket creation.
type Deadlines struct {
	Response   time.Time
	Resolution time.Time
}

// ComputeDeadlines adds the priority's budgets to createdAt.
//
// The arithmetic runs on the UTC instant so the stored deadline never depends on
// the caller's location or a DST transition. Nanosecond precision is preserved.
func ComputeDeadlines(registry *Registry, createdAt time.Time, priority domain.TicketPriority) (Deadlines, error) {
	policy, err := registry.PolicyFor(priority)
	if err != nil {
		return Deadlines{}, err
	}
	base := createdAt.UTC()
	return Deadlines{
		Response:   base.Add(policy.ResponseBudget),
		Resolution: base.Add(policy.ResolutionBudget),
	}, nil
}
