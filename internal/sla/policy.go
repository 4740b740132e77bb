package sla

import (
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// Policy is the per-priority pair of time budgets.
type Policy struct {
	Priority         domain.TicketPriority
	ResponseBudget   time.Duration
	ResolutionBudget time.Duration
}

// Validate checks the budget invariant 0 < response <= resolution.
func (p Policy) Validate() error {
	if !p.Priority.Valid() {
		return fmt.Errorf("policy %q: %w", p.Priority, ErrUnknownPriority)
	}
	if p.ResponseBudget <= 0 || p.ResolutionBudget <= 0 {
		return fmt.Errorf("policy %s: budgets must be positive", p.Priority)
	}
	if p.ResponseBudget > p.ResolutionBudget {
		return fmt.Errorf("policy %s: response budget %s exceeds resolution budget %s",
			p.Priority, p.ResponseBudget, p.ResolutionBudget)
	}
	return nil
}

// Registry is an immutable snapshot of priority -> policy.
type Registry struct {
	policies map[domain.TicketPriority]Policy
}

// NewRegistry builds a registry covering every priority tier exactly once.
func NewRegistry(policies ...Policy) (*Registry, error) {
	byPriority := make(map[domain.TicketPriority]Policy, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byPriority[p.Priority]; dup {
			return nil, fmt.Errorf("duplicate policy for %s", p.Priority)
		}
		byPriority[p.Priority] = p
	}
	for _, priority := range domain.TicketPriorities() {
		if _, ok := byPriority[priority]; !ok {
			return nil, fmt.Errorf("missing policy for %s", priority)
		}
	}
	return &Registry{policies: byPriority}, nil
}

// PolicyFor returns the policy for priority or ErrUnknownPriority.
func (r *Registry) PolicyFor(priority domain.TicketPriority) (Policy, error) {
	p, ok := r.policies[priority]
	if !ok {
		return Policy{}, fmt.Errorf("policy lookup %q: %w", priority, ErrUnknownPriority)
	}
	return p, nil
}

// Policies returns the snapshot ordered from most to least urgent.
func (r *Registry) Policies() []Policy {
	out := make([]Policy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}
