package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// MemoryTicketRepository is a process-local TicketRepository used when no
// database is configured, and in tests.
type MemoryTicketRepository struct {
	mu      sync.Mutex
	now     func() time.Time
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository builds an empty store; now stamps UpdatedAt.
func NewMemoryTicketRepository(now func() time.Time) *MemoryTicketRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryTicketRepository{now: now, tickets: make(map[string]domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Version = 1
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrTicketNotFound
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = r.now().UTC()
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	t := cloneTicket(stored)
	return &t, nil
}

func (r *MemoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	matched := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if matchesFilter(t, filter) {
			matched = append(matched, cloneTicket(t))
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func matchesFilter(t domain.Ticket, filter TicketFilter) bool {
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, t.Priority) {
		return false
	}
	if filter.UpdatedFrom != nil && t.UpdatedAt.Before(*filter.UpdatedFrom) {
		return false
	}
	if filter.AfterID != "" && t.ID <= filter.AfterID {
		return false
	}
	return true
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.ClosedAt = cloneTime(t.ClosedAt)
	t.FirstRespondedAt = cloneTime(t.FirstRespondedAt)
	t.ResolvedAt = cloneTime(t.ResolvedAt)
	return t
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	c := *ts
	return &c
}
