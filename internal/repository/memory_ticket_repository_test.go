package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

var repoNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newStoredTicket(t *testing.T, repo *MemoryTicketRepository, id string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		ID:                 id,
		Title:              "ticket " + id,
		Status:             status,
		Priority:           domain.TicketPriorityHigh,
		CreatedAt:          repoNow,
		ResponseDeadline:   repoNow.Add(time.Hour),
		ResolutionDeadline: repoNow.Add(4 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), ticket))
	return ticket
}

func TestMemoryTicketRepositoryUpdateIsOptimistic(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository(func() time.Time { return repoNow.Add(time.Minute) })
	created := newStoredTicket(t, repo, "t-1", domain.TicketStatusOpen)
	assert.Equal(t, int64(1), created.Version)

	first, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)

	responded := repoNow.Add(10 * time.Minute)
	first.FirstRespondedAt = &responded
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)
	assert.Equal(t, repoNow.Add(time.Minute), first.UpdatedAt)

	second.Status = domain.TicketStatusInProgress
	err = repo.Update(ctx, second)
	assert.True(t, errors.Is(err, ErrVersionConflict))

	stored, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	require.NotNil(t, stored.FirstRespondedAt)
	assert.Equal(t, responded, *stored.FirstRespondedAt)
}

func TestMemoryTicketRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository(nil)
	newStoredTicket(t, repo, "t-1", domain.TicketStatusOpen)

	got, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	resolved := repoNow
	got.ResolvedAt = &resolved

	again, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, again.ResolvedAt)
}

func TestMemoryTicketRepositoryNotFound(t *testing.T) {
	repo := NewMemoryTicketRepository(nil)
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	err = repo.Update(context.Background(), &domain.Ticket{ID: "missing", Version: 1})
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestMemoryTicketRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository(nil)
	newStoredTicket(t, repo, "a", domain.TicketStatusOpen)
	newStoredTicket(t, repo, "b", domain.TicketStatusClosed)
	newStoredTicket(t, repo, "c", domain.TicketStatusPendingUser)

	active, err := repo.ListWithFilter(ctx, TicketFilter{Statuses: domain.ActiveStatuses()})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)

	from := repoNow.Add(time.Hour)
	recent, err := repo.ListWithFilter(ctx, TicketFilter{UpdatedFrom: &from})
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestForEachTicketWalksEveryPage(t *testing.T) {
	repo := NewMemoryTicketRepository(nil)
	for i := 0; i < 7; i++ {
		newStoredTicket(t, repo, fmt.Sprintf("t-%02d", i), domain.TicketStatusOpen)
	}
	newStoredTicket(t, repo, "t-closed", domain.TicketStatusClosed)

	var seen []string
	err := ForEachTicket(context.Background(), repo, TicketFilter{Statuses: domain.ActiveStatuses()}, 3, func(ticket *domain.Ticket) error {
		seen = append(seen, ticket.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t-00", "t-01", "t-02", "t-03", "t-04", "t-05", "t-06"}, seen)
}

func TestForEachTicketStopsOnError(t *testing.T) {
	repo := NewMemoryTicketRepository(nil)
	for i := 0; i < 4; i++ {
		newStoredTicket(t, repo, fmt.Sprintf("t-%d", i), domain.TicketStatusOpen)
	}

	boom := errors.New("boom")
	calls := 0
	err := ForEachTicket(context.Background(), repo, TicketFilter{}, 2, func(*domain.Ticket) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestForEachTicketHonoursCancellation(t *testing.T) {
	repo := NewMemoryTicketRepository(nil)
	newStoredTicket(t, repo, "t-1", domain.TicketStatusOpen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEachTicket(ctx, repo, TicketFilter{}, 10, func(*domain.Ticket) error {
		t.Fatal("no ticket should be visited")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
