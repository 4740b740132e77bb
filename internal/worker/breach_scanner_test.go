package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/clock"
	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/notification"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingChannel struct {
	mu   sync.Mutex
	sent []notification.Breach
	fail map[string]error
}

func (c *recordingChannel) Notify(_ context.Context, breach notification.Breach) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[breach.TicketID]; err != nil {
		return err
	}
	c.sent = append(c.sent, breach)
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func highTicket(id string, status domain.TicketStatus, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:                 id,
		Title:              id,
		Status:             status,
		Priority:           domain.TicketPriorityHigh,
		CreatedAt:          createdAt,
		ResponseDeadline:   createdAt.Add(time.Hour),
		ResolutionDeadline: createdAt.Add(4 * time.Hour),
	}
}

func store(t *testing.T, repo *repository.MemoryTicketRepository, tickets ...*domain.Ticket) {
	t.Helper()
	for _, ticket := range tickets {
		require.NoError(t, repo.Create(context.Background(), ticket))
	}
}

func newScanner(repo repository.TicketRepository, channel notification.Channel, cfg ScannerConfig) *BreachScanner {
	notifier := notification.NewNotifier(repository.NewMemoryNotificationLog(), channel, zap.NewNop(), nil)
	return NewBreachScanner(repo, notifier, clock.NewManualClock(t0), cfg, zap.NewNop(), observability.NewMetrics())
}

func TestScanOnceNotifiesUnresolvedTicketOnce(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)
	ticket := highTicket("t-1", domain.TicketStatusInProgress, t0)
	ticket.FirstRespondedAt = ptr(t0.Add(30 * time.Minute))
	store(t, repo, ticket)

	channel := &recordingChannel{}
	scanner := newScanner(repo, channel, ScannerConfig{BatchSize: 10})

	result, err := scanner.ScanOnce(context.Background(), t0.Add(4*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 1, Breached: 1, Notified: 1}, result)
	require.Len(t, channel.sent, 1)
	assert.Equal(t, sla.CheckpointResolution, channel.sent[0].Checkpoint)
	assert.Equal(t, t0.Add(4*time.Hour), channel.sent[0].BreachedAt)
	assert.Equal(t, time.Minute, channel.sent[0].OverdueBy)

	result, err = scanner.ScanOnce(context.Background(), t0.Add(4*time.Hour+2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 1, Breached: 1, Notified: 0}, result)
	assert.Len(t, channel.sent, 1)
}

func TestScanOnceIgnoresTicketsWithinBudget(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)
	store(t, repo, highTicket("t-1", domain.TicketStatusOpen, t0))

	channel := &recordingChannel{}
	result, err := newScanner(repo, channel, ScannerConfig{}).ScanOnce(context.Background(), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 1}, result)
	assert.Empty(t, channel.sent)
}

func TestScanOnceIsolatesFailures(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)
	for _, id := range []string{"a", "b", "c"} {
		ticket := highTicket(id, domain.TicketStatusOpen, t0)
		ticket.FirstRespondedAt = ptr(t0.Add(time.Minute))
		store(t, repo, ticket)
	}

	channel := &recordingChannel{fail: map[string]error{"b": errors.New("webhook down")}}
	scanner := newScanner(repo, channel, ScannerConfig{BatchSize: 2})
	now := t0.Add(5 * time.Hour)

	result, err := scanner.ScanOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 3, Breached: 3, Notified: 2, Failed: 1}, result)

	channel.fail = nil
	result, err = scanner.ScanOnce(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Notified, "the failed ticket is retried")
	assert.Equal(t, 3, channel.count())
}

func TestScanOnceRescansRecentlyClosedTickets(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)

	lateResolution := highTicket("closed-late", domain.TicketStatusClosed, t0)
	lateResolution.FirstRespondedAt = ptr(t0.Add(10 * time.Minute))
	lateResolution.ResolvedAt = ptr(t0.Add(5 * time.Hour))

	neverWorked := highTicket("cancelled", domain.TicketStatusCancelled, t0)

	old := highTicket("closed-old", domain.TicketStatusClosed, t0.Add(-72*time.Hour))
	old.ResolvedAt = ptr(t0.Add(-60 * time.Hour))

	store(t, repo, lateResolution, neverWorked, old)

	channel := &recordingChannel{}
	scanner := newScanner(repo, channel, ScannerConfig{TerminalLookback: 24 * time.Hour})

	result, err := scanner.ScanOnce(context.Background(), t0.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 2, Breached: 1, Notified: 1}, result)
	require.Len(t, channel.sent, 1)
	assert.Equal(t, "closed-late", channel.sent[0].TicketID)
	assert.Equal(t, sla.CheckpointResolution, channel.sent[0].Checkpoint)
	assert.Equal(t, time.Hour, channel.sent[0].OverdueBy)
}

func TestScanOnceWithoutLookbackSkipsTerminalTickets(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)
	closed := highTicket("closed", domain.TicketStatusClosed, t0)
	closed.ResolvedAt = ptr(t0.Add(5 * time.Hour))
	store(t, repo, closed)

	channel := &recordingChannel{}
	result, err := newScanner(repo, channel, ScannerConfig{}).ScanOnce(context.Background(), t0.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, result)
	assert.Empty(t, channel.sent)
}

type brokenRepository struct {
	repository.TicketRepository
}

func (brokenRepository) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, errors.New("connection refused")
}

func TestScanOnceReportsListFailure(t *testing.T) {
	scanner := newScanner(brokenRepository{}, &recordingChannel{}, ScannerConfig{})
	_, err := scanner.ScanOnce(context.Background(), t0)
	assert.ErrorContains(t, err, "scan active tickets")
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) NotifyOnce(context.Context, *domain.Ticket, sla.ComplianceResult, time.Time) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return true, nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func TestRunScansOnEveryTickUntilCancelled(t *testing.T) {
	repo := repository.NewMemoryTicketRepository(nil)
	store(t, repo, highTicket("t-1", domain.TicketStatusOpen, t0.Add(-2*time.Hour)))

	notifier := &countingNotifier{}
	manual := clock.NewManualClock(t0)
	scanner := NewBreachScanner(repo, notifier, manual, ScannerConfig{Interval: time.Minute}, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scanner.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return notifier.count() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		manual.Advance(time.Minute)
		return notifier.count() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}

func ptr(ts time.Time) *time.Time { return &ts }
