package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// Notifier emits at most one notification per ticket checkpoint.
//
// The log is consulted before sending and written after a successful send, so a
// failed send or a failed mark is retried by the next caller: delivery is
// at-least-once, de-duplicated by the log.
type Notifier struct {
	log     repository.NotificationLog
	channel Channel
	logger  *zap.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewNotifier wires the notification log and the outbound channel.
func NewNotifier(log repository.NotificationLog, channel Channel, logger *zap.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{
		log:      log,
		channel:  channel,
		logger:   logger,
		metrics:  metrics,
		inflight: make(map[string]struct{}),
	}
}

// NotifyOnce signals result if it is a breach not signalled before. It reports
// whether a notification went out.
func (n *Notifier) NotifyOnce(ctx context.Context, t *domain.Ticket, result sla.ComplianceResult, now time.Time) (bool, error) {
	if result.State != sla.StateBreached {
		return false, nil
	}

	key := t.ID + ":" + string(result.Checkpoint)
	if !n.acquire(key) {
		return false, nil
	}
	defer n.release(key)

	notified, err := n.log.HasBeenNotified(ctx, t.ID, result.Checkpoint)
	if err != nil {
		return false, fmt.Errorf("notification log lookup: %w", err)
	}
	if notified {
		return false, nil
	}

	if err := n.channel.Notify(ctx, NewBreach(t, result, now)); err != nil {
		return false, fmt.Errorf("notify breach: %w", err)
	}
	n.metrics.RecordBreachNotified(string(result.Checkpoint))
	n.logger.Info("breach notification sent",
		zap.String("ticket_id", t.ID),
		zap.String("checkpoint", string(result.Checkpoint)),
		zap.Duration("overdue_by", result.Overdue()))

	if err := n.log.MarkNotified(ctx, t.ID, result.Checkpoint); err != nil {
		return true, fmt.Errorf("notification log mark: %w", err)
	}
	return true, nil
}

func (n *Notifier) acquire(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, busy := n.inflight[key]; busy {
		return false
	}
	n.inflight[key] = struct{}{}
	return true
}

func (n *Notifier) release(key string) {
	n.mu.Lock()
	delete(n.inflight, key)
	n.mu.Unlock()
}
