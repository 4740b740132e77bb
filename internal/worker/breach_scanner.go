package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/clock"
	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// BreachNotifier signals a breached checkpoint at most once.
type BreachNotifier interface {
	NotifyOnce(ctx context.Context, t *domain.Ticket, result sla.ComplianceResult, now time.Time) (bool, error)
}

// ScannerConfig tunes the breach scanner.
type ScannerConfig struct {
	Interval  time.Duration
	BatchSize int
	// TerminalLookback is how far back, by last update, terminal tickets are
	// rescanned for checkpoints that were recorded late. Zero disables it.
	TerminalLookback time.Duration
}

// ScanResult summarises one pass.
type ScanResult struct {
	Scanned  int
	Breached int
	Notified int
	Failed   int
}

// BreachScanner periodically evaluates tickets and signals new breaches.
type BreachScanner struct {
	tickets  repository.TicketRepository
	notifier BreachNotifier
	clock    clock.Clock
	cfg      ScannerConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewBreachScanner wires the scanner.
func NewBreachScanner(tickets repository.TicketRepository, notifier BreachNotifier, c clock.Clock, cfg ScannerConfig, logger *zap.Logger, metrics *observability.Metrics) *BreachScanner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreachScanner{
		tickets:  tickets,
		notifier: notifier,
		clock:    c,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run scans once immediately, then on every tick until ctx is cancelled.
func (s *BreachScanner) Run(ctx context.Context) {
	s.tick(ctx, s.clock.Now())
	stop := s.clock.TickPeriodically(s.cfg.Interval, func(now time.Time) {
		s.tick(ctx, now)
	})
	defer stop()
	<-ctx.Done()
	s.logger.Info("breach scanner stopped")
}

func (s *BreachScanner) tick(ctx context.Context, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.ScanOnce(ctx, now)
	if err != nil {
		s.logger.Error("breach scan failed", zap.Error(err))
		return
	}
	if result.Notified > 0 || result.Failed > 0 {
		s.logger.Info("breach scan finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("breached", result.Breached),
			zap.Int("notified", result.Notified),
			zap.Int("failed", result.Failed))
	}
}

// ScanOnce evaluates active tickets against now, then terminal tickets updated
// within the lookback. A failure on one ticket is logged and counted without
// stopping the pass; it is retried on the next one.
func (s *BreachScanner) ScanOnce(ctx context.Context, now time.Time) (ScanResult, error) {
	started := time.Now()
	var result ScanResult

	active := repository.TicketFilter{Statuses: domain.ActiveStatuses()}
	err := repository.ForEachTicket(ctx, s.tickets, active, s.cfg.BatchSize, func(t *domain.Ticket) error {
		s.scanTicket(ctx, t, now, false, &result)
		return nil
	})
	if err != nil {
		s.metrics.RecordScanFailure("list_active")
		return result, fmt.Errorf("scan active tickets: %w", err)
	}

	if s.cfg.TerminalLookback > 0 {
		from := now.Add(-s.cfg.TerminalLookback)
		terminal := repository.TicketFilter{Statuses: domain.TerminalStatuses(), UpdatedFrom: &from}
		err = repository.ForEachTicket(ctx, s.tickets, terminal, s.cfg.BatchSize, func(t *domain.Ticket) error {
			s.scanTicket(ctx, t, now, true, &result)
			return nil
		})
		if err != nil {
			s.metrics.RecordScanFailure("list_terminal")
			return result, fmt.Errorf("scan terminal tickets: %w", err)
		}
	}

	s.metrics.RecordScan(result.Scanned, time.Since(started))
	return result, nil
}

// scanTicket notifies every breached checkpoint of t. For terminal tickets only
// recorded checkpoints count; an unrecorded one stopped accruing time.
func (s *BreachScanner) scanTicket(ctx context.Context, t *domain.Ticket, now time.Time, terminal bool, result *ScanResult) {
	result.Scanned++
	for _, cr := range sla.CurrentStatus(t, now).Results() {
		if cr.State != sla.StateBreached || (terminal && !cr.Occurred) {
			continue
		}
		result.Breached++
		sent, err := s.notifier.NotifyOnce(ctx, t, cr, now)
		if err != nil {
			result.Failed++
			s.metrics.RecordScanFailure("notify")
			s.logger.Warn("breach notification failed",
				zap.String("ticket_id", t.ID),
				zap.String("checkpoint", string(cr.Checkpoint)),
				zap.Error(err))
			continue
		}
		if sent {
			result.Notified++
		}
	}
}
