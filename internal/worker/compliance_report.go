package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/clock"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// ReportSource builds a compliance report at a given instant.
type ReportSource interface {
	ComplianceReport(ctx context.Context, now time.Time) (sla.Report, error)
}

// ComplianceReporter publishes the compliance report on a cron schedule.
type ComplianceReporter struct {
	source   ReportSource
	clock    clock.Clock
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewComplianceReporter validates schedule and prepares the cron runner.
func NewComplianceReporter(source ReportSource, c clock.Clock, schedule string, logger *zap.Logger, metrics *observability.Metrics) (*ComplianceReporter, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceReporter{
		source:   source,
		clock:    c,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Start schedules the job. Runs use ctx and end when it is cancelled.
func (r *ComplianceReporter) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("compliance report failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule compliance report: %w", err)
	}
	r.cron.Start()
	r.logger.Info("compliance report scheduled", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the schedule and waits for a running job.
func (r *ComplianceReporter) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce builds the report now, logs it and exports it as gauges.
func (r *ComplianceReporter) RunOnce(ctx context.Context) (sla.Report, error) {
	report, err := r.source.ComplianceReport(ctx, r.clock.Now())
	if err != nil {
		r.metrics.RecordScanFailure("report")
		return sla.Report{}, err
	}
	for _, cp := range report.Checkpoints {
		r.metrics.RecordCompliance(string(cp.Checkpoint), cp.CompliancePercent, cp.Met, cp.Breached, cp.Pending)
		r.logger.Info("sla compliance",
			zap.String("checkpoint", string(cp.Checkpoint)),
			zap.Int("met", cp.Met),
			zap.Int("breached", cp.Breached),
			zap.Int("pending", cp.Pending),
			zap.Float64("compliance_percent", cp.CompliancePercent),
			zap.Duration("worst_overdue", cp.WorstOverdue))
	}
	return report, nil
}
