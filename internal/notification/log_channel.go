package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel writes breaches to the structured log.
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel builds a log-only channel.
func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Notify(_ context.Context, breach Breach) error {
	c.logger.Warn("sla breached",
		zap.String("ticket_id", breach.TicketID),
		zap.String("external_key", breach.ExternalKey),
		zap.String("checkpoint", string(breach.Checkpoint)),
		zap.Time("breached_at", breach.BreachedAt),
		zap.Duration("overdue_by", breach.OverdueBy))
	return nil
}
