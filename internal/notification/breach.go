package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// Breach is what the outside world learns about a missed checkpoint.
// BreachedAt is the deadline that was missed.
type Breach struct {
	TicketID    string
	ExternalKey string
	Checkpoint  sla.Checkpoint
	BreachedAt  time.Time
	OverdueBy   time.Duration
	DetectedAt  time.Time
}

// NewBreach builds the notification for a breached compliance result.
func NewBreach(t *domain.Ticket, result sla.ComplianceResult, detectedAt time.Time) Breach {
	return Breach{
		TicketID:    t.ID,
		ExternalKey: t.ExternalKey,
		Checkpoint:  result.Checkpoint,
		BreachedAt:  result.Deadline.UTC(),
		OverdueBy:   result.Overdue(),
		DetectedAt:  detectedAt.UTC(),
	}
}

type breachMessage struct {
	TicketID         string    `json:"ticket_id"`
	ExternalKey      string    `json:"external_key,omitempty"`
	Checkpoint       string    `json:"checkpoint"`
	BreachedAt       time.Time `json:"breached_at"`
	OverdueBySeconds float64   `json:"overdue_by_seconds"`
	DetectedAt       time.Time `json:"detected_at"`
}

// MarshalJSON renders the outbound wire shape shared by webhook and kafka.
func (b Breach) MarshalJSON() ([]byte, error) {
	return json.Marshal(breachMessage{
		TicketID:         b.TicketID,
		ExternalKey:      b.ExternalKey,
		Checkpoint:       string(b.Checkpoint),
		BreachedAt:       b.BreachedAt,
		OverdueBySeconds: b.OverdueBy.Seconds(),
		DetectedAt:       b.DetectedAt,
	})
}

// Channel delivers breach notifications. Implementations may fail; callers retry.
type Channel interface {
	Notify(ctx context.Context, breach Breach) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, breach Breach) error

func (f ChannelFunc) Notify(ctx context.Context, breach Breach) error {
	return f(ctx, breach)
}

// MultiChannel fans out to every channel and joins failures.
type MultiChannel []Channel

func (m MultiChannel) Notify(ctx context.Context, breach Breach) error {
	var errs []error
	for _, ch := range m {
		if err := ch.Notify(ctx, breach); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
