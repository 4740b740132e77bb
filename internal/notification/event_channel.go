package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/sla"
)

// EventChannel turns breaches into sla_breached events. Subscribers do the
// actual delivery and their errors come back through Publish.
type EventChannel struct {
	dispatcher events.Dispatcher
}

// NewEventChannel builds a channel on top of a dispatcher.
func NewEventChannel(dispatcher events.Dispatcher) *EventChannel {
	return &EventChannel{dispatcher: dispatcher}
}

func (c *EventChannel) Notify(ctx context.Context, breach Breach) error {
	return c.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreached,
		TicketID:  breach.TicketID,
		Actor:     events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp: breach.DetectedAt,
		Payload: events.SLABreachedPayload{
			ExternalKey: breach.ExternalKey,
			Checkpoint:  string(breach.Checkpoint),
			BreachedAt:  breach.BreachedAt,
			OverdueBy:   breach.OverdueBy,
			DetectedAt:  breach.DetectedAt,
		},
	})
}

// BreachFromEvent rebuilds a Breach from an sla_breached event.
func BreachFromEvent(event events.Event) (Breach, bool) {
	payload, ok := event.Payload.(events.SLABreachedPayload)
	if !ok {
		return Breach{}, false
	}
	return Breach{
		TicketID:    event.TicketID,
		ExternalKey: payload.ExternalKey,
		Checkpoint:  sla.Checkpoint(payload.Checkpoint),
		BreachedAt:  payload.BreachedAt,
		OverdueBy:   payload.OverdueBy,
		DetectedAt:  payload.DetectedAt,
	}, true
}
