package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/notification"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	outbound   notification.Channel
}

// NewNotificationService creates the service. outbound receives every breach
// published on the dispatcher.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, outbound notification.Channel) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		outbound:   outbound,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventFirstResponseRecorded, n.logEvent)
	n.dispatcher.Subscribe(events.EventResolutionRecorded, n.logEvent)
	n.dispatcher.Subscribe(events.EventDeadlinesRecomputed, n.logEvent)
}

// handleSLABreached returns the outbound error so the notifier leaves the
// breach unmarked and it is retried.
func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	breach, ok := notification.BreachFromEvent(event)
	if !ok {
		return fmt.Errorf("sla_breached event %s: unexpected payload %T", event.ID, event.Payload)
	}
	if n.outbound == nil {
		return nil
	}
	return n.outbound.Notify(ctx, breach)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Debug(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
