package worker

import (
	"context"

	"github.com/spec-kit/ticket-sla/internal/service"
)

// Workers bundles the background jobs of the service.
type Workers struct {
	Notifications *service.NotificationService
	Scanner       *BreachScanner
	Reporter      *ComplianceReporter
}

// Start registers notification handlers and schedules the report. Call it
// before serving traffic so no breach event is published without a subscriber.
func (w *Workers) Start(ctx context.Context) error {
	if w.Notifications != nil {
		w.Notifications.RegisterHandlers()
	}
	if w.Reporter != nil {
		return w.Reporter.Start(ctx)
	}
	return nil
}

// Run blocks in the breach scanner until ctx is cancelled, then stops the
// report schedule.
func (w *Workers) Run(ctx context.Context) error {
	if w.Reporter != nil {
		defer w.Reporter.Stop()
	}
	if w.Scanner == nil {
		<-ctx.Done()
		return nil
	}
	w.Scanner.Run(ctx)
	return nil
}
