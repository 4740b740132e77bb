package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla/internal/clock"
	"github.com/spec-kit/ticket-sla/internal/domain"
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/notification"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/sla"
	"github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// maxWriteAttempts bounds re-reads after an optimistic version conflict.
// maxClockSkew is how far in the future a caller supplied checkpoint may lie.
// created_at gets no allowance: defaulted checkpoints use now and must not
// precede it.
const (
	maxWriteAttempts = 3
	maxClockSkew     = time.Minute
	defaultBatchSize = 200
)

// SLAService coordinates deadline tracking for tickets.
type SLAService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	registry   *sla.Registry
	clock      clock.Clock
	notifier   *notification.Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	batchSize  int
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Registry    *sla.Registry
	Clock       clock.Clock
	Notifier    *notification.Notifier
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	BatchSize   int
}

// TicketCreateInput describes ticket creation payload. CreatedAt is only set
// when importing tickets that were opened elsewhere.
type TicketCreateInput struct {
	Title     string
	Priority  domain.TicketPriority
	CreatedAt *time.Time
}

// TicketSLA is a ticket together with its compliance evaluated at EvaluatedAt.
type TicketSLA struct {
	Ticket      *domain.Ticket
	Status      sla.Status
	EvaluatedAt time.Time
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	c := deps.Clock
	if c == nil {
		c = clock.NewSystemClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SLAService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		registry:   deps.Registry,
		clock:      c,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// CreateTicket opens a ticket and stamps both deadlines from its priority.
func (s *SLAService) CreateTicket(ctx context.Context, staffID string, input TicketCreateInput) (*TicketSLA, error) {
	now := s.clock.Now()
	createdAt := now
	if input.CreatedAt != nil {
		if input.CreatedAt.After(now) {
			return nil, fmt.Errorf("created_at %s is after %s: %w",
				input.CreatedAt.UTC().Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), sla.ErrInvalidTimestamp)
		}
		createdAt = input.CreatedAt.UTC()
	}

	deadlines, err := sla.ComputeDeadlines(s.registry, createdAt, input.Priority)
	if err != nil {
		return nil, err
	}
	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		Title:       strings.TrimSpace(input.Title),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatedAt:   createdAt,
	}
	sla.ApplyDeadlines(ticket, deadlines)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFor(staffID),
		Payload: events.TicketCreatedPayload{
			Priority:           ticket.Priority,
			Title:              ticket.Title,
			ResponseDeadline:   ticket.ResponseDeadline,
			ResolutionDeadline: ticket.ResolutionDeadline,
		},
	})
	return s.view(ticket, now), nil
}

// GetTicketStatus returns the ticket and both checkpoints evaluated now.
func (s *SLAService) GetTicketStatus(ctx context.Context, ticketID string) (*TicketSLA, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.view(ticket, s.clock.Now()), nil
}

// RecordFirstResponse records the first staff response. A nil at means now.
func (s *SLAService) RecordFirstResponse(ctx context.Context, staffID, ticketID string, at *time.Time) (*TicketSLA, error) {
	return s.recordCheckpoint(ctx, staffID, ticketID, sla.CheckpointResponse, at)
}

// RecordResolution records the resolution instant. A nil at means now.
func (s *SLAService) RecordResolution(ctx context.Context, staffID, ticketID string, at *time.Time) (*TicketSLA, error) {
	return s.recordCheckpoint(ctx, staffID, ticketID, sla.CheckpointResolution, at)
}

func (s *SLAService) recordCheckpoint(ctx context.Context, staffID, ticketID string, kind sla.Checkpoint, at *time.Time) (*TicketSLA, error) {
	now := s.clock.Now()
	occurred := now
	if at != nil {
		if err := checkNotFuture(strings.ToLower(string(kind)), *at, now); err != nil {
			return nil, err
		}
		occurred = at.UTC()
	}

	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		return sla.Record(t, kind, occurred)
	})
	if err != nil {
		return nil, err
	}
	view := s.view(ticket, now)
	s.afterCheckpoint(ctx, staffID, ticket, resultFor(view.Status, kind), now)
	return view, nil
}

// UpdateStatus moves a ticket through the status workflow. Entering RESOLVED
// records the resolution checkpoint unless it is already set.
func (s *SLAService) UpdateStatus(ctx context.Context, staffID, ticketID string, newStatus domain.TicketStatus, comment string) (*TicketSLA, error) {
	if !newStatus.Valid() {
		return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	now := s.clock.Now()

	var (
		oldStatus domain.TicketStatus
		resolved  bool
	)
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldStatus = t.Status
		resolved = false
		if !isValidTransition(t.Status, newStatus) {
			return errorutil.NewConflict("invalid status transition", map[string]any{
				"from": t.Status,
				"to":   newStatus,
			})
		}
		if newStatus == domain.TicketStatusResolved && t.ResolvedAt == nil {
			if err := sla.RecordResolution(t, now); err != nil {
				return err
			}
			resolved = true
		}
		if newStatus == domain.TicketStatusClosed {
			closedAt := now
			t.ClosedAt = &closedAt
		} else {
			t.ClosedAt = nil
		}
		t.Status = newStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.recordStatusChange(ctx, staffID, ticket.ID, oldStatus, newStatus, comment); err != nil {
		s.logger.Warn("record status history failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorFor(staffID),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})

	view := s.view(ticket, now)
	if resolved {
		s.afterCheckpoint(ctx, staffID, ticket, view.Status.Resolution, now)
	}
	return view, nil
}

// UpdatePriority changes the priority. Deadlines stay as they are unless
// recompute is set, in which case RecomputeDeadlines semantics apply.
func (s *SLAService) UpdatePriority(ctx context.Context, staffID, ticketID string, newPriority domain.TicketPriority, recompute bool) (*TicketSLA, error) {
	if _, err := s.registry.PolicyFor(newPriority); err != nil {
		return nil, err
	}

	var (
		oldPriority domain.TicketPriority
		before      sla.Deadlines
		recomputed  bool
	)
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		oldPriority = t.Priority
		before = deadlinesOf(t)
		recomputed = false
		t.Priority = newPriority
		if !recompute {
			return nil
		}
		err := s.recomputeDeadlines(t)
		switch {
		case err == nil:
			recomputed = true
		case errors.Is(err, sla.ErrAlreadyRecorded):
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.recordPriorityChange(ctx, staffID, ticket.ID, oldPriority, newPriority); err != nil {
		s.logger.Warn("record priority history failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actorFor(staffID),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority:         oldPriority,
			NewPriority:         newPriority,
			DeadlinesRecomputed: recomputed,
		},
	})
	if recomputed {
		s.afterRecompute(ctx, staffID, ticket, before)
	}
	return s.view(ticket, s.clock.Now()), nil
}

// RecomputeDeadlines re-derives pending deadlines from CreatedAt and the
// current priority. Recorded checkpoints keep their deadline; when both are
// recorded the call fails with sla.ErrAlreadyRecorded.
func (s *SLAService) RecomputeDeadlines(ctx context.Context, staffID, ticketID string) (*TicketSLA, error) {
	var before sla.Deadlines
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		before = deadlinesOf(t)
		return s.recomputeDeadlines(t)
	})
	if err != nil {
		return nil, err
	}
	s.afterRecompute(ctx, staffID, ticket, before)
	return s.view(ticket, s.clock.Now()), nil
}

// Now is the service clock reading.
func (s *SLAService) Now() time.Time {
	return s.clock.Now()
}

// Policies returns the active policy table ordered by tier.
func (s *SLAService) Policies() []sla.Policy {
	return s.registry.Policies()
}

// ComplianceReport aggregates compliance over every stored ticket at now.
func (s *SLAService) ComplianceReport(ctx context.Context, now time.Time) (sla.Report, error) {
	var tickets []domain.Ticket
	err := repository.ForEachTicket(ctx, s.tickets, repository.TicketFilter{}, s.batchSize, func(t *domain.Ticket) error {
		tickets = append(tickets, *t)
		return nil
	})
	if err != nil {
		return sla.Report{}, fmt.Errorf("list tickets: %w", err)
	}
	return sla.BuildReport(tickets, now), nil
}

// ListHistory returns audit entries for a ticket.
func (s *SLAService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

// mutate applies fn to a fresh copy of the ticket and writes it back. A version
// conflict re-reads the ticket and runs fn again, so fn sees the winner's write.
func (s *SLAService) mutate(ctx context.Context, ticketID string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 1; ; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if err := fn(ticket); err != nil {
			return nil, err
		}
		err = s.tickets.Update(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt >= maxWriteAttempts {
			return nil, err
		}
		s.logger.Debug("ticket version conflict, retrying",
			zap.String("ticket_id", ticketID),
			zap.Int("attempt", attempt))
	}
}

func (s *SLAService) recomputeDeadlines(t *domain.Ticket) error {
	if t.FirstRespondedAt != nil && t.ResolvedAt != nil {
		return fmt.Errorf("ticket %s deadlines: %w", t.ID, sla.ErrAlreadyRecorded)
	}
	deadlines, err := sla.ComputeDeadlines(s.registry, t.CreatedAt, t.Priority)
	if err != nil {
		return err
	}
	if t.FirstRespondedAt == nil {
		t.ResponseDeadline = deadlines.Response
	}
	if t.ResolvedAt == nil {
		t.ResolutionDeadline = deadlines.Resolution
	}
	return nil
}

func (s *SLAService) afterRecompute(ctx context.Context, staffID string, ticket *domain.Ticket, before sla.Deadlines) {
	after := deadlinesOf(ticket)
	if err := s.recordHistory(ctx, staffID, ticket.ID, domain.ChangeTypeDeadlines,
		map[string]any{"response_deadline": before.Response, "resolution_deadline": before.Resolution},
		map[string]any{"response_deadline": after.Response, "resolution_deadline": after.Resolution, "priority": ticket.Priority},
	); err != nil {
		s.logger.Warn("record deadline history failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventDeadlinesRecomputed,
		TicketID: ticket.ID,
		Actor:    actorFor(staffID),
		Payload: events.DeadlinesRecomputedPayload{
			Priority:              ticket.Priority,
			OldResponseDeadline:   before.Response,
			NewResponseDeadline:   after.Response,
			OldResolutionDeadline: before.Resolution,
			NewResolutionDeadline: after.Resolution,
		},
	})
}

// afterCheckpoint audits a recorded checkpoint and signals it at once when it
// was recorded late. Delivery failures are left to the breach scanner.
func (s *SLAService) afterCheckpoint(ctx context.Context, staffID string, ticket *domain.Ticket, result sla.ComplianceResult, now time.Time) {
	eventType := events.EventFirstResponseRecorded
	changeType := domain.ChangeTypeFirstResponse
	at := ticket.FirstRespondedAt
	if result.Checkpoint == sla.CheckpointResolution {
		eventType = events.EventResolutionRecorded
		changeType = domain.ChangeTypeResolution
		at = ticket.ResolvedAt
	}

	if err := s.recordHistory(ctx, staffID, ticket.ID, changeType, nil, map[string]any{
		"at":       *at,
		"deadline": result.Deadline,
		"state":    result.State,
	}); err != nil {
		s.logger.Warn("record checkpoint history failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: ticket.ID,
		Actor:    actorFor(staffID),
		Payload: events.CheckpointRecordedPayload{
			Checkpoint: string(result.Checkpoint),
			At:         *at,
			Deadline:   result.Deadline,
			State:      string(result.State),
			Remaining:  result.Remaining,
		},
	})

	if s.notifier == nil || result.State != sla.StateBreached {
		return
	}
	if _, err := s.notifier.NotifyOnce(ctx, ticket, result, now); err != nil {
		s.logger.Warn("immediate breach notification failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("checkpoint", string(result.Checkpoint)),
			zap.Error(err))
	}
}

func (s *SLAService) view(ticket *domain.Ticket, now time.Time) *TicketSLA {
	return &TicketSLA{Ticket: ticket, Status: sla.CurrentStatus(ticket, now), EvaluatedAt: now}
}

func (s *SLAService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (s *SLAService) recordStatusChange(ctx context.Context, staffID, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string) error {
	return s.recordHistory(ctx, staffID, ticketID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "comment": comment})
}

func (s *SLAService) recordPriorityChange(ctx context.Context, staffID, ticketID string, oldPriority, newPriority domain.TicketPriority) error {
	return s.recordHistory(ctx, staffID, ticketID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority})
}

func (s *SLAService) recordHistory(ctx context.Context, staffID, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	actor := actorFor(staffID)
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actor.Type,
		ChangedByID:   actor.StaffID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	return s.history.Create(ctx, entry)
}

func resultFor(status sla.Status, kind sla.Checkpoint) sla.ComplianceResult {
	if kind == sla.CheckpointResolution {
		return status.Resolution
	}
	return status.Response
}

func deadlinesOf(t *domain.Ticket) sla.Deadlines {
	return sla.Deadlines{Response: t.ResponseDeadline, Resolution: t.ResolutionDeadline}
}

func checkNotFuture(field string, at, now time.Time) error {
	if at.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("%s %s is in the future: %w", field, at.UTC().Format(time.RFC3339Nano), sla.ErrInvalidTimestamp)
	}
	return nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorFor(staffID string) events.Actor {
	if staffID == "" {
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
	return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:        {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress:  {domain.TicketStatusPendingUser, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusPendingUser: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:    {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:      {},
	domain.TicketStatusCancelled:   {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
