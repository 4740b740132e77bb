package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(
		Policy{Priority: domain.TicketPriorityHigh, ResponseBudget: time.Hour, ResolutionBudget: 4 * time.Hour},
		Policy{Priority: domain.TicketPriorityMedium, ResponseBudget: 4 * time.Hour, ResolutionBudget: 24 * time.Hour},
		Policy{Priority: domain.TicketPriorityLow, ResponseBudget: 24 * time.Hour, ResolutionBudget: 72 * time.Hour},
	)
	require.NoError(t, err)
	return registry
}

func newTicket(t *testing.T, registry *Registry, priority domain.TicketPriority, createdAt time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{ID: "t-1", Priority: priority, Status: domain.TicketStatusOpen, CreatedAt: createdAt}
	d, err := ComputeDeadlines(registry, createdAt, priority)
	require.NoError(t, err)
	ApplyDeadlines(ticket, d)
	return ticket
}

func TestNewRegistryValidation(t *testing.T) {
	high := Policy{Priority: domain.TicketPriorityHigh, ResponseBudget: time.Hour, ResolutionBudget: 4 * time.Hour}
	medium := Policy{Priority: domain.TicketPriorityMedium, ResponseBudget: time.Hour, ResolutionBudget: 8 * time.Hour}
	low := Policy{Priority: domain.TicketPriorityLow, ResponseBudget: time.Hour, ResolutionBudget: 16 * time.Hour}

	tests := []struct {
		name     string
		policies []Policy
		wantErr  string
	}{
		{name: "complete", policies: []Policy{high, medium, low}},
		{name: "missing tier", policies: []Policy{high, medium}, wantErr: "missing policy for LOW"},
		{name: "duplicate tier", policies: []Policy{high, high, medium, low}, wantErr: "duplicate policy for HIGH"},
		{
			name:     "response after resolution",
			policies: []Policy{{Priority: domain.TicketPriorityHigh, ResponseBudget: 5 * time.Hour, ResolutionBudget: 4 * time.Hour}, medium, low},
			wantErr:  "exceeds resolution budget",
		},
		{
			name:     "zero budget",
			policies: []Policy{{Priority: domain.TicketPriorityHigh, ResolutionBudget: 4 * time.Hour}, medium, low},
			wantErr:  "budgets must be positive",
		},
		{
			name:     "unknown tier",
			policies: []Policy{{Priority: "URGENT", ResponseBudget: time.Hour, ResolutionBudget: time.Hour}, high, medium, low},
			wantErr:  "unknown priority",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.policies...)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPolicyForUnknownPriority(t *testing.T) {
	registry := testRegistry(t)

	_, err := registry.PolicyFor("URGENT")
	require.ErrorIs(t, err, ErrUnknownPriority)

	_, err = ComputeDeadlines(registry, t0, "")
	require.ErrorIs(t, err, ErrUnknownPriority)
}

func TestPoliciesOrderedByUrgency(t *testing.T) {
	policies := testRegistry(t).Policies()
	require.Len(t, policies, 3)
	assert.Equal(t, domain.TicketPriorityHigh, policies[0].Priority)
	assert.Equal(t, domain.TicketPriorityMedium, policies[1].Priority)
	assert.Equal(t, domain.TicketPriorityLow, policies[2].Priority)
}

func TestComputeDeadlinesAddsBudgets(t *testing.T) {
	registry := testRegistry(t)
	instants := []time.Time{
		t0,
		time.Date(2024, 3, 10, 1, 59, 59, 999999999, time.UTC),
		time.Date(2024, 3, 10, 1, 30, 0, 0, time.FixedZone("PST", -8*3600)),
	}
	for _, priority := range domain.TicketPriorities() {
		policy, err := registry.PolicyFor(priority)
		require.NoError(t, err)
		for _, createdAt := range instants {
			d, err := ComputeDeadlines(registry, createdAt, priority)
			require.NoError(t, err)
			assert.Equal(t, policy.ResponseBudget, d.Response.Sub(createdAt))
			assert.Equal(t, policy.ResolutionBudget, d.Resolution.Sub(createdAt))
			assert.Equal(t, time.UTC, d.Response.Location())
			assert.False(t, d.Response.After(d.Resolution))
		}
	}
}

func TestComputeDeadlinesScenarioA(t *testing.T) {
	d, err := ComputeDeadlines(testRegistry(t), t0, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.True(t, d.Response.Equal(time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)))
	assert.True(t, d.Resolution.Equal(time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC)))
}

func TestEvaluate(t *testing.T) {
	deadline := t0.Add(time.Hour)
	at := func(d time.Duration) *time.Time {
		ts := deadline.Add(d)
		return &ts
	}

	tests := []struct {
		name       string
		checkpoint *time.Time
		now        time.Time
		state      State
		remaining  time.Duration
		occurred   bool
	}{
		{name: "recorded early", checkpoint: at(-time.Minute), now: deadline.Add(time.Hour), state: StateMet, remaining: time.Minute, occurred: true},
		{name: "recorded on deadline", checkpoint: at(0), now: deadline, state: StateMet, remaining: 0, occurred: true},
		{name: "recorded late", checkpoint: at(time.Second), now: deadline, state: StateBreached, remaining: -time.Second, occurred: true},
		{name: "recorded one nanosecond late", checkpoint: at(time.Nanosecond), now: t0, state: StateBreached, remaining: -time.Nanosecond, occurred: true},
		{name: "pending before deadline", now: deadline.Add(-time.Minute), state: StatePending, remaining: time.Minute},
		{name: "pending on deadline", now: deadline, state: StatePending, remaining: 0},
		{name: "pending past deadline", now: deadline.Add(time.Hour), state: StateBreached, remaining: -time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(CheckpointResponse, deadline, tc.checkpoint, tc.now)
			assert.Equal(t, tc.state, result.State)
			assert.Equal(t, tc.remaining, result.Remaining)
			assert.Equal(t, tc.occurred, result.Occurred)
			assert.Equal(t, deadline, result.Deadline)
		})
	}
}

func TestRecordedOutcomeIgnoresNow(t *testing.T) {
	deadline := t0.Add(time.Hour)
	checkpoint := t0.Add(30 * time.Minute)
	for _, now := range []time.Time{t0, deadline, deadline.Add(24 * time.Hour)} {
		result := Evaluate(CheckpointResolution, deadline, &checkpoint, now)
		assert.Equal(t, StateMet, result.State)
		assert.Equal(t, 30*time.Minute, result.Remaining)
	}
}

func TestOverdue(t *testing.T) {
	deadline := t0.Add(4 * time.Hour)
	breached := Evaluate(CheckpointResolution, deadline, nil, t0.Add(5*time.Hour))
	assert.Equal(t, time.Hour, breached.Overdue())

	pending := Evaluate(CheckpointResolution, deadline, nil, t0)
	assert.Zero(t, pending.Overdue())
}

func TestFirstResponseScenarios(t *testing.T) {
	registry := testRegistry(t)

	t.Run("B met with a minute to spare", func(t *testing.T) {
		ticket := newTicket(t, registry, domain.TicketPriorityHigh, t0)
		require.NoError(t, RecordFirstResponse(ticket, time.Date(2025, 1, 1, 0, 59, 0, 0, time.UTC)))

		status := CurrentStatus(ticket, t0.Add(10*time.Hour))
		assert.Equal(t, StateMet, status.Response.State)
		assert.Equal(t, 60*time.Second, status.Response.Remaining)
	})

	t.Run("C breached by one second", func(t *testing.T) {
		ticket := newTicket(t, registry, domain.TicketPriorityHigh, t0)
		require.NoError(t, RecordFirstResponse(ticket, time.Date(2025, 1, 1, 1, 0, 1, 0, time.UTC)))

		status := CurrentStatus(ticket, t0.Add(time.Hour))
		assert.Equal(t, StateBreached, status.Response.State)
		assert.Equal(t, -time.Second, status.Response.Remaining)
	})
}

func TestUnresolvedTicketBreachesResolution(t *testing.T) {
	ticket := newTicket(t, testRegistry(t), domain.TicketPriorityHigh, t0)

	status := CurrentStatus(ticket, time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, StateBreached, status.Resolution.State)
	assert.Equal(t, -time.Hour, status.Resolution.Remaining)
	assert.False(t, status.Resolution.Occurred)
}

func TestRecordIsFinal(t *testing.T) {
	registry := testRegistry(t)
	for _, kind := range Checkpoints() {
		t.Run(string(kind), func(t *testing.T) {
			ticket := newTicket(t, registry, domain.TicketPriorityMedium, t0)
			first := t0.Add(10 * time.Minute)
			require.NoError(t, Record(ticket, kind, first))

			for _, again := range []time.Time{first, t0.Add(time.Minute), t0.Add(48 * time.Hour)} {
				err := Record(ticket, kind, again)
				require.ErrorIs(t, err, ErrAlreadyRecorded)
			}
			status := CurrentStatus(ticket, t0)
			for _, r := range status.Results() {
				if r.Checkpoint == kind {
					assert.True(t, r.Occurred)
				}
			}
			if kind == CheckpointResponse {
				assert.True(t, ticket.FirstRespondedAt.Equal(first))
			} else {
				assert.True(t, ticket.ResolvedAt.Equal(first))
			}
		})
	}
}

func TestRecordBeforeCreationIsRejected(t *testing.T) {
	registry := testRegistry(t)
	ticket := newTicket(t, registry, domain.TicketPriorityLow, t0)
	before := *ticket

	err := RecordResolution(ticket, t0.Add(-time.Nanosecond))
	require.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Equal(t, before, *ticket)

	err = RecordFirstResponse(ticket, t0.Add(-time.Hour))
	require.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Nil(t, ticket.FirstRespondedAt)

	require.NoError(t, RecordResolution(ticket, t0), "recording at creation instant is allowed")
}

func TestCheckpointsAreIndependent(t *testing.T) {
	ticket := newTicket(t, testRegistry(t), domain.TicketPriorityHigh, t0)

	require.NoError(t, RecordResolution(ticket, t0.Add(2*time.Hour)))
	assert.Nil(t, ticket.FirstRespondedAt)

	status := CurrentStatus(ticket, t0.Add(3*time.Hour))
	assert.Equal(t, StateMet, status.Resolution.State)
	assert.Equal(t, StateBreached, status.Response.State)
}

func TestRecordStoresUTC(t *testing.T) {
	ticket := newTicket(t, testRegistry(t), domain.TicketPriorityHigh, t0)
	local := t0.Add(30 * time.Minute).In(time.FixedZone("CET", 3600))

	require.NoError(t, RecordFirstResponse(ticket, local))
	assert.Equal(t, time.UTC, ticket.FirstRespondedAt.Location())
	assert.True(t, ticket.FirstRespondedAt.Equal(local))
}

func TestBuildReport(t *testing.T) {
	registry := testRegistry(t)
	now := t0.Add(6 * time.Hour)

	met := newTicket(t, registry, domain.TicketPriorityHigh, t0)
	require.NoError(t, RecordFirstResponse(met, t0.Add(30*time.Minute)))
	require.NoError(t, RecordResolution(met, t0.Add(3*time.Hour)))

	late := newTicket(t, registry, domain.TicketPriorityHigh, t0)
	require.NoError(t, RecordFirstResponse(late, t0.Add(90*time.Minute)))

	pending := newTicket(t, registry, domain.TicketPriorityLow, t0)

	report := BuildReport([]domain.Ticket{*met, *late, *pending}, now)
	require.Len(t, report.Checkpoints, 2)
	assert.Equal(t, 3, report.TotalTickets)
	assert.Equal(t, now, report.GeneratedAt)

	response := report.Checkpoints[0]
	assert.Equal(t, CheckpointResponse, response.Checkpoint)
	assert.Equal(t, 1, response.Met)
	assert.Equal(t, 1, response.Breached)
	assert.Equal(t, 1, response.Pending)
	assert.InDelta(t, 50.0, response.CompliancePercent, 0.001)
	assert.Equal(t, 30*time.Minute, response.WorstOverdue)

	resolution := report.Checkpoints[1]
	assert.Equal(t, 1, resolution.Met)
	assert.Equal(t, 1, resolution.Breached)
	assert.Equal(t, 1, resolution.Pending)
	assert.Equal(t, 2*time.Hour, resolution.WorstOverdue)
}

func TestBuildReportWithNothingDecided(t *testing.T) {
	report := BuildReport(nil, t0)
	for _, cp := range report.Checkpoints {
		assert.Equal(t, 100.0, cp.CompliancePercent)
	}
}
