package sla

import (
	"time"

	"github.com/spec-kit/ticket-sla/internal/domain"
)

// CheckpointMetrics counts outcomes for one checkpoint kind.
type CheckpointMetrics struct {
	Checkpoint        Checkpoint
	Met               int
	Breached          int
	Pending           int
	CompliancePercent float64
	WorstOverdue      time.Duration
}

// Report aggregates compliance over a set of tickets.
type Report struct {
	GeneratedAt  time.Time
	TotalTickets int
	Checkpoints  []CheckpointMetrics
}

// BuildReport evaluates every ticket against now. Compliance is Met over decided
// (Met + Breached) checkpoints; pending ones do not count. With nothing decided
// the percentage is 100.
func BuildReport(tickets []domain.Ticket, now time.Time) Report {
	response := CheckpointMetrics{Checkpoint: CheckpointResponse}
	resolution := CheckpointMetrics{Checkpoint: CheckpointResolution}

	for i := range tickets {
		status := CurrentStatus(&tickets[i], now)
		response.add(status.Response)
		resolution.add(status.Resolution)
	}
	response.finish()
	resolution.finish()

	return Report{
		GeneratedAt:  now.UTC(),
		TotalTickets: len(tickets),
		Checkpoints:  []CheckpointMetrics{response, resolution},
	}
}

func (m *CheckpointMetrics) add(r ComplianceResult) {
	switch r.State {
	case StateMet:
		m.Met++
	case StatePending:
		m.Pending++
	case StateBreached:
		m.Breached++
		if overdue := r.Overdue(); overdue > m.WorstOverdue {
			m.WorstOverdue = overdue
		}
	}
}

func (m *CheckpointMetrics) finish() {
	decided := m.Met + m.Breached
	if decided == 0 {
		m.CompliancePercent = 100
		return
	}
	m.CompliancePercent = float64(m.Met) * 100 / float64(decided)
}
