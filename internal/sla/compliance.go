package sla

import "time"

// Checkpoint identifies one of the two tracked milestones.
type Checkpoint string

const (
	CheckpointResponse   Checkpoint = "RESPONSE"
	CheckpointResolution Checkpoint = "RESOLUTION"
)

// Checkpoints lists both milestones in evaluation order.
func Checkpoints() []Checkpoint {
	return []Checkpoint{CheckpointResponse, CheckpointResolution}
}

// State classifies a checkpoint relative to its deadline.
type State string

const (
	StatePending  State = "PENDING"
	StateMet      State = "MET"
	StateBreached State = "BREACHED"
)

// ComplianceResult is a derived, never persisted evaluation.
//
// Remaining is signed: negative means overdue by that much. Occurred is true when
// the result was fixed by a recorded checkpoint rather than by the clock.
type ComplianceResult struct {
	Checkpoint Checkpoint
	Deadline   time.Time
	State      State
	Remaining  time.Duration
	Occurred   bool
}

// Overdue returns the breach magnitude, zero when not breached.
func (r ComplianceResult) Overdue() time.Duration {
	if r.State != StateBreached {
		return 0
	}
	return -r.Remaining
}

// Evaluate classifies a checkpoint against its deadline.
//
// A recorded checkpoint is compared with the deadline and the outcome is final; now
// is ignored. A pending checkpoint is compared with now. The deadline is inclusive
// in both cases.
func Evaluate(kind Checkpoint, deadline time.Time, checkpoint *time.Time, now time.Time) ComplianceResult {
	result := ComplianceResult{Checkpoint: kind, Deadline: deadline}
	if checkpoint != nil {
		result.Occurred = true
		result.Remaining = deadline.Sub(*checkpoint)
		if checkpoint.After(deadline) {
			result.State = StateBreached
		} else {
			result.State = StateMet
		}
		return result
	}

	result.Remaining = deadline.Sub(now)
	if now.After(deadline) {
		result.State = StateBreached
	} else {
		result.State = StatePending
	}
	return result
}
