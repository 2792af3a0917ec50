package service

import (
	"fmt"
	"time"

	"github.com/smartcity/intersection/internal/domain"
)

// Transition describes a rule that fired during a tick
type Transition struct {
	Rule string
	From domain.PhaseState
	To   domain.PhaseState
	At   time.Time
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s(%s) -> %s(%s) green=%s",
		t.Rule, t.From.Kind, t.From.ActiveApproach, t.To.Kind, t.To.ActiveApproach, t.To.GreenDuration)
}

// Snapshot is an immutable copy of a scheduler's state and cached counts
type Snapshot struct {
	State    domain.PhaseState
	Counts   domain.SensorSample
	CountsAt time.Time
}

// Scheduler owns the signal phase state machine of one intersection.
// It is not safe for concurrent use; TrafficController serializes access.
type Scheduler struct {
	plan     domain.TimingPlan
	state    domain.PhaseState
	counts   domain.SensorSample
	countsAt time.Time
	rules    []phaseRule
}

// NewScheduler starts an intersection in GREEN(A) at now
func NewScheduler(plan domain.TimingPlan, now time.Time) (*Scheduler, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	s := &Scheduler{
		plan:  plan,
		rules: phaseRules,
		state: domain.PhaseState{
			ActiveApproach: domain.ApproachA,
			Kind:           domain.PhaseGreen,
			PhaseStart:     now,
			GreenDuration:  plan.BaseGreen,
			YellowDuration: plan.YellowDuration,
		},
	}
	s.recompute(now)
	return s, nil
}

// Tick applies one sensor sample at now. The sample's counts replace the
// cached counts before rules run, so demand scaling sees them. At most one
// rule fires.
func (s *Scheduler) Tick(sample domain.SensorSample, now time.Time) (Transition, bool) {
	s.counts = sample
	s.countsAt = now

	var (
		tr    Transition
		fired bool
	)
	for _, r := range s.rules {
		if !r.guard(s, sample, now) {
			continue
		}
		from := s.state
		r.apply(s, sample, now)
		tr = Transition{Rule: r.name, From: from, To: s.state, At: now}
		fired = true
		break
	}

	s.recompute(now)
	if fired {
		tr.To.Remaining = s.state.Remaining
	}
	return tr, fired
}

// Idle records a tick without a sample: no rule fires, only the remaining
// time moves.
func (s *Scheduler) Idle(now time.Time) {
	s.recompute(now)
}

func (s *Scheduler) recompute(now time.Time) {
	s.state.Remaining = s.state.PhaseDuration() - s.state.Elapsed(now)
}

// Snapshot copies the current state
func (s *Scheduler) Snapshot() Snapshot {
	return Snapshot{State: s.state, Counts: s.counts, CountsAt: s.countsAt}
}

// Plan returns the timing plan in effect
func (s *Scheduler) Plan() domain.TimingPlan {
	return s.plan
}
