package service

import (
	"time"

	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/pkg/utils"
)

// Rule names, in evaluation order
const (
	RulePreemption  = "emergency_preemption"
	RuleGreenYellow = "green_to_yellow"
	RuleYellowGreen = "yellow_to_green"
)

// phaseRule is one guarded transition of the signal state machine.
// guard must not mutate; apply runs only when guard holds.
type phaseRule struct {
	name  string
	guard func(s *Scheduler, sample domain.SensorSample, now time.Time) bool
	apply func(s *Scheduler, sample domain.SensorSample, now time.Time)
}

// phaseRules is evaluated top to bottom once per tick; the first rule whose
// guard holds fires and evaluation stops. Preemption is first so no timed
// transition can delay it.
var phaseRules = []phaseRule{
	{
		name: RulePreemption,
		guard: func(_ *Scheduler, sample domain.SensorSample, _ time.Time) bool {
			_, ok := sample.Emergency()
			return ok
		},
		apply: func(s *Scheduler, sample domain.SensorSample, now time.Time) {
			approach, _ := sample.Emergency()
			s.state.ActiveApproach = approach
			s.state.Kind = domain.PhaseGreen
			s.state.GreenDuration = s.plan.EmergencyGreen
			s.state.PhaseStart = now
		},
	},
	{
		name: RuleGreenYellow,
		guard: func(s *Scheduler, _ domain.SensorSample, now time.Time) bool {
			return s.state.Kind == domain.PhaseGreen && s.state.Elapsed(now) >= s.state.GreenDuration
		},
		apply: func(s *Scheduler, _ domain.SensorSample, now time.Time) {
			s.state.Kind = domain.PhaseYellow
			s.state.PhaseStart = now
		},
	},
	{
		name: RuleYellowGreen,
		guard: func(s *Scheduler, _ domain.SensorSample, now time.Time) bool {
			return s.state.Kind == domain.PhaseYellow && s.state.Elapsed(now) >= s.state.YellowDuration
		},
		apply: func(s *Scheduler, _ domain.SensorSample, now time.Time) {
			outgoing := s.state.ActiveApproach
			incoming := outgoing.Other()
			demand := s.counts.Count(outgoing)
			if s.plan.DemandBasis == domain.DemandIncoming {
				demand = s.counts.Count(incoming)
			}
			s.state.ActiveApproach = incoming
			s.state.Kind = domain.PhaseGreen
			s.state.GreenDuration = DemandGreen(s.plan, demand)
			s.state.PhaseStart = now
		},
	},
}

// DemandGreen sizes a green phase from a queue count:
// MinGreen plus one second per two vehicles, capped at MaxGreen.
func DemandGreen(plan domain.TimingPlan, count int) time.Duration {
	if count < 0 {
		count = 0
	}
	return utils.ClampDuration(plan.MinGreen+time.Duration(count/2)*time.Second, plan.MinGreen, plan.MaxGreen)
}
