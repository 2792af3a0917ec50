package domain

import (
	"fmt"
	"strings"
	"time"
)

// Approach identifies one of the two traffic directions the controller arbitrates between
type Approach string

const (
	ApproachA Approach = "A"
	ApproachB Approach = "B"
)

// Other returns the opposite approach
func (a Approach) Other() Approach {
	if a == ApproachA {
		return ApproachB
	}
	return ApproachA
}

// ParseApproach accepts "A"/"B" in any case
func ParseApproach(s string) (Approach, error) {
	switch Approach(strings.ToUpper(strings.TrimSpace(s))) {
	case ApproachA:
		return ApproachA, nil
	case ApproachB:
		return ApproachB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidApproach, s)
}

// PhaseKind tells whether the intersection is serving green or clearing on yellow
type PhaseKind string

const (
	PhaseGreen  PhaseKind = "GREEN"
	PhaseYellow PhaseKind = "YELLOW"
)

// Signal colors reported to clients
const (
	SignalGreen  = "green"
	SignalYellow = "yellow"
	SignalRed    = "red"
)

// PhaseState is the authoritative signal state of one intersection.
// Remaining may go negative for a single tick before the next transition fires.
type PhaseState struct {
	ActiveApproach Approach      `json:"active_approach"`
	Kind           PhaseKind     `json:"phase"`
	PhaseStart     time.Time     `json:"phase_start"`
	GreenDuration  time.Duration `json:"green_duration"`
	YellowDuration time.Duration `json:"yellow_duration"`
	Remaining      time.Duration `json:"remaining"`
}

// PhaseDuration returns the length of the phase currently in effect
func (s PhaseState) PhaseDuration() time.Duration {
	if s.Kind == PhaseYellow {
		return s.YellowDuration
	}
	return s.GreenDuration
}

// Elapsed returns the time spent in the current phase at now
func (s PhaseState) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.PhaseStart)
}

// SensorSample is one tick's observation of both approaches
type SensorSample struct {
	CountA     int  `json:"count_a"`
	CountB     int  `json:"count_b"`
	AmbulanceA bool `json:"ambulance_a"`
	AmbulanceB bool `json:"ambulance_b"`
}

// Count returns the vehicle count observed for an approach
func (s SensorSample) Count(a Approach) int {
	if a == ApproachB {
		return s.CountB
	}
	return s.CountA
}

// Emergency reports which approach has an ambulance; A wins when both do
func (s SensorSample) Emergency() (Approach, bool) {
	switch {
	case s.AmbulanceA:
		return ApproachA, true
	case s.AmbulanceB:
		return ApproachB, true
	}
	return "", false
}

// Validate rejects negative counts
func (s SensorSample) Validate() error {
	if s.CountA < 0 || s.CountB < 0 {
		return fmt.Errorf("%w: counts must be non-negative", ErrInvalidSample)
	}
	return nil
}

// Detection is one object reported by the detection model for a frame
type Detection struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DemandBasis selects whose count sizes the next green phase
type DemandBasis string

const (
	// DemandOutgoing uses the last count of the approach that just held green
	DemandOutgoing DemandBasis = "outgoing"
	// DemandIncoming uses the last count of the approach about to receive green
	DemandIncoming DemandBasis = "incoming"
)

// TimingPlan holds the signal timing constants for one intersection
type TimingPlan struct {
	IntersectionID string        `json:"intersection_id" yaml:"intersection_id"`
	BaseGreen      time.Duration `json:"base_green" yaml:"base_green"`
	EmergencyGreen time.Duration `json:"emergency_green" yaml:"emergency_green"`
	YellowDuration time.Duration `json:"yellow_duration" yaml:"yellow_duration"`
	MinGreen       time.Duration `json:"min_green" yaml:"min_green"`
	MaxGreen       time.Duration `json:"max_green" yaml:"max_green"`
	DemandBasis    DemandBasis   `json:"demand_basis" yaml:"demand_basis"`
	Denylist       []string      `json:"denylist" yaml:"denylist"`
}

// DefaultTimingPlan returns the stock plan: 5s green, 10s emergency green,
// 2s yellow, demand-scaled green between 3s and 10s.
func DefaultTimingPlan(intersectionID string) TimingPlan {
	return TimingPlan{
		IntersectionID: intersectionID,
		BaseGreen:      5 * time.Second,
		EmergencyGreen: 10 * time.Second,
		YellowDuration: 2 * time.Second,
		MinGreen:       3 * time.Second,
		MaxGreen:       10 * time.Second,
		DemandBasis:    DemandOutgoing,
		Denylist:       []string{"plant", "tree", "flower", "pot"},
	}
}

// Validate checks plan invariants
func (p TimingPlan) Validate() error {
	if p.BaseGreen <= 0 || p.EmergencyGreen <= 0 || p.YellowDuration <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidTimingPlan)
	}
	if p.MinGreen <= 0 || p.MaxGreen < p.MinGreen {
		return fmt.Errorf("%w: min green %s, max green %s", ErrInvalidTimingPlan, p.MinGreen, p.MaxGreen)
	}
	switch p.DemandBasis {
	case DemandOutgoing, DemandIncoming:
	default:
		return fmt.Errorf("%w: unknown demand basis %q", ErrInvalidTimingPlan, p.DemandBasis)
	}
	return nil
}

// Status is the outward-facing view of a controller
type Status struct {
	Mode             string   `json:"mode"`
	Approach         Approach `json:"approach,omitempty"`
	Signal           string   `json:"signal"`
	Count            int      `json:"count"`
	RemainingSeconds int      `json:"remaining_seconds"`
	RunID            string   `json:"run_id,omitempty"`
	Running          bool     `json:"running"`
}
