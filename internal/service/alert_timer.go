package service

import "github.com/smartcity/intersection/internal/domain"

// DefaultAlertCooldown is the hold time, in ticks, after the last positive observation
const DefaultAlertCooldown = 10

// AlertTimer is a latch-and-decay timer: it raises ALERT on the tick a
// condition is observed and holds it for cooldown ticks after the last one.
// Not safe for concurrent use.
type AlertTimer struct {
	cooldown int
	state    domain.AlertTimerState
}

// NewAlertTimer creates an idle timer; cooldown <= 0 selects the default.
func NewAlertTimer(cooldown int) *AlertTimer {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &AlertTimer{
		cooldown: cooldown,
		state:    domain.AlertTimerState{Signal: domain.SignalOK},
	}
}

// Update advances the timer by one tick and returns the new state
func (t *AlertTimer) Update(observed bool) domain.AlertTimerState {
	if t.state.RemainingCooldown > 0 {
		t.state.RemainingCooldown--
	}

	switch {
	case observed:
		t.state.Signal = domain.SignalAlert
		t.state.RemainingCooldown = t.cooldown
	case t.state.RemainingCooldown == 0:
		t.state.Signal = domain.SignalOK
	}
	return t.state
}

// State returns the current state without advancing
func (t *AlertTimer) State() domain.AlertTimerState {
	return t.state
}
