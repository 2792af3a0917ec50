package domain

// Alert signal values
const (
	SignalOK    = "OK"
	SignalAlert = "ALERT"
)

// Helmet detector classes
const (
	HelmetClassWorn    = 0
	HelmetClassMissing = 1
)

// AlertTimerState is the latch-and-decay state of an alert timer
type AlertTimerState struct {
	Signal            string `json:"signal"`
	RemainingCooldown int    `json:"remaining_cooldown"`
}
