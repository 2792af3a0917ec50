package service

import (
	"time"

	"github.com/smartcity/intersection/internal/domain"
)

// ReportApproach builds the status of one approach from a snapshot.
// During yellow every approach reads "yellow".
func ReportApproach(snap Snapshot, approach domain.Approach) domain.Status {
	signal := domain.SignalRed
	switch {
	case snap.State.Kind == domain.PhaseYellow:
		signal = domain.SignalYellow
	case snap.State.ActiveApproach == approach:
		signal = domain.SignalGreen
	}
	return domain.Status{
		Approach:         approach,
		Signal:           signal,
		Count:            snap.Counts.Count(approach),
		RemainingSeconds: RemainingSeconds(snap.State.Remaining),
	}
}

// ReportActive reports the approach holding (or clearing) right-of-way, so
// approach B reads green whenever it is B's turn.
func ReportActive(snap Snapshot) domain.Status {
	return ReportApproach(snap, snap.State.ActiveApproach)
}

// RemainingSeconds floors a remaining duration to whole seconds, never below zero.
func RemainingSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
