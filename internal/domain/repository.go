package domain

import "context"

// TimingRepository defines the interface for controller configuration storage
// This follows the Dependency Inversion Principle - domain defines the interface
type TimingRepository interface {
	// GetTimingPlan retrieves the timing plan for an intersection
	GetTimingPlan(ctx context.Context, intersectionID string) (TimingPlan, error)

	// GetClassLabels retrieves the class id -> label table of a detection model
	GetClassLabels(ctx context.Context, model string) (map[int]string, error)

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
