package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcity/intersection/internal/domain"
)

// TimingRepository is re-exported from domain for convenience
type TimingRepository = domain.TimingRepository

// LoadTimingPlan fetches an intersection's plan, falling back to the default
// plan when none is stored.
func LoadTimingPlan(ctx context.Context, repo TimingRepository, intersectionID string) (domain.TimingPlan, error) {
	plan, err := repo.GetTimingPlan(ctx, intersectionID)
	if errors.Is(err, domain.ErrPlanNotFound) {
		return domain.DefaultTimingPlan(intersectionID), nil
	}
	if err != nil {
		return domain.TimingPlan{}, fmt.Errorf("service: failed to load timing plan: %w", err)
	}
	return plan, nil
}
