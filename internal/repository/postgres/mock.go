package postgres

import (
	"context"
	"strings"

	"github.com/smartcity/intersection/internal/domain"
)

// Model names known to the mock repository
const (
	ModelTraffic = "yolov8n"
	ModelHelmet  = "helmet"
)

// MockRepository implements domain.TimingRepository for testing/demo mode
type MockRepository struct{}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// GetTimingPlan returns the default plan for any intersection
func (r *MockRepository) GetTimingPlan(ctx context.Context, intersectionID string) (domain.TimingPlan, error) {
	return domain.DefaultTimingPlan(intersectionID), nil
}

// GetClassLabels returns a built-in label table.
// Traffic models get the COCO vehicle subset plus the plant lookalikes the
// detector tends to confuse with vehicles.
func (r *MockRepository) GetClassLabels(ctx context.Context, model string) (map[int]string, error) {
	if strings.Contains(strings.ToLower(model), ModelHelmet) {
		return map[int]string{
			domain.HelmetClassWorn:    "helmet",
			domain.HelmetClassMissing: "no helmet",
		}, nil
	}
	return map[int]string{
		0:  "person",
		1:  "bicycle",
		2:  "car",
		3:  "motorbike",
		5:  "bus",
		7:  "truck",
		58: "potted plant",
		80: "ambulance",
	}, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
