package service

import (
	"strings"

	"github.com/smartcity/intersection/internal/domain"
)

// vehicleClasses are the only labels counted as traffic
var vehicleClasses = map[string]struct{}{
	"car":       {},
	"truck":     {},
	"bus":       {},
	"motorbike": {},
	"ambulance": {},
}

const (
	labelAmbulance = "ambulance"
	labelUnknown   = "unknown"
)

// VehicleCounter turns raw detections into a per-approach count.
type VehicleCounter struct {
	labels   map[int]string
	denylist []string
}

// NewVehicleCounter builds a counter over a model's class table.
// Any label containing a denylist keyword is dropped before counting.
func NewVehicleCounter(labels map[int]string, denylist []string) *VehicleCounter {
	deny := make([]string, 0, len(denylist))
	for _, kw := range denylist {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			deny = append(deny, kw)
		}
	}
	return &VehicleCounter{labels: labels, denylist: deny}
}

// Label resolves the label of a detection, falling back to the class table.
func (c *VehicleCounter) Label(d domain.Detection) string {
	label := d.Label
	if label == "" {
		label = c.labels[d.ClassID]
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return labelUnknown
	}
	return label
}

// Denied reports whether a label matches the lookalike denylist.
func (c *VehicleCounter) Denied(label string) bool {
	for _, kw := range c.denylist {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// Count returns the number of vehicles and whether an ambulance survived filtering.
func (c *VehicleCounter) Count(detections []domain.Detection) (int, bool) {
	count := 0
	ambulance := false
	for _, d := range detections {
		label := c.Label(d)
		if c.Denied(label) {
			continue
		}
		if _, ok := vehicleClasses[label]; !ok {
			continue
		}
		count++
		if label == labelAmbulance {
			ambulance = true
		}
	}
	return count, ambulance
}
