package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/internal/service"
)

// HealthChecker is implemented by upstream dependencies (database, detector)
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ApproachReporter is implemented by controllers that arbitrate approaches
type ApproachReporter interface {
	ApproachStatus(approach domain.Approach) domain.Status
}

// SamplePusher accepts decoded sensor samples
type SamplePusher interface {
	Push(sample domain.SensorSample) error
}

// Handler contains all HTTP handlers
type Handler struct {
	registry *service.Registry
	pusher   SamplePusher
	checks   map[string]HealthChecker
}

// NewHandler creates a new handler. pusher may be nil when sample ingest is disabled.
func NewHandler(registry *service.Registry, pusher SamplePusher, checks map[string]HealthChecker) *Handler {
	return &Handler{
		registry: registry,
		pusher:   pusher,
		checks:   checks,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	return c.JSON(fiber.Map{
		"status":       "ok",
		"service":      "intersection-controller",
		"version":      "1.0.0",
		"mode":         h.registry.ActiveKey(),
		"dependencies": deps,
	})
}

// GetStatus returns the status of the active mode in the dashboard's shape
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	ctrl, err := h.registry.Active()
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "No active controller")
	}

	st := ctrl.Status()
	if st.Mode == service.ModeHelmet {
		return c.JSON(fiber.Map{
			"mode":            st.Mode,
			"no_helmet_count": st.Count,
			"timer":           st.RemainingSeconds,
			"signal":          st.Signal,
		})
	}
	return c.JSON(fiber.Map{
		"mode":   st.Mode,
		"count":  st.Count,
		"timer":  st.RemainingSeconds,
		"signal": st.Signal,
	})
}

type switchModeRequest struct {
	Mode string `json:"mode"`
}

// SwitchMode selects which controller /status exposes
func (h *Handler) SwitchMode(c *fiber.Ctx) error {
	var req switchModeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.registry.SetActive(req.Mode); err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "Invalid mode",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"mode":    req.Mode,
	})
}

// ListControllers returns registered controller keys and the active mode
func (h *Handler) ListControllers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":     true,
		"controllers": h.registry.Keys(),
		"active":      h.registry.ActiveKey(),
	})
}

// GetControllerStatus returns the status of one controller, optionally for one approach
func (h *Handler) GetControllerStatus(c *fiber.Ctx) error {
	ctrl, err := h.registry.Get(c.Params("key"))
	if errors.Is(err, service.ErrUnknownController) {
		return fiber.NewError(fiber.StatusNotFound, "Unknown controller")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to resolve controller")
	}

	raw := c.Query("approach")
	if raw == "" {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    ctrl.Status(),
		})
	}

	reporter, ok := ctrl.(ApproachReporter)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Controller has no approaches")
	}
	approach, err := domain.ParseApproach(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid approach")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    reporter.ApproachStatus(approach),
	})
}

// PushSample feeds an externally decoded sensor sample to the traffic controller
func (h *Handler) PushSample(c *fiber.Ctx) error {
	if h.pusher == nil {
		return fiber.NewError(fiber.StatusNotFound, "Sample ingest disabled")
	}

	var sample domain.SensorSample
	if err := c.BodyParser(&sample); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := h.pusher.Push(sample)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidSample):
		return fiber.NewError(fiber.StatusBadRequest, "Counts must be non-negative")
	case errors.Is(err, service.ErrFeedFull):
		return fiber.NewError(fiber.StatusTooManyRequests, "Sample queue full")
	case errors.Is(err, service.ErrFeedExhausted):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Sample feed closed")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to accept sample")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
	})
}
