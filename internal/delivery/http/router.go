package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// Dashboard endpoints (active mode)
	app.Get("/status", handler.GetStatus)
	app.Post("/switch_mode", handler.SwitchMode)

	// Prometheus scrape endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/controllers", handler.ListControllers)
		api.Get("/controllers/:key/status", handler.GetControllerStatus)

		// Sensor ingest for externally decoded counts
		api.Post("/traffic/samples", handler.PushSample)
	}
}
