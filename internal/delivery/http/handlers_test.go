package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/internal/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type idleCounts struct{}

func (idleCounts) Next(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type stubCheck struct{ err error }

func (s stubCheck) Health(context.Context) error { return s.err }

type testEnv struct {
	app     *fiber.App
	traffic *service.TrafficController
	feed    *service.PushFeed
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	clock := fixedClock{now: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}

	feed := service.NewPushFeed(2)
	traffic, err := service.NewTrafficController(service.ModeTraffic, domain.DefaultTimingPlan("test"), feed, clock, logger)
	require.NoError(t, err)
	helmet, err := service.NewHelmetController(service.ModeHelmet, idleCounts{}, 10, time.Second, clock, logger)
	require.NoError(t, err)

	registry := service.NewRegistry()
	require.NoError(t, registry.Register(traffic))
	require.NoError(t, registry.Register(helmet))

	handler := NewHandler(registry, feed, map[string]HealthChecker{
		"database": stubCheck{},
		"detector": stubCheck{err: errors.New("ml_bridge: health check failed")},
	})
	app := newTestApp()
	SetupRoutes(app, handler)
	return testEnv{app: app, traffic: traffic, feed: feed}
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestGetStatus_Traffic(t *testing.T) {
	env := newTestEnv(t)
	env.traffic.Apply(domain.SensorSample{CountA: 6, CountB: 2})

	code, body := doJSON(t, env.app, fiber.MethodGet, "/status", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "traffic", body["mode"])
	assert.Equal(t, "green", body["signal"])
	assert.EqualValues(t, 6, body["count"])
	assert.EqualValues(t, 5, body["timer"])
}

func TestSwitchMode(t *testing.T) {
	env := newTestEnv(t)

	code, body := doJSON(t, env.app, fiber.MethodPost, "/switch_mode", `{"mode":"helmet"}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "helmet", body["mode"])

	_, body = doJSON(t, env.app, fiber.MethodGet, "/status", "")
	assert.Equal(t, "helmet", body["mode"])
	assert.Equal(t, "OK", body["signal"])
	assert.Contains(t, body, "no_helmet_count")

	_, body = doJSON(t, env.app, fiber.MethodPost, "/switch_mode", `{"mode":"parking"}`)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid mode", body["error"])
}

func TestGetControllerStatus_ByApproach(t *testing.T) {
	env := newTestEnv(t)
	env.traffic.Apply(domain.SensorSample{CountA: 1, CountB: 8})

	code, body := doJSON(t, env.app, fiber.MethodGet, "/api/v1/controllers/traffic/status?approach=b", "")
	assert.Equal(t, fiber.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "red", data["signal"])
	assert.EqualValues(t, 8, data["count"])
	assert.Equal(t, "B", data["approach"])

	code, _ = doJSON(t, env.app, fiber.MethodGet, "/api/v1/controllers/traffic/status?approach=C", "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = doJSON(t, env.app, fiber.MethodGet, "/api/v1/controllers/helmet/status?approach=A", "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = doJSON(t, env.app, fiber.MethodGet, "/api/v1/controllers/parking/status", "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "Unknown controller", body["message"])
}

func TestListControllers(t *testing.T) {
	env := newTestEnv(t)
	_, body := doJSON(t, env.app, fiber.MethodGet, "/api/v1/controllers", "")
	assert.Equal(t, []any{"helmet", "traffic"}, body["controllers"])
	assert.Equal(t, "traffic", body["active"])
}

func TestPushSample(t *testing.T) {
	env := newTestEnv(t)

	code, _ := doJSON(t, env.app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":3,"count_b":1,"ambulance_b":true}`)
	assert.Equal(t, fiber.StatusAccepted, code)

	sample, err := env.feed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SensorSample{CountA: 3, CountB: 1, AmbulanceB: true}, sample)

	code, _ = doJSON(t, env.app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":-3}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	doJSON(t, env.app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":1}`)
	doJSON(t, env.app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":2}`)
	code, _ = doJSON(t, env.app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":3}`)
	assert.Equal(t, fiber.StatusTooManyRequests, code)
}

func TestPushSample_Disabled(t *testing.T) {
	registry := service.NewRegistry()
	app := newTestApp()
	SetupRoutes(app, NewHandler(registry, nil, nil))

	code, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/traffic/samples", `{"count_a":1}`)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = doJSON(t, app, fiber.MethodGet, "/status", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	code, body := doJSON(t, env.app, fiber.MethodGet, "/health", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["database"])
	assert.Equal(t, "ml_bridge: health check failed", deps["detector"])
}
