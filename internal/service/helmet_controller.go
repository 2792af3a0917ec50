package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/internal/observability/metrics"
)

// ModeHelmet is the registry key of the helmet compliance monitor
const ModeHelmet = "helmet"

// DefaultHelmetTick is how often the alert timer advances
const DefaultHelmetTick = time.Second

// HelmetController watches one camera for riders without a helmet and raises
// a latched alert. Frames arrive faster than the timer ticks: every frame
// updates the count, the timer advances at most once per tick interval.
type HelmetController struct {
	key    string
	feed   CountFeed
	clock  Clock
	logger *log.Logger
	tick   time.Duration

	mu        sync.RWMutex
	timer     *AlertTimer
	count     int
	lastCheck time.Time
	runID     string
	running   bool
}

// NewHelmetController creates a monitor in the OK state
func NewHelmetController(key string, feed CountFeed, cooldown int, tick time.Duration, clock Clock, logger *log.Logger) (*HelmetController, error) {
	if feed == nil {
		return nil, errors.New("helmet: nil feed")
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	if key == "" {
		key = ModeHelmet
	}
	if tick <= 0 {
		tick = DefaultHelmetTick
	}
	return &HelmetController{
		key:       key,
		feed:      feed,
		clock:     clock,
		logger:    logger,
		tick:      tick,
		timer:     NewAlertTimer(cooldown),
		lastCheck: clock.Now(),
	}, nil
}

// Key returns the registry key
func (c *HelmetController) Key() string {
	return c.key
}

// Run pulls counts until the feed is exhausted or ctx ends
func (c *HelmetController) Run(ctx context.Context) error {
	runID := uuid.NewString()
	c.mu.Lock()
	c.runID = runID
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logger.Printf("helmet[%s]: worker %s started", c.key, runID)
	for {
		count, err := c.feed.Next(ctx)
		switch {
		case err == nil:
			c.Observe(count)
		case errors.Is(err, ErrFeedExhausted):
			metrics.IncFeedEvent(c.key, metrics.FeedExhausted)
			c.logger.Printf("helmet[%s]: feed exhausted, holding last state", c.key)
			return nil
		case ctx.Err() != nil:
			c.logger.Printf("helmet[%s]: worker %s stopped", c.key, runID)
			return ctx.Err()
		default:
			metrics.IncFeedEvent(c.key, metrics.FeedError)
			c.logger.Printf("helmet[%s]: frame without detections: %v", c.key, err)
		}
	}
}

// Observe records the no-helmet count of a frame and advances the alert
// timer when a tick interval has passed since the last advance.
func (c *HelmetController) Observe(count int) domain.AlertTimerState {
	now := c.clock.Now()

	c.mu.Lock()
	c.count = count
	advanced := false
	if now.Sub(c.lastCheck) >= c.tick {
		c.lastCheck = now
		c.timer.Update(c.count > 0)
		advanced = true
	}
	state := c.timer.State()
	c.mu.Unlock()

	metrics.ObserveTick(c.key, true)
	if advanced {
		metrics.SetAlert(c.key, state.Signal == domain.SignalAlert)
	}
	return state
}

// Status reports the latest count and alert state
func (c *HelmetController) Status() domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := c.timer.State()
	return domain.Status{
		Mode:             c.key,
		Signal:           state.Signal,
		Count:            c.count,
		RemainingSeconds: state.RemainingCooldown,
		RunID:            c.runID,
		Running:          c.running,
	}
}
