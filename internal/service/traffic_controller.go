package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/smartcity/intersection/internal/domain"
	"github.com/smartcity/intersection/internal/observability/metrics"
)

// ModeTraffic is the registry key of the intersection controller
const ModeTraffic = "traffic"

// TrafficController runs the phase scheduler of one intersection.
// The worker loop is the only writer; every read and write of the scheduler
// happens under mu so a status reader never sees new counts with a stale phase.
type TrafficController struct {
	key    string
	feed   SampleFeed
	clock  Clock
	logger *log.Logger

	mu      sync.RWMutex
	sched   *Scheduler
	runID   string
	running bool
}

// NewTrafficController creates a controller starting in GREEN(A)
func NewTrafficController(key string, plan domain.TimingPlan, feed SampleFeed, clock Clock, logger *log.Logger) (*TrafficController, error) {
	if feed == nil {
		return nil, errors.New("traffic: nil feed")
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	if key == "" {
		key = ModeTraffic
	}
	sched, err := NewScheduler(plan, clock.Now())
	if err != nil {
		return nil, fmt.Errorf("traffic: %w", err)
	}
	return &TrafficController{
		key:    key,
		feed:   feed,
		clock:  clock,
		logger: logger,
		sched:  sched,
	}, nil
}

// Key returns the registry key
func (c *TrafficController) Key() string {
	return c.key
}

// Run pulls samples until the feed is exhausted or ctx ends. Exhaustion is
// not an error: the controller freezes at its last state and keeps serving
// status.
func (c *TrafficController) Run(ctx context.Context) error {
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

	c.logger.Printf("traffic[%s]: worker %s started", c.key, runID)
	for {
		err := c.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrFeedExhausted):
			metrics.IncFeedEvent(c.key, metrics.FeedExhausted)
			c.logger.Printf("traffic[%s]: feed exhausted, holding last state", c.key)
			return nil
		case ctx.Err() != nil:
			c.logger.Printf("traffic[%s]: worker %s stopped", c.key, runID)
			return ctx.Err()
		default:
			metrics.IncFeedEvent(c.key, metrics.FeedError)
			c.logger.Printf("traffic[%s]: tick without sample: %v", c.key, err)
		}
	}
}

// Step advances the controller by one frame. A tick without a usable sample
// only moves the remaining time.
func (c *TrafficController) Step(ctx context.Context) error {
	sample, err := c.feed.Next(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSample) {
			c.Idle()
		}
		return err
	}
	c.Apply(sample)
	return nil
}

// Apply runs one tick of the scheduler with sample
func (c *TrafficController) Apply(sample domain.SensorSample) (Transition, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	tr, fired := c.sched.Tick(sample, now)
	snap := c.sched.Snapshot()
	c.mu.Unlock()

	metrics.ObserveTick(c.key, true)
	c.publish(snap)
	if fired {
		metrics.IncTransition(c.key, tr.Rule)
		c.logger.Printf("traffic[%s]: %s", c.key, tr)
	}
	return tr, fired
}

// Idle records a tick that produced no sample
func (c *TrafficController) Idle() {
	now := c.clock.Now()

	c.mu.Lock()
	c.sched.Idle(now)
	snap := c.sched.Snapshot()
	c.mu.Unlock()

	metrics.ObserveTick(c.key, false)
	c.publish(snap)
}

func (c *TrafficController) publish(snap Snapshot) {
	metrics.SetPhase(c.key, string(snap.State.ActiveApproach), string(snap.State.Kind), snap.State.Remaining)
	metrics.SetVehicleCount(c.key, string(domain.ApproachA), snap.Counts.CountA)
	metrics.SetVehicleCount(c.key, string(domain.ApproachB), snap.Counts.CountB)
}

// Snapshot returns a consistent copy of the phase state and cached counts
func (c *TrafficController) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sched.Snapshot()
}

// Status reports the approach currently holding right-of-way
func (c *TrafficController) Status() domain.Status {
	c.mu.RLock()
	snap := c.sched.Snapshot()
	runID, running := c.runID, c.running
	c.mu.RUnlock()

	st := ReportActive(snap)
	st.Mode = c.key
	st.RunID = runID
	st.Running = running
	return st
}

// ApproachStatus reports a specific approach
func (c *TrafficController) ApproachStatus(approach domain.Approach) domain.Status {
	c.mu.RLock()
	snap := c.sched.Snapshot()
	runID, running := c.runID, c.running
	c.mu.RUnlock()

	st := ReportApproach(snap, approach)
	st.Mode = c.key
	st.RunID = runID
	st.Running = running
	return st
}
