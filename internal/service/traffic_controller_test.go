package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/intersection/internal/domain"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestTrafficController(t *testing.T, feed SampleFeed, clock Clock) *TrafficController {
	t.Helper()
	ctrl, err := NewTrafficController(ModeTraffic, domain.DefaultTimingPlan("test"), feed, clock, quietLogger())
	require.NoError(t, err)
	return ctrl
}

func TestTrafficController_RunScenarioThenFreeze(t *testing.T) {
	clock := newManualClock()
	counts := domain.SensorSample{CountA: 4, CountB: 10}
	feed := &scriptedFeed{clock: clock, steps: []scriptStep{
		{offset: 0, sample: counts},
		{offset: ms(5100), sample: counts},
		{offset: ms(7200), sample: counts},
		{offset: ms(8200), sample: counts},
	}}
	ctrl := newTestTrafficController(t, feed, clock)

	require.NoError(t, ctrl.Run(context.Background()))

	st := ctrl.Status()
	assert.Equal(t, ModeTraffic, st.Mode)
	assert.Equal(t, domain.ApproachB, st.Approach)
	assert.Equal(t, domain.SignalGreen, st.Signal)
	assert.Equal(t, 10, st.Count)
	assert.Equal(t, 4, st.RemainingSeconds)
	assert.False(t, st.Running)
	assert.NotEmpty(t, st.RunID)

	a := ctrl.ApproachStatus(domain.ApproachA)
	assert.Equal(t, domain.SignalRed, a.Signal)
	assert.Equal(t, 4, a.Count)

	// frozen: status keeps serving the last state
	clock.Advance(time.Minute)
	assert.Equal(t, st, ctrl.Status())
}

func TestTrafficController_MissingSampleHoldsState(t *testing.T) {
	clock := newManualClock()
	feed := &scriptedFeed{clock: clock, steps: []scriptStep{
		{offset: ms(6000), err: ErrNoSample},
	}}
	ctrl := newTestTrafficController(t, feed, clock)

	err := ctrl.Step(context.Background())
	require.ErrorIs(t, err, ErrNoSample)

	snap := ctrl.Snapshot()
	assert.Equal(t, domain.PhaseGreen, snap.State.Kind, "no transition without a sample")
	assert.Equal(t, domain.ApproachA, snap.State.ActiveApproach)
	assert.Equal(t, -time.Second, snap.State.Remaining)
	assert.Equal(t, 0, ctrl.Status().RemainingSeconds)
}

func TestTrafficController_RunSkipsBadTicks(t *testing.T) {
	clock := newManualClock()
	feed := &scriptedFeed{clock: clock, steps: []scriptStep{
		{offset: ms(1000), err: errors.New("decode failed")},
		{offset: ms(2000), sample: domain.SensorSample{AmbulanceB: true}},
	}}
	ctrl := newTestTrafficController(t, feed, clock)

	require.NoError(t, ctrl.Run(context.Background()))
	assert.Equal(t, domain.ApproachB, ctrl.Status().Approach)
}

func TestTrafficController_StatusIdempotentBetweenTicks(t *testing.T) {
	clock := newManualClock()
	ctrl := newTestTrafficController(t, NewPushFeed(1), clock)

	clock.Set(ms(2300))
	ctrl.Apply(domain.SensorSample{CountA: 5})

	first := ctrl.Status()
	clock.Advance(1500 * time.Millisecond)
	second := ctrl.Status()
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.RemainingSeconds)
}

func TestTrafficController_ApplyReportsTransition(t *testing.T) {
	clock := newManualClock()
	ctrl := newTestTrafficController(t, NewPushFeed(1), clock)

	clock.Set(5 * time.Second)
	tr, fired := ctrl.Apply(domain.SensorSample{})
	require.True(t, fired)
	assert.Equal(t, RuleGreenYellow, tr.Rule)
	assert.Equal(t, domain.SignalYellow, ctrl.Status().Signal)
}

func TestTrafficController_ConcurrentReaders(t *testing.T) {
	feed := NewPushFeed(64)
	ctrl, err := NewTrafficController("", domain.DefaultTimingPlan("test"), feed, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, ModeTraffic, ctrl.Key())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := ctrl.Snapshot()
				// counts and ambulance flags are written together
				if snap.Counts.AmbulanceA {
					assert.Equal(t, snap.Counts.CountA, snap.Counts.CountB)
				}
				_ = ctrl.ApproachStatus(domain.ApproachB)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		_ = feed.Push(domain.SensorSample{CountA: i, CountB: i, AmbulanceA: i%2 == 0})
	}
	wg.Wait()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, ctrl.Status().Running)
}

func TestTrafficController_RequiresFeed(t *testing.T) {
	_, err := NewTrafficController(ModeTraffic, domain.DefaultTimingPlan("test"), nil, nil, nil)
	assert.Error(t, err)
}
