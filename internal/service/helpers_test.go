package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/smartcity/intersection/internal/domain"
)

var testEpoch = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: testEpoch}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(offset time.Duration) {
	c.mu.Lock()
	c.now = testEpoch.Add(offset)
	c.mu.Unlock()
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func at(offset time.Duration) time.Time {
	return testEpoch.Add(offset)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// sliceSource is an in-memory rewindable frame source
type sliceSource struct {
	frames  [][]byte
	pos     int
	rewinds int
	closed  bool
}

func (s *sliceSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Rewind() error {
	s.pos = 0
	s.rewinds++
	return nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// onceSource cannot be rewound
type onceSource struct {
	sliceSource
}

func (s *onceSource) Rewind() error {
	return errors.New("not rewindable")
}

// nonRewinder hides Rewind entirely
type nonRewinder struct {
	src *sliceSource
}

func (n nonRewinder) Read(ctx context.Context) ([]byte, error) { return n.src.Read(ctx) }
func (n nonRewinder) Close() error                             { return n.src.Close() }

// tableDetector answers with detections keyed by frame content
type tableDetector struct {
	mu     sync.Mutex
	byName map[string][]domain.Detection
	err    error
	calls  int
	models []string
}

func (d *tableDetector) Detect(_ context.Context, model string, frame []byte) ([]domain.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.models = append(d.models, model)
	if d.err != nil {
		return nil, d.err
	}
	return d.byName[string(frame)], nil
}

// scriptedFeed sets the clock to each step's offset and yields its sample
type scriptStep struct {
	offset time.Duration
	sample domain.SensorSample
	err    error
}

type scriptedFeed struct {
	clock *manualClock
	steps []scriptStep
	pos   int
}

func (f *scriptedFeed) Next(ctx context.Context) (domain.SensorSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.SensorSample{}, err
	}
	if f.pos >= len(f.steps) {
		return domain.SensorSample{}, ErrFeedExhausted
	}
	step := f.steps[f.pos]
	f.pos++
	f.clock.Set(step.offset)
	return step.sample, step.err
}

// countScript does the same for the helmet controller
type countStep struct {
	offset time.Duration
	count  int
}

type countScript struct {
	clock *manualClock
	steps []countStep
	pos   int
}

func (f *countScript) Next(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.pos >= len(f.steps) {
		return 0, ErrFeedExhausted
	}
	step := f.steps[f.pos]
	f.pos++
	f.clock.Set(step.offset)
	return step.count, nil
}
