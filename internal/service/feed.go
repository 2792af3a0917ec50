package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/smartcity/intersection/internal/domain"
)

var (
	// ErrFeedExhausted ends a worker loop: the input ran out and could not be rewound.
	ErrFeedExhausted = errors.New("feed: exhausted")
	// ErrNoSample marks a tick without usable input; the controller holds its state.
	ErrNoSample = errors.New("feed: no sample")
	// ErrFeedFull is returned when a push feed cannot accept another sample.
	ErrFeedFull = errors.New("feed: full")
)

// SampleFeed supplies one SensorSample per tick
type SampleFeed interface {
	Next(ctx context.Context) (domain.SensorSample, error)
}

// CountFeed supplies one observed count per tick
type CountFeed interface {
	Next(ctx context.Context) (int, error)
}

// frameSet reads one frame from each source in lockstep. When any source
// runs out, all of them are rewound together if looping is on.
type frameSet struct {
	sources  []FrameSource
	loop     bool
	onRewind func()
}

func (f *frameSet) read(ctx context.Context) ([][]byte, error) {
	frames, err := f.readOnce(ctx)
	if !errors.Is(err, io.EOF) {
		return frames, err
	}
	if !f.loop {
		return nil, ErrFeedExhausted
	}
	for _, src := range f.sources {
		r, ok := src.(Rewinder)
		if !ok {
			return nil, ErrFeedExhausted
		}
		if err := r.Rewind(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFeedExhausted, err)
		}
	}
	if f.onRewind != nil {
		f.onRewind()
	}

	frames, err = f.readOnce(ctx)
	if errors.Is(err, io.EOF) {
		return nil, ErrFeedExhausted
	}
	return frames, err
}

func (f *frameSet) readOnce(ctx context.Context) ([][]byte, error) {
	frames := make([][]byte, len(f.sources))
	for i, src := range f.sources {
		frame, err := src.Read(ctx)
		if err != nil {
			return nil, err
		}
		frames[i] = frame
	}
	return frames, nil
}

func (f *frameSet) close() error {
	var errs []error
	for _, src := range f.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DetectorFeed runs detection on one frame per approach and counts vehicles
type DetectorFeed struct {
	frames   frameSet
	detector Detector
	model    string
	counter  *VehicleCounter
}

// NewDetectorFeed pairs the camera of approach A with the camera of approach B
func NewDetectorFeed(sourceA, sourceB FrameSource, detector Detector, model string, counter *VehicleCounter, loop bool, onRewind func()) *DetectorFeed {
	return &DetectorFeed{
		frames:   frameSet{sources: []FrameSource{sourceA, sourceB}, loop: loop, onRewind: onRewind},
		detector: detector,
		model:    model,
		counter:  counter,
	}
}

// Next blocks on frame acquisition, then detects synchronously
func (f *DetectorFeed) Next(ctx context.Context) (domain.SensorSample, error) {
	frames, err := f.frames.read(ctx)
	if err != nil {
		return domain.SensorSample{}, err
	}

	var sample domain.SensorSample
	for i, frame := range frames {
		detections, err := f.detector.Detect(ctx, f.model, frame)
		if err != nil {
			return domain.SensorSample{}, fmt.Errorf("%w: %v", ErrNoSample, err)
		}
		count, ambulance := f.counter.Count(detections)
		if i == 0 {
			sample.CountA, sample.AmbulanceA = count, ambulance
		} else {
			sample.CountB, sample.AmbulanceB = count, ambulance
		}
	}
	return sample, nil
}

// Close releases both cameras
func (f *DetectorFeed) Close() error {
	return f.frames.close()
}

// HelmetFeed counts riders without a helmet in each frame
type HelmetFeed struct {
	frames   frameSet
	detector Detector
	model    string
}

// NewHelmetFeed creates a feed over a single camera
func NewHelmetFeed(source FrameSource, detector Detector, model string, loop bool, onRewind func()) *HelmetFeed {
	return &HelmetFeed{
		frames:   frameSet{sources: []FrameSource{source}, loop: loop, onRewind: onRewind},
		detector: detector,
		model:    model,
	}
}

// Next returns the number of no-helmet detections in the next frame
func (f *HelmetFeed) Next(ctx context.Context) (int, error) {
	frames, err := f.frames.read(ctx)
	if err != nil {
		return 0, err
	}
	detections, err := f.detector.Detect(ctx, f.model, frames[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSample, err)
	}
	count := 0
	for _, d := range detections {
		if d.ClassID == domain.HelmetClassMissing {
			count++
		}
	}
	return count, nil
}

// Close releases the camera
func (f *HelmetFeed) Close() error {
	return f.frames.close()
}

// PushFeed receives already-decoded samples from an external sensor, e.g. the
// HTTP ingest route. The worker loop stays the only writer of controller state.
type PushFeed struct {
	ch        chan domain.SensorSample
	closeOnce sync.Once
	done      chan struct{}
}

// NewPushFeed creates a feed buffering up to size samples
func NewPushFeed(size int) *PushFeed {
	if size <= 0 {
		size = 1
	}
	return &PushFeed{
		ch:   make(chan domain.SensorSample, size),
		done: make(chan struct{}),
	}
}

// Push enqueues a sample without blocking
func (f *PushFeed) Push(sample domain.SensorSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	select {
	case <-f.done:
		return ErrFeedExhausted
	default:
	}
	select {
	case f.ch <- sample:
		return nil
	default:
		return ErrFeedFull
	}
}

// Next blocks until a sample arrives, the feed closes or ctx ends
func (f *PushFeed) Next(ctx context.Context) (domain.SensorSample, error) {
	select {
	case <-ctx.Done():
		return domain.SensorSample{}, ctx.Err()
	case sample := <-f.ch:
		return sample, nil
	case <-f.done:
		return domain.SensorSample{}, ErrFeedExhausted
	}
}

// Close ends the feed
func (f *PushFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}
