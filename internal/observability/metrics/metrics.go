package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "intersection_"

	resultSuccess = "success"
	resultError   = "error"
	resultMock    = "mock"
)

var (
	registerOnce sync.Once

	ticksTotal       *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	activeApproach   *prometheus.GaugeVec
	phaseRemaining   *prometheus.GaugeVec
	vehicleCount     *prometheus.GaugeVec

	detectTotal   *prometheus.CounterVec
	detectLatency *prometheus.HistogramVec

	feedEvents *prometheus.CounterVec
	alertState *prometheus.GaugeVec
)

// Init registers controller metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		ticksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_total",
				Help: "Total controller ticks by controller and whether a sample was present",
			},
			[]string{"controller", "sample"},
		)
		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "phase_transitions_total",
				Help: "Total phase transitions by rule",
			},
			[]string{"controller", "rule"},
		)
		activeApproach = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_approach",
				Help: "1 for the approach holding right-of-way, 0 otherwise",
			},
			[]string{"controller", "approach", "phase"},
		)
		phaseRemaining = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "phase_remaining_seconds",
				Help: "Seconds remaining in the current phase",
			},
			[]string{"controller"},
		)
		vehicleCount = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "vehicle_count",
				Help: "Last observed vehicle count by approach",
			},
			[]string{"controller", "approach"},
		)

		detectTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "detect_requests_total",
				Help: "Total detector calls by model and result",
			},
			[]string{"model", "result"},
		)
		detectLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "detect_latency_seconds",
				Help:    "Detector call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "result"},
		)

		feedEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "feed_events_total",
				Help: "Feed lifecycle events (rewind, exhausted, error)",
			},
			[]string{"controller", "event"},
		)
		alertState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alert_active",
				Help: "1 while an alert timer is latched",
			},
			[]string{"controller"},
		)

		prometheus.MustRegister(
			ticksTotal,
			transitionsTotal,
			activeApproach,
			phaseRemaining,
			vehicleCount,
			detectTotal,
			detectLatency,
			feedEvents,
			alertState,
		)
	})
}

// ObserveTick counts a controller tick.
func ObserveTick(controller string, hadSample bool) {
	if ticksTotal == nil {
		return
	}
	sample := "present"
	if !hadSample {
		sample = "missing"
	}
	ticksTotal.WithLabelValues(controller, sample).Inc()
}

// IncTransition counts a fired phase rule.
func IncTransition(controller, rule string) {
	if rule == "" {
		rule = "unknown"
	}
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(controller, rule).Inc()
	}
}

// SetPhase publishes the active approach, phase and remaining time.
func SetPhase(controller, approach, phase string, remaining time.Duration) {
	if activeApproach != nil {
		activeApproach.DeletePartialMatch(prometheus.Labels{"controller": controller})
		activeApproach.WithLabelValues(controller, approach, phase).Set(1)
	}
	if remaining < 0 {
		remaining = 0
	}
	if phaseRemaining != nil {
		phaseRemaining.WithLabelValues(controller).Set(remaining.Seconds())
	}
}

// SetVehicleCount publishes the last count of an approach.
func SetVehicleCount(controller, approach string, count int) {
	if vehicleCount != nil {
		vehicleCount.WithLabelValues(controller, approach).Set(float64(count))
	}
}

// ObserveDetect records detector latency and result.
func ObserveDetect(model, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if detectTotal != nil {
		detectTotal.WithLabelValues(model, result).Inc()
	}
	if detectLatency != nil {
		detectLatency.WithLabelValues(model, result).Observe(duration.Seconds())
	}
}

// IncFeedEvent counts a feed lifecycle event.
func IncFeedEvent(controller, event string) {
	if feedEvents != nil {
		feedEvents.WithLabelValues(controller, event).Inc()
	}
}

// SetAlert publishes whether an alert is latched.
func SetAlert(controller string, active bool) {
	if alertState == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	alertState.WithLabelValues(controller).Set(v)
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultMock    = resultMock

	FeedRewind    = "rewind"
	FeedExhausted = "exhausted"
	FeedError     = "error"
)
