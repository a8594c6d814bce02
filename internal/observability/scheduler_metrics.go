package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/constellation-scheduler/core"
)

var _ core.MetricsRecorder = (*SchedulerCollector)(nil)

// SchedulerCollector exposes scheduler-specific Prometheus metrics and
// implements core.MetricsRecorder.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	WindowsBuilt prometheus.Counter
	Observations *prometheus.CounterVec
	Downloads    *prometheus.CounterVec
	TasksClaimed prometheus.Gauge
	RunDuration  prometheus.Histogram
}

// NewSchedulerCollector registers scheduler metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	windows, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_observation_windows_built_total",
		Help: "Observation windows computed across all satellites.",
	}), "scheduler_observation_windows_built_total")
	if err != nil {
		return nil, err
	}

	observations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_observations_total",
		Help: "Observation attempts reached by the merge scan, labeled by outcome.",
	}, []string{"outcome"})
	observations, err = registerCounterVec(reg, observations, "scheduler_observations_total")
	if err != nil {
		return nil, err
	}

	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_downloads_scheduled_total",
		Help: "Downloads appended to satellite plans, labeled by merge phase (gap or tail).",
	}, []string{"phase"})
	downloads, err = registerCounterVec(reg, downloads, "scheduler_downloads_scheduled_total")
	if err != nil {
		return nil, err
	}

	claimed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_tasks_claimed",
		Help: "Observation tasks claimed by the most recent run.",
	}), "scheduler_tasks_claimed")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Wall-clock duration of complete scheduling runs.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "scheduler_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:     gatherer,
		WindowsBuilt: windows,
		Observations: observations,
		Downloads:    downloads,
		TasksClaimed: claimed,
		RunDuration:  duration,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SchedulerCollector) Handler() http.Handler {
	var gatherer prometheus.Gatherer
	if c != nil {
		gatherer = c.gatherer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// AddWindowsBuilt adds n to the windows counter.
func (c *SchedulerCollector) AddWindowsBuilt(n int) {
	if c == nil || c.WindowsBuilt == nil || n <= 0 {
		return
	}
	c.WindowsBuilt.Add(float64(n))
}

// IncObservation counts one observation attempt with its outcome.
func (c *SchedulerCollector) IncObservation(outcome string) {
	if c == nil || c.Observations == nil {
		return
	}
	c.Observations.WithLabelValues(outcome).Inc()
}

// AddDownloads counts downloads placed during phase.
func (c *SchedulerCollector) AddDownloads(phase string, n int) {
	if c == nil || c.Downloads == nil || n <= 0 {
		return
	}
	c.Downloads.WithLabelValues(phase).Add(float64(n))
}

// SetClaimedTasks updates the claimed-task gauge.
func (c *SchedulerCollector) SetClaimedTasks(n int) {
	if c == nil || c.TasksClaimed == nil {
		return
	}
	c.TasksClaimed.Set(float64(n))
}

// ObserveRun records a run duration measurement.
func (c *SchedulerCollector) ObserveRun(d time.Duration) {
	if c == nil || c.RunDuration == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}
