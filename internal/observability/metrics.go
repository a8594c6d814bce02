package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ScenarioCollector reports the size of the loaded scheduler inputs.
type ScenarioCollector struct {
	Satellites       prometheus.Gauge
	ObservationTasks prometheus.Gauge
	Downloads        prometheus.Gauge
}

// NewScenarioCollector registers scenario gauges against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewScenarioCollector(reg prometheus.Registerer) (*ScenarioCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	sats, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_satellites",
		Help: "Satellites in the loaded scenario.",
	}), "scenario_satellites")
	if err != nil {
		return nil, err
	}
	tasks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_observation_tasks",
		Help: "Observation tasks in the loaded scenario.",
	}), "scenario_observation_tasks")
	if err != nil {
		return nil, err
	}
	downloads, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenario_download_intervals",
		Help: "Download candidates across all satellites in the loaded scenario.",
	}), "scenario_download_intervals")
	if err != nil {
		return nil, err
	}

	return &ScenarioCollector{
		Satellites:       sats,
		ObservationTasks: tasks,
		Downloads:        downloads,
	}, nil
}

// SetScenarioCounts updates all scenario gauges at once.
func (c *ScenarioCollector) SetScenarioCounts(satellites, tasks, downloads int) {
	if c == nil {
		return
	}
	if c.Satellites != nil {
		c.Satellites.Set(float64(satellites))
	}
	if c.ObservationTasks != nil {
		c.ObservationTasks.Set(float64(tasks))
	}
	if c.Downloads != nil {
		c.Downloads.Set(float64(downloads))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
