package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/constellation-scheduler/internal/logging"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

// WindowBuilder derives the ordered observation windows of each satellite.
type WindowBuilder struct {
	params  Params
	workers int
	log     logging.Logger
	metrics MetricsRecorder
}

// BuilderOption customises WindowBuilder construction.
type BuilderOption func(*WindowBuilder)

// WithBuilderWorkers bounds how many satellites BuildAll processes at once.
// Values below one mean one worker per satellite.
func WithBuilderWorkers(n int) BuilderOption {
	return func(b *WindowBuilder) {
		b.workers = n
	}
}

// WithBuilderLogger attaches a structured logger.
func WithBuilderLogger(l logging.Logger) BuilderOption {
	return func(b *WindowBuilder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithBuilderMetrics attaches a metrics recorder.
func WithBuilderMetrics(m MetricsRecorder) BuilderOption {
	return func(b *WindowBuilder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewWindowBuilder constructs a builder; a zero Params uses DefaultParams.
func NewWindowBuilder(params Params, opts ...BuilderOption) *WindowBuilder {
	b := &WindowBuilder{
		params:  params.orDefault(),
		log:     logging.Noop(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildForSatellite computes one window per task for sat, ordered by start
// time. Setup times follow the roll-angle deltas between consecutive windows
// in that order, with the sensor starting at zero roll.
func (b *WindowBuilder) BuildForSatellite(sat model.SatelliteProfile, tasks []model.ObservationTask) []model.ObservationWindow {
	windows := make([]model.ObservationWindow, 0, len(tasks))
	for _, task := range tasks {
		distance, roll := b.params.DistanceAndRoll(sat.Latitude, sat.Longitude, task.StripLatitude, task.StripLongitude, sat.AltitudeKm)
		windows = append(windows, model.ObservationWindow{
			SatelliteID:    sat.ID,
			TaskID:         task.ID,
			StartTime:      distance / b.params.EarthVelocityKmh,
			ProcessingTime: task.StripLengthKm / b.params.EarthVelocityKmh,
			RollAngleDeg:   roll,
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].StartTime < windows[j].StartTime
	})

	prevRoll := 0.0
	for i := range windows {
		windows[i].SetupTime = SetupTime(sat, prevRoll, windows[i].RollAngleDeg)
		prevRoll = windows[i].RollAngleDeg
	}
	return windows
}

// SetupTime is the re-pointing cost between two roll angles.
func SetupTime(sat model.SatelliteProfile, fromRollDeg, toRollDeg float64) float64 {
	return sat.C1*math.Abs(toRollDeg-fromRollDeg) + sat.C2
}

// BuildAll builds the window sets of every satellite. Satellites are
// independent, so the passes run concurrently; the result does not depend on
// the worker count.
func (b *WindowBuilder) BuildAll(ctx context.Context, sats []model.SatelliteProfile, tasks []model.ObservationTask) (map[string][]model.ObservationWindow, error) {
	out := make(map[string][]model.ObservationWindow, len(sats))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}

	for _, sat := range sats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			windows := b.BuildForSatellite(sat, tasks)

			mu.Lock()
			defer mu.Unlock()
			if _, dup := out[sat.ID]; dup {
				return fmt.Errorf("duplicate satellite %q in window build", sat.ID)
			}
			out[sat.ID] = windows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build observation windows: %w", err)
	}

	total := 0
	for _, sat := range sats {
		n := len(out[sat.ID])
		total += n
		b.log.Debug(ctx, "built observation windows",
			logging.String("satellite_id", sat.ID),
			logging.Int("windows", n),
		)
	}
	b.metrics.AddWindowsBuilt(total)
	return out, nil
}
