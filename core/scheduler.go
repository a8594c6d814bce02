package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/constellation-scheduler/internal/logging"
	"github.com/signalsfoundry/constellation-scheduler/kb"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

const tracerName = "github.com/signalsfoundry/constellation-scheduler/core"

// Result is the outcome of one scheduling run.
type Result struct {
	RunID    string
	Schedule model.Schedule
	Windows  map[string][]model.ObservationWindow
	Dropped  []DroppedObservation
	Stats    MergeStats
	Duration time.Duration
}

// Scheduler wires the window builder and the merger to a KnowledgeBase.
type Scheduler struct {
	KB *kb.KnowledgeBase

	params  Params
	workers int
	tail    TailPolicy
	log     logging.Logger
	metrics MetricsRecorder
}

// SchedulerOption customises Scheduler construction.
type SchedulerOption func(*Scheduler)

// WithParams overrides the physical constants and resource rates.
func WithParams(p Params) SchedulerOption {
	return func(s *Scheduler) {
		s.params = p.orDefault()
	}
}

// WithWorkers bounds the window-building parallelism.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.workers = n
	}
}

// WithEmptyPlanTail sets the trailing-download policy for empty plans.
func WithEmptyPlanTail(p TailPolicy) SchedulerOption {
	return func(s *Scheduler) {
		s.tail = p
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder, typically an
// observability.SchedulerCollector.
func WithMetrics(m MetricsRecorder) SchedulerOption {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewScheduler constructs a Scheduler reading its inputs from store.
func NewScheduler(store *kb.KnowledgeBase, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		KB:      store,
		params:  DefaultParams(),
		tail:    TailFromZero,
		log:     logging.Noop(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run snapshots the KnowledgeBase, builds every satellite's observation
// windows and merges them with the download candidates into a schedule.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if s.KB == nil {
		return nil, fmt.Errorf("scheduler: knowledge base is nil")
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	ctx, log := logging.WithRunLogger(ctx, s.log)
	runID := logging.RunIDFromContext(ctx)
	tracer := otel.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "Scheduler.Run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	start := time.Now()
	snap := s.KB.Snapshot()
	span.SetAttributes(
		attribute.Int("satellites", len(snap.Satellites)),
		attribute.Int("observation_tasks", len(snap.Tasks)),
	)
	log.Info(ctx, "scheduling run started",
		logging.Int("satellites", len(snap.Satellites)),
		logging.Int("observation_tasks", len(snap.Tasks)),
	)

	builder := NewWindowBuilder(s.params,
		WithBuilderWorkers(s.workers),
		WithBuilderLogger(log),
		WithBuilderMetrics(s.metrics),
	)
	buildCtx, buildSpan := tracer.Start(ctx, "WindowBuilder.BuildAll")
	windows, err := builder.BuildAll(buildCtx, snap.Satellites, snap.Tasks)
	buildSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	merger := NewMerger(s.params,
		WithTailPolicy(s.tail),
		WithMergerLogger(log),
		WithMergerMetrics(s.metrics),
	)
	mergeCtx, mergeSpan := tracer.Start(ctx, "Merger.Merge")
	merged, err := merger.Merge(mergeCtx, snap.Satellites, windows, snap.Downloads)
	if err == nil {
		mergeSpan.SetAttributes(
			attribute.Int("observations_committed", merged.Stats.ObservationsCommitted),
			attribute.Int("observations_dropped", merged.Stats.ObservationsDropped),
			attribute.Int("downloads", merged.Stats.GapDownloads+merged.Stats.TailDownloads),
		)
	}
	mergeSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("merge plans: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRun(elapsed)
	log.Info(ctx, "scheduling run finished",
		logging.Int("observations_committed", merged.Stats.ObservationsCommitted),
		logging.Int("observations_dropped", merged.Stats.ObservationsDropped),
		logging.Int("gap_downloads", merged.Stats.GapDownloads),
		logging.Int("tail_downloads", merged.Stats.TailDownloads),
		logging.Duration("elapsed", elapsed),
	)

	return &Result{
		RunID:    runID,
		Schedule: merged.Schedule,
		Windows:  windows,
		Dropped:  merged.Dropped,
		Stats:    merged.Stats,
		Duration: elapsed,
	}, nil
}
