package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/signalsfoundry/constellation-scheduler/internal/logging"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

// TailPolicy decides what the trailing-download pass does for a satellite
// that committed nothing during the scan.
type TailPolicy string

const (
	// TailFromZero treats an empty plan as ending at hour 0 with zeroed
	// levels, so every download candidate is appended.
	TailFromZero TailPolicy = "zero"
	// TailSkip leaves empty plans empty.
	TailSkip TailPolicy = "skip"
)

// ParseTailPolicy maps a config string onto a TailPolicy; empty means
// TailFromZero.
func ParseTailPolicy(s string) (TailPolicy, error) {
	switch TailPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TailFromZero:
		return TailFromZero, nil
	case TailSkip:
		return TailSkip, nil
	default:
		return "", fmt.Errorf("unknown tail policy %q", s)
	}
}

// DroppedObservation records an observation the scan reached but could not
// commit.
type DroppedObservation struct {
	SatelliteID string
	Candidate   model.PlanEntry
	Reason      string
}

// MergeStats summarises one merge.
type MergeStats struct {
	WindowsVisited        int
	WindowsSkipped        int
	ObservationsCommitted int
	ObservationsDropped   int
	GapDownloads          int
	TailDownloads         int
	TasksClaimed          int
}

// MergeResult is the output of Merger.Merge.
type MergeResult struct {
	Schedule model.Schedule
	Dropped  []DroppedObservation
	Stats    MergeStats
}

// Merger interleaves observation windows with download candidates in a
// single chronological pass and commits observations only when the
// satellite's data and energy stay within bounds.
type Merger struct {
	params  Params
	tail    TailPolicy
	log     logging.Logger
	metrics MetricsRecorder
}

// MergerOption customises Merger construction.
type MergerOption func(*Merger)

// WithTailPolicy sets the empty-plan policy for trailing downloads.
func WithTailPolicy(p TailPolicy) MergerOption {
	return func(m *Merger) {
		if p != "" {
			m.tail = p
		}
	}
}

// WithMergerLogger attaches a structured logger.
func WithMergerLogger(l logging.Logger) MergerOption {
	return func(m *Merger) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMergerMetrics attaches a metrics recorder.
func WithMergerMetrics(r MetricsRecorder) MergerOption {
	return func(m *Merger) {
		if r != nil {
			m.metrics = r
		}
	}
}

// NewMerger constructs a merger; a zero Params uses DefaultParams.
func NewMerger(params Params, opts ...MergerOption) *Merger {
	m := &Merger{
		params:  params.orDefault(),
		tail:    TailFromZero,
		log:     logging.Noop(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge runs the FIFO scan.
//
// All windows of all satellites are visited in order of (start time,
// satellite ID, task ID). A single time cursor starts at zero and moves to
// each visited window's start. For a window of satellite S starting at t:
// downloads of S that fit between the cursor and t are appended first, then
// the observation is committed if S stays within bounds, and finally the task
// is claimed so no other satellite can take it. Windows of already-claimed
// tasks are skipped without touching the cursor. After the scan every
// satellite receives the downloads that start after its last entry.
func (m *Merger) Merge(
	ctx context.Context,
	sats []model.SatelliteProfile,
	windows map[string][]model.ObservationWindow,
	downloads map[string][]model.DownloadInterval,
) (*MergeResult, error) {
	states := make(map[string]*satelliteState, len(sats))
	for _, sat := range sats {
		if _, dup := states[sat.ID]; dup {
			return nil, fmt.Errorf("duplicate satellite %q", sat.ID)
		}
		states[sat.ID] = newSatelliteState(sat, downloads[sat.ID])
	}

	order := make([]model.ObservationWindow, 0)
	for satID, list := range windows {
		if _, ok := states[satID]; !ok {
			return nil, fmt.Errorf("windows reference unknown satellite %q", satID)
		}
		order = append(order, list...)
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SatelliteID != b.SatelliteID {
			return a.SatelliteID < b.SatelliteID
		}
		return a.TaskID < b.TaskID
	})

	result := &MergeResult{Schedule: make(model.Schedule, len(sats))}
	claims := NewClaimRegistry()
	cursor := 0.0

	for _, w := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !claims.Claim(w.TaskID, w.SatelliteID) {
			result.Stats.WindowsSkipped++
			continue
		}
		result.Stats.WindowsVisited++
		st := states[w.SatelliteID]

		gap := st.gapDownloads(cursor, w.StartTime)
		for _, d := range gap {
			entry := st.appendDownload(d, m.params)
			m.log.Debug(ctx, "download scheduled",
				logging.String("satellite_id", w.SatelliteID),
				logging.String("task_id", d.TaskID),
				logging.String("ground_station_id", d.GroundStationID),
				logging.Float64("start_time", d.StartTime),
				logging.Float64("data_status", entry.DataStatus),
				logging.Float64("energy_status", entry.EnergyStatus),
			)
		}
		result.Stats.GapDownloads += len(gap)
		m.metrics.AddDownloads(PhaseGap, len(gap))

		candidate, outcome := st.tryObservation(w, m.params)
		m.metrics.IncObservation(outcome)
		if outcome == OutcomeCommitted {
			result.Stats.ObservationsCommitted++
			m.log.Debug(ctx, "observation committed",
				logging.String("satellite_id", w.SatelliteID),
				logging.String("task_id", w.TaskID),
				logging.Float64("start_time", w.StartTime),
				logging.Float64("data_status", candidate.DataStatus),
				logging.Float64("energy_status", candidate.EnergyStatus),
			)
		} else {
			result.Stats.ObservationsDropped++
			result.Dropped = append(result.Dropped, DroppedObservation{
				SatelliteID: w.SatelliteID,
				Candidate:   candidate,
				Reason:      outcome,
			})
			m.log.Debug(ctx, "observation dropped",
				logging.String("satellite_id", w.SatelliteID),
				logging.String("task_id", w.TaskID),
				logging.String("reason", outcome),
				logging.Float64("candidate_data", candidate.DataStatus),
				logging.Float64("candidate_energy", candidate.EnergyStatus),
			)
		}

		cursor = w.StartTime
	}

	for _, sat := range sats {
		st := states[sat.ID]
		if len(st.plan) > 0 || m.tail == TailFromZero {
			tail := st.tailDownloads(st.endTime())
			for _, d := range tail {
				st.appendDownload(d, m.params)
			}
			result.Stats.TailDownloads += len(tail)
			m.metrics.AddDownloads(PhaseTail, len(tail))
		}

		result.Schedule[sat.ID] = st.plan
		m.log.Info(ctx, "satellite plan complete",
			logging.String("satellite_id", sat.ID),
			logging.Int("observations", st.plan.Count(model.ProcessObservation)),
			logging.Int("downloads", st.plan.Count(model.ProcessDownload)),
			logging.Float64("data_status", st.data),
			logging.Float64("energy_status", st.energy),
		)
	}

	result.Stats.TasksClaimed = claims.Len()
	m.metrics.SetClaimedTasks(result.Stats.TasksClaimed)
	return result, nil
}
