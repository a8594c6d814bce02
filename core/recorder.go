package core

import "time"

// Observation outcomes reported to a MetricsRecorder.
const (
	OutcomeCommitted     = "committed"
	OutcomeDroppedData   = "dropped_data"
	OutcomeDroppedEnergy = "dropped_energy"
	OutcomeDroppedBoth   = "dropped_data_energy"
)

// Download phases reported to a MetricsRecorder.
const (
	PhaseGap  = "gap"
	PhaseTail = "tail"
)

// MetricsRecorder receives scheduler counters. The observability package
// provides a Prometheus-backed implementation.
type MetricsRecorder interface {
	AddWindowsBuilt(n int)
	IncObservation(outcome string)
	AddDownloads(phase string, n int)
	SetClaimedTasks(n int)
	ObserveRun(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) AddWindowsBuilt(int)      {}
func (noopRecorder) IncObservation(string)    {}
func (noopRecorder) AddDownloads(string, int) {}
func (noopRecorder) SetClaimedTasks(int)      {}
func (noopRecorder) ObserveRun(time.Duration) {}
