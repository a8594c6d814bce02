package model

import (
	"fmt"
	"sort"
	"strings"
)

// ProcessKind distinguishes observation entries from download entries.
type ProcessKind string

const (
	ProcessObservation ProcessKind = "Observation"
	ProcessDownload    ProcessKind = "Download"
)

func (k ProcessKind) String() string { return string(k) }

// ParseProcessKind maps a case-insensitive name to a ProcessKind.
func ParseProcessKind(s string) (ProcessKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "observation", "obsv":
		return ProcessObservation, nil
	case "download", "dwd":
		return ProcessDownload, nil
	default:
		return "", fmt.Errorf("unknown process kind %q", s)
	}
}

// UnmarshalText accepts any spelling ParseProcessKind does, so JSON and YAML
// documents round-trip through the canonical names.
func (k *ProcessKind) UnmarshalText(text []byte) error {
	parsed, err := ParseProcessKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ObservationWindow is the opportunity for one satellite to image one task.
// Times are hours from the scenario epoch.
type ObservationWindow struct {
	SatelliteID    string
	TaskID         string
	SetupTime      float64
	StartTime      float64
	ProcessingTime float64
	// RollAngleDeg is kept for inspection only; the merger never reads it.
	RollAngleDeg float64
}

// PlanEntry is one committed task in a satellite's plan together with the
// buffer and battery levels after it completes.
type PlanEntry struct {
	TaskID         string
	Kind           ProcessKind
	SetupTime      float64
	StartTime      float64
	ProcessingTime float64
	EnergyStatus   float64
	DataStatus     float64
}

// EndTime returns the time the entry finishes.
func (e PlanEntry) EndTime() float64 {
	return e.StartTime + e.ProcessingTime
}

// Plan is the ordered, append-only sequence of entries for one satellite.
type Plan []PlanEntry

// Last returns the final entry, if any.
func (p Plan) Last() (PlanEntry, bool) {
	if len(p) == 0 {
		return PlanEntry{}, false
	}
	return p[len(p)-1], true
}

// Count returns how many entries of the given kind the plan holds.
func (p Plan) Count(kind ProcessKind) int {
	n := 0
	for _, e := range p {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Schedule maps satellite IDs to their plans.
type Schedule map[string]Plan

// SatelliteIDs returns the schedule's keys in lexical order.
func (s Schedule) SatelliteIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Owner returns the satellite whose plan holds the observation taskID.
func (s Schedule) Owner(taskID string) (string, bool) {
	for _, id := range s.SatelliteIDs() {
		for _, e := range s[id] {
			if e.Kind == ProcessObservation && e.TaskID == taskID {
				return id, true
			}
		}
	}
	return "", false
}
