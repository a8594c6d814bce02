// Package report renders schedules for people and for other tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

// CSVHeader is the column set of WriteCSV.
var CSVHeader = []string{
	"satellite_id",
	"task_id",
	"process_type",
	"setup_time",
	"start_time",
	"processing_time",
	"energy_status",
	"data_status",
}

// Option customises the serialised document.
type Option func(*options)

type options struct {
	epoch time.Time
}

// WithEpoch adds wall-clock start times derived from hour 0 = epoch.
func WithEpoch(epoch time.Time) Option {
	return func(o *options) {
		o.epoch = epoch
	}
}

// Document is the serialisable form of a schedule. Satellites are sorted by
// ID and every satellite is present even with an empty plan.
type Document struct {
	Epoch      *time.Time      `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Satellites []SatellitePlan `json:"satellites" yaml:"satellites"`
}

// SatellitePlan is one satellite's entries in plan order.
type SatellitePlan struct {
	SatelliteID string  `json:"satellite_id" yaml:"satellite_id"`
	Entries     []Entry `json:"entries" yaml:"entries"`
}

// Entry mirrors model.PlanEntry with stable field names.
type Entry struct {
	TaskID         string     `json:"task_id" yaml:"task_id"`
	ProcessType    string     `json:"process_type" yaml:"process_type"`
	SetupTime      float64    `json:"setup_time" yaml:"setup_time"`
	StartTime      float64    `json:"start_time" yaml:"start_time"`
	ProcessingTime float64    `json:"processing_time" yaml:"processing_time"`
	EnergyStatus   float64    `json:"energy_status" yaml:"energy_status"`
	DataStatus     float64    `json:"data_status" yaml:"data_status"`
	StartsAt       *time.Time `json:"starts_at,omitempty" yaml:"starts_at,omitempty"`
}

// NewDocument converts a schedule into its serialisable form.
func NewDocument(schedule model.Schedule, opts ...Option) Document {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	doc := Document{Satellites: make([]SatellitePlan, 0, len(schedule))}
	if !o.epoch.IsZero() {
		epoch := o.epoch
		doc.Epoch = &epoch
	}
	for _, satID := range schedule.SatelliteIDs() {
		plan := schedule[satID]
		sp := SatellitePlan{SatelliteID: satID, Entries: make([]Entry, 0, len(plan))}
		for _, e := range plan {
			entry := Entry{
				TaskID:         e.TaskID,
				ProcessType:    e.Kind.String(),
				SetupTime:      e.SetupTime,
				StartTime:      e.StartTime,
				ProcessingTime: e.ProcessingTime,
				EnergyStatus:   e.EnergyStatus,
				DataStatus:     e.DataStatus,
			}
			if doc.Epoch != nil {
				at := doc.Epoch.Add(time.Duration(e.StartTime * float64(time.Hour)))
				entry.StartsAt = &at
			}
			sp.Entries = append(sp.Entries, entry)
		}
		doc.Satellites = append(doc.Satellites, sp)
	}
	return doc
}

// WriteJSON writes the schedule as indented JSON.
func WriteJSON(w io.Writer, schedule model.Schedule, opts ...Option) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(schedule, opts...)); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteYAML writes the schedule as a YAML document.
func WriteYAML(w io.Writer, schedule model.Schedule, opts ...Option) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(schedule, opts...)); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return nil
}

// WriteCSV writes one row per plan entry under CSVHeader, satellites in ID
// order and entries in plan order.
func WriteCSV(w io.Writer, schedule model.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, satID := range schedule.SatelliteIDs() {
		for _, e := range schedule[satID] {
			row := []string{
				satID,
				e.TaskID,
				e.Kind.String(),
				formatFloat(e.SetupTime),
				formatFloat(e.StartTime),
				formatFloat(e.ProcessingTime),
				formatFloat(e.EnergyStatus),
				formatFloat(e.DataStatus),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
