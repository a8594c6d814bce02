package core

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-scheduler/kb"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

// Scenario summarises what LoadScenario put into the KnowledgeBase.
type Scenario struct {
	SatelliteIDs []string
	TaskIDs      []string
	Downloads    int
	// Propagated lists the satellites whose sub-point came from a TLE.
	Propagated []string
}

// internal document shapes, unexported so the file format can evolve.
type scenarioDoc struct {
	Satellites       []satelliteDoc           `yaml:"satellites"`
	ObservationTasks []taskDoc                `yaml:"observation_tasks"`
	Downloads        map[string][]downloadDoc `yaml:"downloads"`
}

type satelliteDoc struct {
	ID         string   `yaml:"id"`
	Longitude  *float64 `yaml:"longitude"`
	Latitude   *float64 `yaml:"latitude"`
	AltitudeKm *float64 `yaml:"altitude_km"`
	TLE        []string `yaml:"tle"`

	C1 float64 `yaml:"c1"`
	C2 float64 `yaml:"c2"`

	DataMin    float64 `yaml:"d_min"`
	DataMax    float64 `yaml:"d_max"`
	DataStatus float64 `yaml:"d_status"`

	EnergyMin    float64 `yaml:"e_min"`
	EnergyMax    float64 `yaml:"e_max"`
	EnergyStatus float64 `yaml:"e_status"`
}

type taskDoc struct {
	ID        string  `yaml:"id"`
	Longitude float64 `yaml:"longitude"`
	Latitude  float64 `yaml:"latitude"`
	LengthKm  float64 `yaml:"length_km"`
}

type downloadDoc struct {
	TaskID          string  `yaml:"task_id"`
	GroundStationID string  `yaml:"ground_station_id"`
	SetupTime       float64 `yaml:"setup_time"`
	StartTime       float64 `yaml:"start_time"`
	ProcessingTime  float64 `yaml:"processing_time"`
}

// ScenarioOption customises LoadScenario.
type ScenarioOption func(*scenarioOptions)

type scenarioOptions struct {
	epoch time.Time
}

// WithEpoch sets the instant TLE satellites are propagated to. It defaults to
// the current time.
func WithEpoch(t time.Time) ScenarioOption {
	return func(o *scenarioOptions) {
		o.epoch = t
	}
}

// LoadScenario reads a YAML (or JSON) scenario from r and populates store with
// satellites, observation tasks and download candidates.
//
// A satellite gives either longitude, latitude and altitude_km, or a two-line
// element set under tle. Any KnowledgeBase validation error aborts the load;
// entries added before the failure stay in store.
func LoadScenario(store *kb.KnowledgeBase, r io.Reader, opts ...ScenarioOption) (*Scenario, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: kb is nil")
	}
	o := scenarioOptions{epoch: time.Now().UTC()}
	for _, opt := range opts {
		opt(&o)
	}

	var doc scenarioDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("LoadScenario: empty document")
		}
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	result := &Scenario{
		SatelliteIDs: make([]string, 0, len(doc.Satellites)),
		TaskIDs:      make([]string, 0, len(doc.ObservationTasks)),
	}

	// 1) Satellites
	for i, s := range doc.Satellites {
		profile, propagated, err := s.profile(o.epoch)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: satellite %d (%q): %w", i, s.ID, err)
		}
		if err := store.AddSatellite(&profile); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.SatelliteIDs = append(result.SatelliteIDs, profile.ID)
		if propagated {
			result.Propagated = append(result.Propagated, profile.ID)
		}
	}

	// 2) Observation tasks
	for _, t := range doc.ObservationTasks {
		task := &model.ObservationTask{
			ID:             t.ID,
			StripLongitude: t.Longitude,
			StripLatitude:  t.Latitude,
			StripLengthKm:  t.LengthKm,
		}
		if err := store.AddObservationTask(task); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.TaskIDs = append(result.TaskIDs, t.ID)
	}

	// 3) Downloads, visited in satellite order for stable error reporting
	satIDs := make([]string, 0, len(doc.Downloads))
	for id := range doc.Downloads {
		satIDs = append(satIDs, id)
	}
	sort.Strings(satIDs)
	for _, satID := range satIDs {
		for _, d := range doc.Downloads[satID] {
			interval := model.DownloadInterval{
				TaskID:          d.TaskID,
				GroundStationID: d.GroundStationID,
				SetupTime:       d.SetupTime,
				StartTime:       d.StartTime,
				ProcessingTime:  d.ProcessingTime,
			}
			if err := store.AddDownloadInterval(satID, interval); err != nil {
				return nil, fmt.Errorf("LoadScenario: %w", err)
			}
			result.Downloads++
		}
	}

	return result, nil
}

func (s satelliteDoc) profile(epoch time.Time) (model.SatelliteProfile, bool, error) {
	p := model.SatelliteProfile{
		ID:           s.ID,
		C1:           s.C1,
		C2:           s.C2,
		DataMin:      s.DataMin,
		DataMax:      s.DataMax,
		DataStatus:   s.DataStatus,
		EnergyMin:    s.EnergyMin,
		EnergyMax:    s.EnergyMax,
		EnergyStatus: s.EnergyStatus,
	}

	fixed := s.Longitude != nil || s.Latitude != nil || s.AltitudeKm != nil
	switch {
	case len(s.TLE) > 0 && fixed:
		return p, false, fmt.Errorf("give either a position or a tle, not both")
	case len(s.TLE) > 0:
		if len(s.TLE) != 2 {
			return p, false, fmt.Errorf("tle needs exactly 2 lines, got %d", len(s.TLE))
		}
		sp, err := SubPointFromTLE(s.TLE[0], s.TLE[1], epoch)
		if err != nil {
			return p, false, err
		}
		p.Longitude, p.Latitude, p.AltitudeKm = sp.Longitude, sp.Latitude, sp.AltitudeKm
		return p, true, nil
	case s.Longitude == nil || s.Latitude == nil || s.AltitudeKm == nil:
		return p, false, fmt.Errorf("longitude, latitude and altitude_km are required without a tle")
	default:
		p.Longitude, p.Latitude, p.AltitudeKm = *s.Longitude, *s.Latitude, *s.AltitudeKm
		return p, false, nil
	}
}
