package kb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

var (
	// ErrSatelliteExists indicates a satellite ID is already registered.
	ErrSatelliteExists = errors.New("satellite already exists")
	// ErrSatelliteNotFound indicates a referenced satellite is unknown.
	ErrSatelliteNotFound = errors.New("satellite not found")
	// ErrTaskExists indicates an observation task ID is already registered.
	ErrTaskExists = errors.New("observation task already exists")
	// ErrDownloadExists indicates a download task ID is already registered
	// for the same satellite.
	ErrDownloadExists = errors.New("download interval already exists")
	// ErrInvalidSatellite indicates a satellite profile failed validation.
	ErrInvalidSatellite = errors.New("invalid satellite profile")
	// ErrInvalidTask indicates an observation task failed validation.
	ErrInvalidTask = errors.New("invalid observation task")
	// ErrInvalidDownload indicates a download interval failed validation.
	ErrInvalidDownload = errors.New("invalid download interval")
)

// Snapshot is a consistent copy of the scheduler inputs. Satellites and tasks
// keep their insertion order; downloads keep the order they were added in for
// each satellite.
type Snapshot struct {
	Satellites []model.SatelliteProfile
	Tasks      []model.ObservationTask
	Downloads  map[string][]model.DownloadInterval
}

// KnowledgeBase is an in-memory, thread-safe store for the three scheduler
// input tables.
type KnowledgeBase struct {
	mu sync.RWMutex

	satellites map[string]*model.SatelliteProfile
	satOrder   []string

	tasks     map[string]*model.ObservationTask
	taskOrder []string

	downloads map[string][]model.DownloadInterval
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		satellites: make(map[string]*model.SatelliteProfile),
		tasks:      make(map[string]*model.ObservationTask),
		downloads:  make(map[string][]model.DownloadInterval),
	}
}

// AddSatellite validates and registers a satellite profile.
func (kb *KnowledgeBase) AddSatellite(p *model.SatelliteProfile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidSatellite)
	}
	if err := ValidateSatellite(*p); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.satellites[p.ID]; exists {
		return fmt.Errorf("%w: %q", ErrSatelliteExists, p.ID)
	}
	cp := *p
	kb.satellites[p.ID] = &cp
	kb.satOrder = append(kb.satOrder, p.ID)
	return nil
}

// AddObservationTask validates and registers an observation task.
func (kb *KnowledgeBase) AddObservationTask(t *model.ObservationTask) error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidTask)
	}
	if err := ValidateTask(*t); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, exists := kb.tasks[t.ID]; exists {
		return fmt.Errorf("%w: %q", ErrTaskExists, t.ID)
	}
	cp := *t
	kb.tasks[t.ID] = &cp
	kb.taskOrder = append(kb.taskOrder, t.ID)
	return nil
}

// AddDownloadInterval appends a download candidate to the satellite's list.
// The satellite must already be registered.
func (kb *KnowledgeBase) AddDownloadInterval(satelliteID string, d model.DownloadInterval) error {
	if err := ValidateDownload(d); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, ok := kb.satellites[satelliteID]; !ok {
		return fmt.Errorf("%w: %q referenced by download %q", ErrSatelliteNotFound, satelliteID, d.TaskID)
	}
	for _, existing := range kb.downloads[satelliteID] {
		if existing.TaskID == d.TaskID {
			return fmt.Errorf("%w: %q on satellite %q", ErrDownloadExists, d.TaskID, satelliteID)
		}
	}
	kb.downloads[satelliteID] = append(kb.downloads[satelliteID], d)
	return nil
}

// GetSatellite returns a copy of the satellite profile.
func (kb *KnowledgeBase) GetSatellite(id string) (model.SatelliteProfile, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	p, ok := kb.satellites[id]
	if !ok {
		return model.SatelliteProfile{}, fmt.Errorf("%w: %q", ErrSatelliteNotFound, id)
	}
	return *p, nil
}

// ListSatellites returns copies of all satellites in insertion order.
func (kb *KnowledgeBase) ListSatellites() []model.SatelliteProfile {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.SatelliteProfile, 0, len(kb.satOrder))
	for _, id := range kb.satOrder {
		res = append(res, *kb.satellites[id])
	}
	return res
}

// ListObservationTasks returns copies of all tasks in insertion order.
func (kb *KnowledgeBase) ListObservationTasks() []model.ObservationTask {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.ObservationTask, 0, len(kb.taskOrder))
	for _, id := range kb.taskOrder {
		res = append(res, *kb.tasks[id])
	}
	return res
}

// DownloadsFor returns a copy of the satellite's download candidates.
func (kb *KnowledgeBase) DownloadsFor(satelliteID string) []model.DownloadInterval {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]model.DownloadInterval(nil), kb.downloads[satelliteID]...)
}

// Snapshot copies every table under a single read lock.
func (kb *KnowledgeBase) Snapshot() Snapshot {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	snap := Snapshot{
		Satellites: make([]model.SatelliteProfile, 0, len(kb.satOrder)),
		Tasks:      make([]model.ObservationTask, 0, len(kb.taskOrder)),
		Downloads:  make(map[string][]model.DownloadInterval, len(kb.downloads)),
	}
	for _, id := range kb.satOrder {
		snap.Satellites = append(snap.Satellites, *kb.satellites[id])
	}
	for _, id := range kb.taskOrder {
		snap.Tasks = append(snap.Tasks, *kb.tasks[id])
	}
	for satID, list := range kb.downloads {
		snap.Downloads[satID] = append([]model.DownloadInterval(nil), list...)
	}
	return snap
}

// ValidateSatellite rejects profiles the geometry and feasibility checks
// cannot handle: a non-positive altitude (division by zero in the roll
// angle), coordinates out of range, negative setup coefficients or inverted
// bounds.
func ValidateSatellite(p model.SatelliteProfile) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidSatellite)
	case !finite(p.Longitude, p.Latitude, p.AltitudeKm, p.C1, p.C2, p.DataMin, p.DataMax, p.EnergyMin, p.EnergyMax):
		return fmt.Errorf("%w: %q has non-finite values", ErrInvalidSatellite, p.ID)
	case p.AltitudeKm <= 0:
		return fmt.Errorf("%w: %q altitude %.3f km must be positive", ErrInvalidSatellite, p.ID, p.AltitudeKm)
	case !validLatitude(p.Latitude) || !validLongitude(p.Longitude):
		return fmt.Errorf("%w: %q location (%.4f, %.4f) out of range", ErrInvalidSatellite, p.ID, p.Longitude, p.Latitude)
	case p.C1 < 0 || p.C2 < 0:
		return fmt.Errorf("%w: %q setup coefficients must be non-negative", ErrInvalidSatellite, p.ID)
	case p.DataMin > p.DataMax:
		return fmt.Errorf("%w: %q d_min %.3f exceeds d_max %.3f", ErrInvalidSatellite, p.ID, p.DataMin, p.DataMax)
	case p.EnergyMin > p.EnergyMax:
		return fmt.Errorf("%w: %q e_min %.3f exceeds e_max %.3f", ErrInvalidSatellite, p.ID, p.EnergyMin, p.EnergyMax)
	}
	return nil
}

// ValidateTask checks an observation task's location and length.
func ValidateTask(t model.ObservationTask) error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	case !finite(t.StripLongitude, t.StripLatitude, t.StripLengthKm):
		return fmt.Errorf("%w: %q has non-finite values", ErrInvalidTask, t.ID)
	case !validLatitude(t.StripLatitude) || !validLongitude(t.StripLongitude):
		return fmt.Errorf("%w: %q location (%.4f, %.4f) out of range", ErrInvalidTask, t.ID, t.StripLongitude, t.StripLatitude)
	case t.StripLengthKm < 0:
		return fmt.Errorf("%w: %q strip length must be non-negative", ErrInvalidTask, t.ID)
	}
	return nil
}

// ValidateDownload checks that a download interval has non-negative
// durations.
func ValidateDownload(d model.DownloadInterval) error {
	switch {
	case d.TaskID == "":
		return fmt.Errorf("%w: empty task id", ErrInvalidDownload)
	case !finite(d.SetupTime, d.StartTime, d.ProcessingTime):
		return fmt.Errorf("%w: %q has non-finite values", ErrInvalidDownload, d.TaskID)
	case d.SetupTime < 0 || d.ProcessingTime < 0:
		return fmt.Errorf("%w: %q durations must be non-negative", ErrInvalidDownload, d.TaskID)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validLatitude(lat float64) bool  { return lat >= -90 && lat <= 90 }
func validLongitude(lon float64) bool { return lon >= -180 && lon <= 180 }
