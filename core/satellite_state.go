package core

import (
	"sort"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

// satelliteState is the merger's per-satellite record: the current buffer
// and battery levels, the plan built so far and the download candidates.
// Levels and plan are updated together on every append.
type satelliteState struct {
	profile   model.SatelliteProfile
	data      float64
	energy    float64
	plan      model.Plan
	downloads []model.DownloadInterval
	placed    map[string]struct{}
}

// newSatelliteState starts a satellite at zero data and energy regardless of
// the status columns carried by the profile. Downloads are ordered by start
// time, keeping input order for ties.
func newSatelliteState(profile model.SatelliteProfile, downloads []model.DownloadInterval) *satelliteState {
	ordered := append([]model.DownloadInterval(nil), downloads...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})
	return &satelliteState{
		profile:   profile,
		downloads: ordered,
		placed:    make(map[string]struct{}),
	}
}

// gapDownloads returns the unplaced downloads whose set-up starts at or after
// from and which finish by to.
func (s *satelliteState) gapDownloads(from, to float64) []model.DownloadInterval {
	var out []model.DownloadInterval
	for _, d := range s.downloads {
		if _, done := s.placed[d.TaskID]; done {
			continue
		}
		if d.ReadyAt() >= from && d.EndTime() <= to {
			out = append(out, d)
		}
	}
	return out
}

// tailDownloads returns the unplaced downloads whose set-up starts at or
// after from, with no upper bound.
func (s *satelliteState) tailDownloads(from float64) []model.DownloadInterval {
	var out []model.DownloadInterval
	for _, d := range s.downloads {
		if _, done := s.placed[d.TaskID]; done {
			continue
		}
		if d.ReadyAt() >= from {
			out = append(out, d)
		}
	}
	return out
}

// appendDownload commits d unconditionally: the buffer drains and the
// battery pays the download draw while collecting solar gain.
func (s *satelliteState) appendDownload(d model.DownloadInterval, p Params) model.PlanEntry {
	s.data -= p.DownloadDataRate * d.ProcessingTime
	s.energy += -p.DownloadEnergyRate*d.ProcessingTime + p.SolarGainRate*(d.SetupTime+d.ProcessingTime)

	entry := model.PlanEntry{
		TaskID:         d.TaskID,
		Kind:           model.ProcessDownload,
		SetupTime:      d.SetupTime,
		StartTime:      d.StartTime,
		ProcessingTime: d.ProcessingTime,
		EnergyStatus:   s.energy,
		DataStatus:     s.data,
	}
	s.plan = append(s.plan, entry)
	s.placed[d.TaskID] = struct{}{}
	return entry
}

// tryObservation commits w only if the resulting levels stay within the
// satellite's bounds. On rejection the state is left untouched and the
// outcome names the violated resource.
func (s *satelliteState) tryObservation(w model.ObservationWindow, p Params) (model.PlanEntry, string) {
	data := s.data + p.ObservationDataRate*w.ProcessingTime
	energy := s.energy - p.ObservationEnergyRate*w.ProcessingTime + p.SolarGainRate*(w.SetupTime+w.ProcessingTime)

	entry := model.PlanEntry{
		TaskID:         w.TaskID,
		Kind:           model.ProcessObservation,
		SetupTime:      w.SetupTime,
		StartTime:      w.StartTime,
		ProcessingTime: w.ProcessingTime,
		EnergyStatus:   energy,
		DataStatus:     data,
	}

	dataOK := s.profile.DataWithin(data)
	energyOK := s.profile.EnergyWithin(energy)
	switch {
	case !dataOK && !energyOK:
		return entry, OutcomeDroppedBoth
	case !dataOK:
		return entry, OutcomeDroppedData
	case !energyOK:
		return entry, OutcomeDroppedEnergy
	}

	s.data, s.energy = data, energy
	s.plan = append(s.plan, entry)
	return entry, OutcomeCommitted
}

// endTime is the finish time of the last plan entry, or zero for an empty
// plan.
func (s *satelliteState) endTime() float64 {
	last, ok := s.plan.Last()
	if !ok {
		return 0
	}
	return last.EndTime()
}
