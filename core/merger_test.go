package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

type countingRecorder struct {
	mu           sync.Mutex
	windows      int
	observations map[string]int
	downloads    map[string]int
	claimed      int
	runs         int
}

func (c *countingRecorder) AddWindowsBuilt(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows += n
}

func (c *countingRecorder) IncObservation(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.observations == nil {
		c.observations = make(map[string]int)
	}
	c.observations[outcome]++
}

func (c *countingRecorder) AddDownloads(phase string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.downloads == nil {
		c.downloads = make(map[string]int)
	}
	c.downloads[phase] += n
}

func (c *countingRecorder) SetClaimedTasks(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claimed = n
}

func (c *countingRecorder) ObserveRun(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
}

func boundedSatellite(id string, dataMax, energyMin, energyMax float64) model.SatelliteProfile {
	return model.SatelliteProfile{
		ID:         id,
		AltitudeKm: 500,
		DataMin:    -10,
		DataMax:    dataMax,
		EnergyMin:  energyMin,
		EnergyMax:  energyMax,
	}
}

func window(sat, task string, setup, start, proc float64) model.ObservationWindow {
	return model.ObservationWindow{
		SatelliteID:    sat,
		TaskID:         task,
		SetupTime:      setup,
		StartTime:      start,
		ProcessingTime: proc,
	}
}

func mustMerge(t *testing.T, m *Merger, sats []model.SatelliteProfile, windows map[string][]model.ObservationWindow, downloads map[string][]model.DownloadInterval) *MergeResult {
	t.Helper()
	res, err := m.Merge(context.Background(), sats, windows, downloads)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return res
}

func taskIDs(plan model.Plan) []string {
	ids := make([]string, len(plan))
	for i, e := range plan {
		ids[i] = e.TaskID
	}
	return ids
}

func TestMerge_GapAndTailDownloads(t *testing.T) {
	sats := []model.SatelliteProfile{boundedSatellite("S1", 10, -10, 10)}
	windows := map[string][]model.ObservationWindow{
		"S1": {window("S1", "T1", 0.1, 2, 1)},
	}
	downloads := map[string][]model.DownloadInterval{
		"S1": {
			{TaskID: "D2", GroundStationID: "G1", SetupTime: 0, StartTime: 5, ProcessingTime: 1},
			{TaskID: "D1", GroundStationID: "G1", SetupTime: 0.5, StartTime: 1, ProcessingTime: 0.5},
		},
	}

	rec := &countingRecorder{}
	res := mustMerge(t, NewMerger(DefaultParams(), WithMergerMetrics(rec)), sats, windows, downloads)
	plan := res.Schedule["S1"]

	if got := taskIDs(plan); len(got) != 3 || got[0] != "D1" || got[1] != "T1" || got[2] != "D2" {
		t.Fatalf("plan = %v, want [D1 T1 D2]", got)
	}
	if plan[0].Kind != model.ProcessDownload || plan[1].Kind != model.ProcessObservation || plan[2].Kind != model.ProcessDownload {
		t.Fatalf("unexpected kinds: %s %s %s", plan[0].Kind, plan[1].Kind, plan[2].Kind)
	}

	// D1: data -0.5, energy -0.05 + 0.1*1.0
	if !approxEqual(plan[0].DataStatus, -0.5, 1e-12) || !approxEqual(plan[0].EnergyStatus, 0.05, 1e-12) {
		t.Fatalf("D1 status = (%v, %v), want (-0.5, 0.05)", plan[0].DataStatus, plan[0].EnergyStatus)
	}
	// T1: data +1, energy -1 + 0.1*1.1
	if !approxEqual(plan[1].DataStatus, 0.5, 1e-12) || !approxEqual(plan[1].EnergyStatus, -0.84, 1e-12) {
		t.Fatalf("T1 status = (%v, %v), want (0.5, -0.84)", plan[1].DataStatus, plan[1].EnergyStatus)
	}
	// D2: data -1, energy -0.1 + 0.1*1
	if !approxEqual(plan[2].DataStatus, -0.5, 1e-12) || !approxEqual(plan[2].EnergyStatus, -0.84, 1e-12) {
		t.Fatalf("D2 status = (%v, %v), want (-0.5, -0.84)", plan[2].DataStatus, plan[2].EnergyStatus)
	}

	if res.Stats.GapDownloads != 1 || res.Stats.TailDownloads != 1 || res.Stats.ObservationsCommitted != 1 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if rec.downloads[PhaseGap] != 1 || rec.downloads[PhaseTail] != 1 || rec.observations[OutcomeCommitted] != 1 {
		t.Fatalf("unexpected recorder state %+v / %+v", rec.downloads, rec.observations)
	}
}

func TestMerge_DroppedObservationStillClaimsTask(t *testing.T) {
	sats := []model.SatelliteProfile{
		boundedSatellite("S1", 0, -10, 10), // no room for any data
		boundedSatellite("S2", 10, -10, 10),
	}
	windows := map[string][]model.ObservationWindow{
		"S1": {window("S1", "T1", 0, 1, 0.5)},
		"S2": {window("S2", "T1", 0, 2, 0.5), window("S2", "T2", 0, 3, 0.5)},
	}

	res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, nil)

	if len(res.Schedule["S1"]) != 0 {
		t.Fatalf("S1 plan = %v, want empty", taskIDs(res.Schedule["S1"]))
	}
	if got := taskIDs(res.Schedule["S2"]); len(got) != 1 || got[0] != "T2" {
		t.Fatalf("S2 plan = %v, want [T2]", got)
	}
	if _, ok := res.Schedule.Owner("T1"); ok {
		t.Fatalf("T1 should not be scheduled anywhere")
	}

	if len(res.Dropped) != 1 || res.Dropped[0].Reason != OutcomeDroppedData || res.Dropped[0].SatelliteID != "S1" {
		t.Fatalf("dropped = %+v", res.Dropped)
	}
	want := MergeStats{
		WindowsVisited:        2,
		WindowsSkipped:        1,
		ObservationsCommitted: 1,
		ObservationsDropped:   1,
		TasksClaimed:          2,
	}
	if res.Stats != want {
		t.Fatalf("stats = %+v, want %+v", res.Stats, want)
	}
}

func TestMerge_EnergyBound(t *testing.T) {
	sats := []model.SatelliteProfile{boundedSatellite("S1", 10, 0, 10)}
	windows := map[string][]model.ObservationWindow{
		"S1": {window("S1", "T1", 0.1, 1, 1)},
	}

	res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, nil)
	if len(res.Schedule["S1"]) != 0 {
		t.Fatalf("expected observation to be dropped on energy")
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Reason != OutcomeDroppedEnergy {
		t.Fatalf("dropped = %+v", res.Dropped)
	}
	if !approxEqual(res.Dropped[0].Candidate.EnergyStatus, -0.89, 1e-12) {
		t.Fatalf("candidate energy = %v, want -0.89", res.Dropped[0].Candidate.EnergyStatus)
	}
}

func TestMerge_TieBreakBySatelliteID(t *testing.T) {
	sats := []model.SatelliteProfile{
		boundedSatellite("S2", 10, -10, 10),
		boundedSatellite("S1", 10, -10, 10),
	}
	windows := map[string][]model.ObservationWindow{
		"S2": {window("S2", "T1", 0, 1, 0.5)},
		"S1": {window("S1", "T1", 0, 1, 0.5)},
	}

	for i := 0; i < 20; i++ {
		res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, nil)
		owner, ok := res.Schedule.Owner("T1")
		if !ok || owner != "S1" {
			t.Fatalf("run %d: T1 owner = %q, want S1", i, owner)
		}
	}
}

func TestMerge_SingleCursorAcrossSatellites(t *testing.T) {
	sats := []model.SatelliteProfile{
		boundedSatellite("S1", 10, -10, 10),
		boundedSatellite("S2", 10, -10, 10),
	}
	windows := map[string][]model.ObservationWindow{
		"S1": {window("S1", "T1", 0, 5, 0.5)},
		"S2": {window("S2", "T2", 0, 3, 0.5)},
	}
	downloads := map[string][]model.DownloadInterval{
		// Fits before S1's window, but S2's window already moved the cursor to 3.
		"S1": {{TaskID: "D1", SetupTime: 0, StartTime: 1, ProcessingTime: 1}},
	}

	res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, downloads)
	if got := taskIDs(res.Schedule["S1"]); len(got) != 1 || got[0] != "T1" {
		t.Fatalf("S1 plan = %v, want [T1]", got)
	}
}

func TestMerge_DownloadNeverPlacedTwice(t *testing.T) {
	sats := []model.SatelliteProfile{boundedSatellite("S1", 10, -10, 10)}
	windows := map[string][]model.ObservationWindow{
		"S1": {window("S1", "T1", 0, 2, 0), window("S1", "T2", 0, 3, 0)},
	}
	downloads := map[string][]model.DownloadInterval{
		"S1": {{TaskID: "D1", SetupTime: 0, StartTime: 2, ProcessingTime: 0}},
	}

	res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, downloads)
	if n := res.Schedule["S1"].Count(model.ProcessDownload); n != 1 {
		t.Fatalf("D1 placed %d times, want 1 (plan %v)", n, taskIDs(res.Schedule["S1"]))
	}
}

func TestMerge_TailPolicy(t *testing.T) {
	sats := []model.SatelliteProfile{boundedSatellite("S1", 10, -10, 10)}
	downloads := map[string][]model.DownloadInterval{
		"S1": {{TaskID: "D1", SetupTime: 0.2, StartTime: 1, ProcessingTime: 1}},
	}

	tests := []struct {
		policy TailPolicy
		want   int
	}{
		{TailFromZero, 1},
		{TailSkip, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			res := mustMerge(t, NewMerger(DefaultParams(), WithTailPolicy(tt.policy)), sats, nil, downloads)
			if got := len(res.Schedule["S1"]); got != tt.want {
				t.Fatalf("plan length = %d, want %d", got, tt.want)
			}
			if tt.want == 1 {
				e := res.Schedule["S1"][0]
				if !approxEqual(e.DataStatus, -1, 1e-12) || !approxEqual(e.EnergyStatus, 0.02, 1e-12) {
					t.Fatalf("tail entry status = (%v, %v), want (-1, 0.02)", e.DataStatus, e.EnergyStatus)
				}
			}
		})
	}
}

func TestMerge_PlanInvariants(t *testing.T) {
	sats, tasks := buildFixture()
	sats[1].DataMax = 0.02
	sats[2].EnergyMin = -0.01

	windows, err := NewWindowBuilder(DefaultParams()).BuildAll(context.Background(), sats, tasks)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	downloads := map[string][]model.DownloadInterval{
		"S1": {
			{TaskID: "D1", SetupTime: 0.01, StartTime: 0.02, ProcessingTime: 0.01},
			{TaskID: "D2", SetupTime: 0.1, StartTime: 2, ProcessingTime: 0.5},
		},
		"S2": {{TaskID: "D3", SetupTime: 0, StartTime: 0.5, ProcessingTime: 0.2}},
	}

	res := mustMerge(t, NewMerger(DefaultParams()), sats, windows, downloads)

	seen := map[string]string{}
	for _, sat := range sats {
		plan := res.Schedule[sat.ID]
		for i, e := range plan {
			if i > 0 && e.StartTime < plan[i-1].StartTime {
				t.Fatalf("%s: start times decrease at %d", sat.ID, i)
			}
			if e.Kind != model.ProcessObservation {
				continue
			}
			if !sat.DataWithin(e.DataStatus) || !sat.EnergyWithin(e.EnergyStatus) {
				t.Fatalf("%s: observation %s out of bounds (%v, %v)", sat.ID, e.TaskID, e.DataStatus, e.EnergyStatus)
			}
			if other, dup := seen[e.TaskID]; dup {
				t.Fatalf("task %s scheduled on %s and %s", e.TaskID, other, sat.ID)
			}
			seen[e.TaskID] = sat.ID
		}
	}
	if res.Stats.ObservationsCommitted+res.Stats.ObservationsDropped != res.Stats.TasksClaimed {
		t.Fatalf("every claimed task should be committed or dropped: %+v", res.Stats)
	}
}

func TestMerge_Errors(t *testing.T) {
	m := NewMerger(DefaultParams())

	dup := []model.SatelliteProfile{boundedSatellite("S1", 1, 0, 1), boundedSatellite("S1", 1, 0, 1)}
	if _, err := m.Merge(context.Background(), dup, nil, nil); err == nil {
		t.Fatalf("expected duplicate satellite error")
	}

	sats := []model.SatelliteProfile{boundedSatellite("S1", 1, 0, 1)}
	unknown := map[string][]model.ObservationWindow{"S9": {window("S9", "T1", 0, 1, 1)}}
	if _, err := m.Merge(context.Background(), sats, unknown, nil); err == nil {
		t.Fatalf("expected unknown satellite error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	windows := map[string][]model.ObservationWindow{"S1": {window("S1", "T1", 0, 1, 1)}}
	if _, err := m.Merge(ctx, sats, windows, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseTailPolicy(t *testing.T) {
	for in, want := range map[string]TailPolicy{"": TailFromZero, "zero": TailFromZero, " SKIP ": TailSkip} {
		got, err := ParseTailPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseTailPolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTailPolicy("later"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestClaimRegistry_Concurrent(t *testing.T) {
	r := NewClaimRegistry()
	var wg sync.WaitGroup
	wins := make(chan string, 16)

	for i := 0; i < 16; i++ {
		sat := string(rune('A' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Claim("T1", sat) {
				wins <- sat
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %v", winners)
	}
	holder, ok := r.Holder("T1")
	if !ok || holder != winners[0] {
		t.Fatalf("holder = %q, want %q", holder, winners[0])
	}
	if !r.IsClaimed("T1") || r.IsClaimed("T2") || r.Len() != 1 {
		t.Fatalf("unexpected registry state")
	}
}
