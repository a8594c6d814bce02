package core

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

func testSatellite(id string, lon, lat float64) model.SatelliteProfile {
	return model.SatelliteProfile{
		ID:         id,
		Longitude:  lon,
		Latitude:   lat,
		AltitudeKm: 500,
		C1:         0.01,
		C2:         0.05,
		DataMin:    0,
		DataMax:    100,
		EnergyMin:  -100,
		EnergyMax:  100,
	}
}

func TestBuildForSatellite_OrderAndSetup(t *testing.T) {
	sat := testSatellite("S1", 0, 0)
	tasks := []model.ObservationTask{
		{ID: "T1", StripLongitude: 0, StripLatitude: 1, StripLengthKm: 167},
		{ID: "T2", StripLongitude: 0, StripLatitude: -0.5, StripLengthKm: 83.5},
		{ID: "T3", StripLongitude: 2, StripLatitude: 0, StripLengthKm: 0},
	}

	b := NewWindowBuilder(Params{})
	windows := b.BuildForSatellite(sat, tasks)

	gotIDs := make([]string, len(windows))
	for i, w := range windows {
		gotIDs[i] = w.TaskID
		if w.SatelliteID != "S1" {
			t.Fatalf("window %d has satellite %q", i, w.SatelliteID)
		}
	}
	if want := []string{"T2", "T1", "T3"}; !reflect.DeepEqual(gotIDs, want) {
		t.Fatalf("window order = %v, want %v", gotIDs, want)
	}

	for i := 1; i < len(windows); i++ {
		if windows[i].StartTime < windows[i-1].StartTime {
			t.Fatalf("start times not ascending at %d: %v < %v", i, windows[i].StartTime, windows[i-1].StartTime)
		}
	}

	// The sensor starts at zero roll.
	first := windows[0]
	wantSetup := sat.C1*math.Abs(first.RollAngleDeg) + sat.C2
	if !approxEqual(first.SetupTime, wantSetup, 1e-12) {
		t.Fatalf("first setup = %v, want %v", first.SetupTime, wantSetup)
	}
	for i := 1; i < len(windows); i++ {
		want := sat.C1*math.Abs(windows[i].RollAngleDeg-windows[i-1].RollAngleDeg) + sat.C2
		if !approxEqual(windows[i].SetupTime, want, 1e-12) {
			t.Fatalf("setup[%d] = %v, want %v", i, windows[i].SetupTime, want)
		}
	}

	byID := map[string]model.ObservationWindow{}
	for _, w := range windows {
		byID[w.TaskID] = w
	}
	if !approxEqual(byID["T1"].ProcessingTime, 0.1, 1e-12) {
		t.Fatalf("T1 processing = %v, want 0.1", byID["T1"].ProcessingTime)
	}
	if !approxEqual(byID["T2"].ProcessingTime, 0.05, 1e-12) {
		t.Fatalf("T2 processing = %v, want 0.05", byID["T2"].ProcessingTime)
	}
	if byID["T3"].ProcessingTime != 0 || byID["T3"].RollAngleDeg != 0 {
		t.Fatalf("T3 window = %+v, want zero processing and roll", byID["T3"])
	}
}

func TestBuildForSatellite_TiesKeepInsertionOrder(t *testing.T) {
	sat := testSatellite("S1", 10, 10)
	tasks := []model.ObservationTask{
		{ID: "B", StripLongitude: 11, StripLatitude: 10, StripLengthKm: 10},
		{ID: "A", StripLongitude: 11, StripLatitude: 10, StripLengthKm: 10},
	}

	windows := NewWindowBuilder(DefaultParams()).BuildForSatellite(sat, tasks)
	if windows[0].TaskID != "B" || windows[1].TaskID != "A" {
		t.Fatalf("tied windows reordered: %s, %s", windows[0].TaskID, windows[1].TaskID)
	}
	// Same roll, so the second setup is only the fixed part.
	if windows[1].SetupTime != sat.C2 {
		t.Fatalf("second setup = %v, want %v", windows[1].SetupTime, sat.C2)
	}
}

func TestBuildForSatellite_NoTasks(t *testing.T) {
	windows := NewWindowBuilder(DefaultParams()).BuildForSatellite(testSatellite("S1", 0, 0), nil)
	if len(windows) != 0 {
		t.Fatalf("expected no windows, got %d", len(windows))
	}
}

func TestSetupTime(t *testing.T) {
	sat := model.SatelliteProfile{C1: 0.5, C2: 1}
	if got := SetupTime(sat, -2, 3); got != 3.5 {
		t.Fatalf("SetupTime = %v, want 3.5", got)
	}
	if got := SetupTime(sat, 3, 3); got != 1 {
		t.Fatalf("SetupTime with no roll change = %v, want 1", got)
	}
}

func buildFixture() ([]model.SatelliteProfile, []model.ObservationTask) {
	sats := []model.SatelliteProfile{
		testSatellite("S1", 0, 0),
		testSatellite("S2", 5, 2),
		testSatellite("S3", -4, -1),
		testSatellite("S4", 12, 6),
	}
	tasks := []model.ObservationTask{
		{ID: "T1", StripLongitude: 1, StripLatitude: 1, StripLengthKm: 40},
		{ID: "T2", StripLongitude: 6, StripLatitude: 3, StripLengthKm: 20},
		{ID: "T3", StripLongitude: -3, StripLatitude: -2, StripLengthKm: 60},
		{ID: "T4", StripLongitude: 13, StripLatitude: 5, StripLengthKm: 10},
		{ID: "T5", StripLongitude: 8, StripLatitude: 0, StripLengthKm: 30},
	}
	return sats, tasks
}

func TestBuildAll_IndependentOfWorkerCount(t *testing.T) {
	sats, tasks := buildFixture()

	serial, err := NewWindowBuilder(DefaultParams(), WithBuilderWorkers(1)).BuildAll(context.Background(), sats, tasks)
	if err != nil {
		t.Fatalf("serial BuildAll: %v", err)
	}
	parallel, err := NewWindowBuilder(DefaultParams(), WithBuilderWorkers(8)).BuildAll(context.Background(), sats, tasks)
	if err != nil {
		t.Fatalf("parallel BuildAll: %v", err)
	}
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatalf("window sets differ between worker counts")
	}

	for _, sat := range sats {
		want := NewWindowBuilder(DefaultParams()).BuildForSatellite(sat, tasks)
		if !reflect.DeepEqual(serial[sat.ID], want) {
			t.Fatalf("BuildAll(%s) differs from BuildForSatellite", sat.ID)
		}
	}
}

func TestBuildAll_DuplicateSatellite(t *testing.T) {
	sats := []model.SatelliteProfile{testSatellite("S1", 0, 0), testSatellite("S1", 1, 1)}
	_, err := NewWindowBuilder(DefaultParams()).BuildAll(context.Background(), sats, nil)
	if err == nil {
		t.Fatalf("expected duplicate satellite error")
	}
}

func TestBuildAll_Cancelled(t *testing.T) {
	sats, tasks := buildFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWindowBuilder(DefaultParams()).BuildAll(ctx, sats, tasks)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildAll_RecordsWindowCount(t *testing.T) {
	sats, tasks := buildFixture()
	rec := &countingRecorder{}

	if _, err := NewWindowBuilder(DefaultParams(), WithBuilderMetrics(rec)).BuildAll(context.Background(), sats, tasks); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if want := len(sats) * len(tasks); rec.windows != want {
		t.Fatalf("windows recorded = %d, want %d", rec.windows, want)
	}
}
