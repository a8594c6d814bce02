package core

import (
	"math"
	"testing"
	"time"
)

// ISS sample TLE
const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestStaticPosition_NoChange(t *testing.T) {
	src := StaticPosition{Point: SubPoint{Longitude: 1, Latitude: 2, AltitudeKm: 3}}

	t1 := time.Now().UTC()
	for _, at := range []time.Time{t1, t1.Add(time.Hour)} {
		got, err := src.SubPointAt(at)
		if err != nil {
			t.Fatalf("SubPointAt: %v", err)
		}
		if got != (SubPoint{Longitude: 1, Latitude: 2, AltitudeKm: 3}) {
			t.Fatalf("static position changed: %+v", got)
		}
	}
}

// We don't assert exact orbital values (those belong to go-satellite); we
// check the sub-point is plausible for the ISS and moves over time.
func TestOrbitalSGP4Position_PlausibleAndMoving(t *testing.T) {
	src, err := NewOrbitalPositionFromTLE(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewOrbitalPositionFromTLE: %v", err)
	}

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	first, err := src.SubPointAt(t1)
	if err != nil {
		t.Fatalf("SubPointAt(t1): %v", err)
	}
	second, err := src.SubPointAt(t1.Add(5 * time.Minute))
	if err != nil {
		t.Fatalf("SubPointAt(t2): %v", err)
	}

	for _, sp := range []SubPoint{first, second} {
		if sp.AltitudeKm < 300 || sp.AltitudeKm > 500 {
			t.Fatalf("altitude %.1f km outside the ISS band", sp.AltitudeKm)
		}
		if math.Abs(sp.Latitude) > 52 {
			t.Fatalf("latitude %.3f exceeds the orbit inclination", sp.Latitude)
		}
		if sp.Longitude < -180 || sp.Longitude > 180 {
			t.Fatalf("longitude %.3f not normalised", sp.Longitude)
		}
	}
	if first == second {
		t.Fatalf("expected the sub-point to move over five minutes, got %+v twice", first)
	}
}

func TestNewOrbitalPositionFromTLE_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name         string
		line1, line2 string
	}{
		{name: "short line1", line1: "1 25544U", line2: issLine2},
		{name: "short line2", line1: issLine1, line2: "2 25544"},
		{name: "swapped lines", line1: issLine2, line2: issLine1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOrbitalPositionFromTLE(tt.line1, tt.line2); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNormalizeLongitude(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		190:  -170,
		-190: 170,
		540:  180 - 360,
		359:  -1,
	}
	for in, want := range tests {
		if got := normalizeLongitude(in); !approxEqual(got, want, 1e-9) {
			t.Fatalf("normalizeLongitude(%v) = %v, want %v", in, got, want)
		}
	}
}
