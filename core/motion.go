package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// SubPoint is a satellite's geodetic sub-point and altitude at one instant.
type SubPoint struct {
	Longitude  float64 // degrees, [-180, 180]
	Latitude   float64 // degrees
	AltitudeKm float64
}

// PositionSource yields a satellite's sub-point at the scheduling epoch.
type PositionSource interface {
	SubPointAt(at time.Time) (SubPoint, error)
}

// StaticPosition returns a fixed sub-point.
type StaticPosition struct {
	Point SubPoint
}

// SubPointAt ignores the epoch.
func (s StaticPosition) SubPointAt(time.Time) (SubPoint, error) {
	return s.Point, nil
}

// OrbitalSGP4Position propagates a TLE with SGP4 to derive the sub-point.
type OrbitalSGP4Position struct {
	sat satellite.Satellite
}

// NewOrbitalPositionFromTLE parses a two-line element set. Lines are checked
// before they reach go-satellite, which exits the process on malformed input.
func NewOrbitalPositionFromTLE(line1, line2 string) (*OrbitalSGP4Position, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}
	return &OrbitalSGP4Position{sat: sat}, nil
}

// SubPointAt propagates to at (UTC) and converts the TEME position to
// latitude, longitude and altitude.
func (o *OrbitalSGP4Position) SubPointAt(at time.Time) (SubPoint, error) {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	pos, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return SubPoint{}, fmt.Errorf("sgp4 propagation failed: output is NaN/Inf")
	}
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return SubPoint{}, fmt.Errorf("sgp4 propagation failed: unreasonable position magnitude %.1f km", mag)
	}

	gmst := satellite.GSTimeFromDate(year, int(month), day, hour, min, sec)
	alt, _, ll := satellite.ECIToLLA(pos, gmst)

	return SubPoint{
		Longitude:  normalizeLongitude(ll.Longitude * 180 / math.Pi),
		Latitude:   ll.Latitude * 180 / math.Pi,
		AltitudeKm: alt,
	}, nil
}

// SubPointFromTLE is a one-shot helper for scenario loading.
func SubPointFromTLE(line1, line2 string, at time.Time) (SubPoint, error) {
	src, err := NewOrbitalPositionFromTLE(line1, line2)
	if err != nil {
		return SubPoint{}, err
	}
	return src.SubPointAt(at)
}

func validateTLELines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

func normalizeLongitude(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
