// Package core implements the FIFO observation/download scheduler: the
// geometry that turns satellite and strip coordinates into observation
// windows, the per-satellite window builder, and the plan merger that
// interleaves downloads and observations under data and energy limits.
//
// Satellites are treated as geo-stationary or moving on circles concentric
// with the Earth, so the sub-satellite track and the strip share an arc angle.
// Distances are kilometres, angles degrees and times hours from the scenario
// epoch.
package core

import "math"

const (
	// EarthRadiusKm is the equatorial Earth radius used by the geometry.
	EarthRadiusKm = 6378.137
	// EarthVelocityKmh is the ground speed used to turn distances into times.
	EarthVelocityKmh = 1670.0
	// KmPerDegreeLatitude approximates one degree of latitude near the equator.
	KmPerDegreeLatitude = 110.537
)

// DistanceAndRoll returns the orbital distance the satellite travels before
// reaching the strip and the signed sensor roll needed to image it, using
// DefaultParams.
func DistanceAndRoll(satLat, satLon, stripLat, stripLon, altitudeKm float64) (distanceKm, rollDeg float64) {
	return DefaultParams().DistanceAndRoll(satLat, satLon, stripLat, stripLon, altitudeKm)
}

// DistanceAndRoll returns the orbital distance in kilometres and the roll
// angle in degrees for a satellite at (satLat, satLon, altitudeKm) imaging a
// strip at (stripLat, stripLon).
//
// The haversine arc to the strip and the latitude offset are combined with
// the spherical Pythagorean relation and the resulting arc is scaled out to
// the orbit radius. The roll angle uses flat-Earth trigonometry over the
// latitude offset. Inputs are not validated: a zero altitude yields ±90° or
// NaN.
func (p Params) DistanceAndRoll(satLat, satLon, stripLat, stripLon, altitudeKm float64) (distanceKm, rollDeg float64) {
	radius := p.EarthRadiusKm

	havr := haversineKm(satLat, satLon, stripLat, stripLon, radius)
	perp := (stripLat - satLat) * p.KmPerDegreeLatitude

	angHavr := havr / radius
	angPerp := perp / radius
	ang := math.Acos(clamp(math.Cos(angHavr)*math.Cos(angPerp), -1, 1))

	distanceKm = ang * (radius + altitudeKm)
	rollDeg = math.Atan(perp/altitudeKm) * 180.0 / math.Pi
	return distanceKm, rollDeg
}

func haversineKm(lat1, lon1, lat2, lon2, radius float64) float64 {
	phi1 := degToRad(lat1)
	phi2 := degToRad(lat2)
	dPhi := degToRad(lat2 - lat1)
	dLambda := degToRad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Asin(math.Sqrt(clamp(a, 0, 1)))
	return radius * c
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
