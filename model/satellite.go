package model

// SatelliteProfile describes one satellite of the constellation: where its
// sub-satellite point sits at hour 0, how expensive re-pointing its sensor is,
// and the bounds of its onboard data buffer and battery.
//
// DataStatus and EnergyStatus mirror the input table but are never read by
// the scheduler; every run starts both levels at zero.
type SatelliteProfile struct {
	ID string

	// Longitude and Latitude of the sub-satellite point, in degrees.
	Longitude float64
	Latitude  float64
	// AltitudeKm is the orbital altitude above the Earth's surface.
	AltitudeKm float64

	// C1 scales the roll-angle delta (hours per degree) and C2 is the fixed
	// part of the setup time (hours).
	C1 float64
	C2 float64

	DataMin    float64
	DataMax    float64
	DataStatus float64

	EnergyMin    float64
	EnergyMax    float64
	EnergyStatus float64
}

// DataWithin reports whether level lies inside [DataMin, DataMax].
func (p SatelliteProfile) DataWithin(level float64) bool {
	return level >= p.DataMin && level <= p.DataMax
}

// EnergyWithin reports whether level lies inside [EnergyMin, EnergyMax].
func (p SatelliteProfile) EnergyWithin(level float64) bool {
	return level >= p.EnergyMin && level <= p.EnergyMax
}
