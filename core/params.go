package core

import (
	"errors"
	"fmt"
)

// ErrInvalidParams indicates the physical constants cannot drive a run.
var ErrInvalidParams = errors.New("invalid scheduler parameters")

// Params holds the physical constants and the resource rates applied per hour
// of activity. The zero value is not usable; start from DefaultParams.
type Params struct {
	EarthRadiusKm       float64 `yaml:"earth_radius_km"`
	EarthVelocityKmh    float64 `yaml:"earth_velocity_kmh"`
	KmPerDegreeLatitude float64 `yaml:"km_per_degree_latitude"`

	// ObservationDataRate is the buffer fill per hour of observation.
	ObservationDataRate float64 `yaml:"observation_data_rate"`
	// DownloadDataRate is the buffer drain per hour of download.
	DownloadDataRate float64 `yaml:"download_data_rate"`
	// ObservationEnergyRate is the battery draw per hour of observation.
	ObservationEnergyRate float64 `yaml:"observation_energy_rate"`
	// DownloadEnergyRate is the battery draw per hour of download.
	DownloadEnergyRate float64 `yaml:"download_energy_rate"`
	// SolarGainRate is the battery charge per hour of setup plus processing.
	SolarGainRate float64 `yaml:"solar_gain_rate"`
}

// DefaultParams returns the constants of the published FIFO model.
func DefaultParams() Params {
	return Params{
		EarthRadiusKm:         EarthRadiusKm,
		EarthVelocityKmh:      EarthVelocityKmh,
		KmPerDegreeLatitude:   KmPerDegreeLatitude,
		ObservationDataRate:   1,
		DownloadDataRate:      1,
		ObservationEnergyRate: 1,
		DownloadEnergyRate:    0.1,
		SolarGainRate:         0.1,
	}
}

// Validate rejects constants that would divide by zero or invert the sense of
// a rate.
func (p Params) Validate() error {
	if p.EarthRadiusKm <= 0 {
		return fmt.Errorf("%w: earth radius %.3f km must be positive", ErrInvalidParams, p.EarthRadiusKm)
	}
	if p.EarthVelocityKmh <= 0 {
		return fmt.Errorf("%w: earth velocity %.3f km/h must be positive", ErrInvalidParams, p.EarthVelocityKmh)
	}
	if p.KmPerDegreeLatitude <= 0 {
		return fmt.Errorf("%w: km per degree latitude must be positive", ErrInvalidParams)
	}
	if p.ObservationDataRate < 0 || p.DownloadDataRate < 0 ||
		p.ObservationEnergyRate < 0 || p.DownloadEnergyRate < 0 || p.SolarGainRate < 0 {
		return fmt.Errorf("%w: resource rates must be non-negative", ErrInvalidParams)
	}
	return nil
}

func (p Params) orDefault() Params {
	if p == (Params{}) {
		return DefaultParams()
	}
	return p
}
