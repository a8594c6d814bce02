package model

// ObservationTask is a ground strip to be imaged. The location is the
// west-most point of the strip, mid-way across its width; the width itself
// does not influence the observation time.
type ObservationTask struct {
	ID             string
	StripLongitude float64
	StripLatitude  float64
	StripLengthKm  float64
}

// DownloadInterval is a candidate window for dumping the onboard buffer to a
// ground station. All times are in hours from the scenario epoch.
type DownloadInterval struct {
	TaskID          string
	GroundStationID string
	SetupTime       float64
	StartTime       float64
	ProcessingTime  float64
}

// ReadyAt returns the time the link set-up has to begin.
func (d DownloadInterval) ReadyAt() float64 {
	return d.StartTime - d.SetupTime
}

// EndTime returns the time the download finishes.
func (d DownloadInterval) EndTime() float64 {
	return d.StartTime + d.ProcessingTime
}
