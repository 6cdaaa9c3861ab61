package telemetry

import (
	"context"
	"time"
)

// Reading source values.
const (
	SourceSimulator = "simulator"
	SourceIngest    = "ingest"
)

// Reading represents a single temperature observation for a thermostat.
//
// Readings come from two places: the background simulator records one after
// each tick that changed a device, and the ingest endpoint records readings
// posted by external sensors. Both flow through the same repository so the
// history endpoint sees one merged timeline.
type Reading struct {
	// ID is the auto-incremented primary key for the reading row.
	ID int64 `json:"id"`

	// DeviceID is the unique identifier of the thermostat.
	DeviceID string `json:"device_id"`

	// Temperature is the observed temperature in whole degrees Celsius.
	Temperature int `json:"temperature"`

	// Source identifies how the reading was recorded (simulator, ingest).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the observation (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves temperature readings.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record persists one reading.
	Record(ctx context.Context, deviceID string, temperature int, source string) error

	// History returns recent readings for the device, newest first. The
	// limit may be clamped by the implementation.
	History(ctx context.Context, deviceID string, limit int) ([]Reading, error)

	// Prune deletes readings older than the given retention duration and
	// returns the number of rows removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
