// Package telemetry persists thermostat temperature readings.
//
// Readings are stored in SQLite and served newest-first by the history
// endpoint. The simulator records a reading after every tick that moved a
// temperature; the ingest endpoint records readings posted by external
// sensors. A background prune loop enforces the configured retention.
package telemetry
