// Package simulator drives thermostat temperature drift on a fixed period.
//
// Each tick moves every thermostat's current temperature one whole degree
// toward its target without overshooting, then wobbles at most one degree
// around the target once reached. Changes are committed through the device
// store like any other mutation, so connected dashboards see them as
// ordinary deltas, and each change is recorded as a telemetry reading and
// optionally pushed to InfluxDB.
//
// The drift sequence is fully deterministic for a given seed and tick
// count, which keeps demo output stable and tests exact.
package simulator
