// Package device provides the device state store for Hearth Core.
//
// The Store is the authoritative in-memory catalogue of all simulated
// devices. Every mutation in the system, whether a user command, a
// simulator tick, or a telemetry ingest, is committed through Store.Apply,
// which validates the update against the device's kind, stamps a global
// sequence number, and emits a delta event for the websocket fan-out.
//
// # Key Types
//
//   - Device: one entity, discriminated by Kind (light, thermostat, lock)
//   - Update: a partial mutation; nil fields are untouched
//   - Event: one committed mutation with its sequence number and changed fields
//   - SeedDevice: the YAML shape used to populate the store at startup
//
// # Usage
//
//	store, err := device.NewStore(device.DefaultSeed())
//	if err != nil {
//	    return err
//	}
//	store.SetLogger(log)
//
//	// Apply a partial update
//	on := true
//	dev, err := store.Apply("kitchen/light/ceiling-01", device.Update{IsOn: &on})
//
//	// Consistent snapshot for a new viewer
//	devices, seq := store.Snapshot()
//
//	// Delta stream for the broadcaster
//	for ev := range store.Events() {
//	    // fan out ev; skip events with ev.Seq <= a viewer's snapshot seq
//	}
//
// # Thread Safety
//
// The Store is safe for concurrent use. Apply commits atomically under a
// write lock; interleaved updates never produce a torn device. Snapshot and
// the event stream share the same lock discipline, so a snapshot plus every
// later event replays each mutation exactly once.
package device
