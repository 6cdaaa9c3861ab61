// Package command translates user intents into device store updates.
//
// The Processor is the single write path for user-initiated mutations. It
// accepts either a named command (toggle_power, set_brightness, and so on)
// or a raw partial update from a PATCH body, builds a device.Update, and
// lets the store validate and commit it atomically. Sensor-owned fields are
// refused here: a user can never write current_temperature, regardless of
// transport.
//
// Each accepted mutation gets a UUID command ID so clients can correlate
// their request with the delta they later receive over the websocket.
package command
