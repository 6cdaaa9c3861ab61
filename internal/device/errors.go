package device

import "errors"

// Sentinel errors returned by the device store and validation. Callers match
// with errors.Is; the API layer maps them onto HTTP status codes.
var (
	// ErrNotFound indicates the device ID does not exist in the store.
	ErrNotFound = errors.New("device not found")

	// ErrInvalidID indicates a device ID that does not follow the
	// "location/kind/instance" structure.
	ErrInvalidID = errors.New("invalid device id")

	// ErrDuplicateID indicates a seed contained the same device ID twice.
	ErrDuplicateID = errors.New("duplicate device id")

	// ErrOutOfRange indicates a numeric value outside its documented
	// bounds. Out-of-range values are rejected, never clamped.
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidForKind indicates a field write that does not apply to the
	// device's kind, such as brightness on a lock.
	ErrInvalidForKind = errors.New("field not valid for device kind")

	// ErrInvalidEnum indicates an enumerated value outside its allowed set.
	ErrInvalidEnum = errors.New("invalid enum value")

	// ErrEmptyUpdate indicates an update that carries no fields.
	ErrEmptyUpdate = errors.New("empty update")
)
