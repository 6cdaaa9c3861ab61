package device

import "time"

// Kind discriminates the device variants. Every Device carries exactly one
// Kind, and validation of mutable fields dispatches on it.
type Kind string

// Kind constants.
const (
	KindLight      Kind = "light"
	KindThermostat Kind = "thermostat"
	KindLock       Kind = "lock"
)

// AllKinds returns all valid device kinds.
func AllKinds() []Kind {
	return []Kind{KindLight, KindThermostat, KindLock}
}

// ColorTemperature is the colour setting of a light.
type ColorTemperature string

// ColorTemperature constants.
const (
	ColorWarm      ColorTemperature = "warm"
	ColorWarmWhite ColorTemperature = "warm-white"
	ColorWhite     ColorTemperature = "white"
	ColorCoolWhite ColorTemperature = "cool-white"
	ColorCool      ColorTemperature = "cool"
)

// AllColorTemperatures returns all valid colour temperature values.
func AllColorTemperatures() []ColorTemperature {
	return []ColorTemperature{ColorWarm, ColorWarmWhite, ColorWhite, ColorCoolWhite, ColorCool}
}

// Bounds for numeric device fields. Writes outside these bounds are rejected,
// never clamped.
const (
	MinBrightness = 0
	MaxBrightness = 100

	MinTargetTemperature = 16
	MaxTargetTemperature = 30
)

// Device represents one simulated smart-home entity.
//
// The ID is structured as "location/kind/instance" and is immutable after
// seeding; Room is the ID's location segment. Fields that only apply to some
// kinds are pointers and omitted from JSON when absent, but the source of
// truth for which fields a device carries is Kind, not pointer-nil checks:
// validation dispatches on Kind and rejects writes to inapplicable fields.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room"`
	Kind Kind   `json:"kind"`

	// IsOn applies to lights and thermostats. Locks have no power concept.
	IsOn *bool `json:"is_on,omitempty"`

	// Light fields.
	Brightness       *int              `json:"brightness,omitempty"`
	ColorTemperature *ColorTemperature `json:"color_temperature,omitempty"`

	// Thermostat fields. CurrentTemperature is sensor-driven: only the
	// simulator and telemetry ingest may change it, never a command.
	TargetTemperature  *int `json:"target_temperature,omitempty"`
	CurrentTemperature *int `json:"current_temperature,omitempty"`

	// Lock fields.
	IsLocked *bool `json:"is_locked,omitempty"`

	// LastUpdated is stamped on every mutation and is monotonically
	// non-decreasing per device.
	LastUpdated time.Time `json:"last_updated"`
}

// Copy returns an independent copy of the Device. Pointer fields are cloned
// so callers can never reach into the store's copy.
func (d *Device) Copy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.IsOn = copyBool(d.IsOn)
	cpy.Brightness = copyInt(d.Brightness)
	cpy.TargetTemperature = copyInt(d.TargetTemperature)
	cpy.CurrentTemperature = copyInt(d.CurrentTemperature)
	cpy.IsLocked = copyBool(d.IsLocked)

	if d.ColorTemperature != nil {
		ct := *d.ColorTemperature
		cpy.ColorTemperature = &ct
	}

	return &cpy
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	b := *v
	return &b
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	i := *v
	return &i
}

// Update is a partial mutation of a device's commandable or sensor fields.
// Nil pointer fields are left untouched. TogglePower and ToggleLock flip the
// corresponding boolean inside the store's critical section, so two
// concurrent toggles always observe each other.
type Update struct {
	IsOn        *bool `json:"is_on,omitempty"`
	TogglePower bool  `json:"-"`

	Brightness       *int              `json:"brightness,omitempty"`
	ColorTemperature *ColorTemperature `json:"color_temperature,omitempty"`

	TargetTemperature *int `json:"target_temperature,omitempty"`

	// CurrentTemperature is accepted only from the simulator and telemetry
	// ingest; the command layer rejects it before it reaches the store.
	CurrentTemperature *int `json:"current_temperature,omitempty"`

	IsLocked   *bool `json:"is_locked,omitempty"`
	ToggleLock bool  `json:"-"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u Update) IsEmpty() bool {
	return u.IsOn == nil && !u.TogglePower &&
		u.Brightness == nil && u.ColorTemperature == nil &&
		u.TargetTemperature == nil && u.CurrentTemperature == nil &&
		u.IsLocked == nil && !u.ToggleLock
}

// Fields holds the changed fields of one committed mutation, keyed by JSON
// field name. It is the payload of a broadcast delta: only what changed,
// never a full device dump.
type Fields map[string]any

// Event is one committed store mutation. Seq is the global commit sequence:
// it increases by one per successful Apply, across all devices, and defines
// the fan-out order for every connected viewer.
type Event struct {
	Seq      uint64 `json:"seq"`
	DeviceID string `json:"device_id"`
	Changed  Fields `json:"updated_fields"`
}
