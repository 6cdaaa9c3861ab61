package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedDevice is the YAML shape of one seeded device. Room is derived from
// the ID, never declared.
type SeedDevice struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	IsOn             *bool             `yaml:"is_on"`
	Brightness       *int              `yaml:"brightness"`
	ColorTemperature *ColorTemperature `yaml:"color_temperature"`

	TargetTemperature  *int `yaml:"target_temperature"`
	CurrentTemperature *int `yaml:"current_temperature"`

	IsLocked *bool `yaml:"is_locked"`
}

// seedFile is the top level of a YAML seed file.
type seedFile struct {
	Devices []SeedDevice `yaml:"devices"`
}

// LoadSeed reads a YAML seed file and converts it into devices, filling in
// kind-appropriate defaults for omitted fields.
func LoadSeed(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(sf.Devices) == 0 {
		return nil, fmt.Errorf("seed file %s declares no devices", path)
	}

	devices := make([]Device, 0, len(sf.Devices))
	for _, sd := range sf.Devices {
		d, err := sd.toDevice()
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (sd SeedDevice) toDevice() (Device, error) {
	if !validKind(sd.Kind) {
		return Device{}, fmt.Errorf("%w: seed device %q has unknown kind %q",
			ErrInvalidID, sd.ID, sd.Kind)
	}

	d := Device{
		ID:   sd.ID,
		Name: sd.Name,
		Kind: sd.Kind,
	}

	switch sd.Kind {
	case KindLight:
		d.IsOn = boolOrDefault(sd.IsOn, true)
		d.Brightness = intOrDefault(sd.Brightness, 65)
		d.ColorTemperature = colorOrDefault(sd.ColorTemperature, ColorWhite)
		if !validColorTemperature(*d.ColorTemperature) {
			return Device{}, fmt.Errorf("%w: seed device %q color_temperature %q",
				ErrInvalidEnum, sd.ID, *d.ColorTemperature)
		}
	case KindThermostat:
		d.IsOn = boolOrDefault(sd.IsOn, true)
		d.TargetTemperature = intOrDefault(sd.TargetTemperature, 22)
		d.CurrentTemperature = intOrDefault(sd.CurrentTemperature, 21)
	case KindLock:
		d.IsLocked = boolOrDefault(sd.IsLocked, true)
	}

	return d, nil
}

func boolOrDefault(v *bool, def bool) *bool {
	if v != nil {
		b := *v
		return &b
	}
	return &def
}

func intOrDefault(v *int, def int) *int {
	if v != nil {
		i := *v
		return &i
	}
	return &def
}

func colorOrDefault(v *ColorTemperature, def ColorTemperature) *ColorTemperature {
	if v != nil {
		ct := *v
		return &ct
	}
	return &def
}

// DefaultSeed returns the built-in demo home: ten devices across four rooms,
// used when no seed file is configured.
func DefaultSeed() []Device {
	mk := func(sd SeedDevice) Device {
		d, err := sd.toDevice()
		if err != nil {
			panic(err) // built-in seed is static and always valid
		}
		return d
	}

	return []Device{
		mk(SeedDevice{ID: "living-room/lock/front-door-01", Name: "Front Door Lock", Kind: KindLock,
			IsLocked: ptr(true)}),
		mk(SeedDevice{ID: "living-room/light/ceiling-01", Name: "Living Room Light", Kind: KindLight,
			Brightness: ptr(65), ColorTemperature: ptr(ColorWhite)}),
		mk(SeedDevice{ID: "living-room/thermostat/wall-01", Name: "Smart Thermostat", Kind: KindThermostat,
			TargetTemperature: ptr(22), CurrentTemperature: ptr(21)}),
		mk(SeedDevice{ID: "kitchen/light/ceiling-01", Name: "Kitchen Ceiling Light", Kind: KindLight,
			Brightness: ptr(80), ColorTemperature: ptr(ColorWarmWhite)}),
		mk(SeedDevice{ID: "kitchen/light/under-cabinet-01", Name: "Under-Cabinet Lights", Kind: KindLight,
			IsOn: ptr(false), Brightness: ptr(45), ColorTemperature: ptr(ColorCoolWhite)}),
		mk(SeedDevice{ID: "bedroom/light/ceiling-01", Name: "Bedroom Main Light", Kind: KindLight,
			IsOn: ptr(false), Brightness: ptr(30), ColorTemperature: ptr(ColorWarm)}),
		mk(SeedDevice{ID: "bedroom/light/bedside-01", Name: "Bedside Lamp", Kind: KindLight,
			Brightness: ptr(25), ColorTemperature: ptr(ColorWarm)}),
		mk(SeedDevice{ID: "bedroom/thermostat/wall-01", Name: "Bedroom Thermostat", Kind: KindThermostat,
			TargetTemperature: ptr(20), CurrentTemperature: ptr(19)}),
		mk(SeedDevice{ID: "bathroom/light/vanity-01", Name: "Bathroom Vanity Light", Kind: KindLight,
			Brightness: ptr(90), ColorTemperature: ptr(ColorCool)}),
		mk(SeedDevice{ID: "bathroom/light/shower-01", Name: "Shower Light", Kind: KindLight,
			IsOn: ptr(false), Brightness: ptr(70), ColorTemperature: ptr(ColorWhite)}),
	}
}

func ptr[T any](v T) *T {
	return &v
}
