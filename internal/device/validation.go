package device

import (
	"fmt"
	"regexp"
	"strings"
)

// idSegment matches one segment of a device ID after normalisation:
// lowercase alphanumerics separated by single hyphens.
var idSegment = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// NormalizeID canonicalises a device ID or room name for lookup: lowercase,
// with underscores folded to hyphens. "Living_Room" and "living-room" refer
// to the same room.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "_", "-"))
}

// ValidateID checks that id follows the "location/kind/instance" structure
// and that its kind segment is a known Kind. The input must already be in
// canonical form; callers normalise first.
func ValidateID(id string) error {
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q must have form location/kind/instance", ErrInvalidID, id)
	}

	for _, part := range parts {
		if !idSegment.MatchString(part) {
			return fmt.Errorf("%w: segment %q in %q", ErrInvalidID, part, id)
		}
	}

	if !validKind(Kind(parts[1])) {
		return fmt.Errorf("%w: unknown kind %q in %q", ErrInvalidID, parts[1], id)
	}

	return nil
}

// RoomOf returns the location segment of a structured device ID, or the
// empty string if the ID is malformed.
func RoomOf(id string) string {
	parts := strings.SplitN(id, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func validKind(k Kind) bool {
	for _, v := range AllKinds() {
		if k == v {
			return true
		}
	}
	return false
}

func validColorTemperature(ct ColorTemperature) bool {
	for _, v := range AllColorTemperatures() {
		if ct == v {
			return true
		}
	}
	return false
}

// ValidateUpdate checks every field of u against the device's kind and the
// documented bounds. Validation is all-or-nothing: any invalid field rejects
// the whole update, and the caller applies none of it.
func ValidateUpdate(kind Kind, u Update) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}

	switch kind {
	case KindLight:
		return validateLightUpdate(u)
	case KindThermostat:
		return validateThermostatUpdate(u)
	case KindLock:
		return validateLockUpdate(u)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidForKind, kind)
	}
}

func validateLightUpdate(u Update) error {
	if u.TargetTemperature != nil {
		return fmt.Errorf("%w: target_temperature on light", ErrInvalidForKind)
	}
	if u.CurrentTemperature != nil {
		return fmt.Errorf("%w: current_temperature on light", ErrInvalidForKind)
	}
	if u.IsLocked != nil || u.ToggleLock {
		return fmt.Errorf("%w: is_locked on light", ErrInvalidForKind)
	}

	if u.Brightness != nil {
		if *u.Brightness < MinBrightness || *u.Brightness > MaxBrightness {
			return fmt.Errorf("%w: brightness %d not in [%d, %d]",
				ErrOutOfRange, *u.Brightness, MinBrightness, MaxBrightness)
		}
	}

	if u.ColorTemperature != nil && !validColorTemperature(*u.ColorTemperature) {
		return fmt.Errorf("%w: color_temperature %q", ErrInvalidEnum, *u.ColorTemperature)
	}

	return nil
}

func validateThermostatUpdate(u Update) error {
	if u.Brightness != nil {
		return fmt.Errorf("%w: brightness on thermostat", ErrInvalidForKind)
	}
	if u.ColorTemperature != nil {
		return fmt.Errorf("%w: color_temperature on thermostat", ErrInvalidForKind)
	}
	if u.IsLocked != nil || u.ToggleLock {
		return fmt.Errorf("%w: is_locked on thermostat", ErrInvalidForKind)
	}

	if u.TargetTemperature != nil {
		if *u.TargetTemperature < MinTargetTemperature || *u.TargetTemperature > MaxTargetTemperature {
			return fmt.Errorf("%w: target_temperature %d not in [%d, %d]",
				ErrOutOfRange, *u.TargetTemperature, MinTargetTemperature, MaxTargetTemperature)
		}
	}

	return nil
}

func validateLockUpdate(u Update) error {
	if u.IsOn != nil || u.TogglePower {
		return fmt.Errorf("%w: is_on on lock", ErrInvalidForKind)
	}
	if u.Brightness != nil {
		return fmt.Errorf("%w: brightness on lock", ErrInvalidForKind)
	}
	if u.ColorTemperature != nil {
		return fmt.Errorf("%w: color_temperature on lock", ErrInvalidForKind)
	}
	if u.TargetTemperature != nil {
		return fmt.Errorf("%w: target_temperature on lock", ErrInvalidForKind)
	}
	if u.CurrentTemperature != nil {
		return fmt.Errorf("%w: current_temperature on lock", ErrInvalidForKind)
	}

	return nil
}
