package command

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomvassey/hearth-core/internal/device"
)

// Sentinel errors for command handling.
var (
	// ErrUnknownCommand indicates a command name outside the supported set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingParam indicates a command invoked without a required
	// parameter.
	ErrMissingParam = errors.New("missing command parameter")
)

// Logger defines the logging interface used by the Processor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Command names accepted by Execute.
const (
	CmdTogglePower          = "toggle_power"
	CmdSetBrightness        = "set_brightness"
	CmdSetColorTemperature  = "set_color_temperature"
	CmdSetTargetTemperature = "set_target_temperature"
	CmdToggleLock           = "toggle_lock"
)

// Params carries a command's named parameters.
type Params struct {
	Brightness        *int                     `json:"brightness,omitempty"`
	ColorTemperature  *device.ColorTemperature `json:"color_temperature,omitempty"`
	TargetTemperature *int                     `json:"target_temperature,omitempty"`
}

// Result is the outcome of an accepted command or patch. CommandID uniquely
// identifies the accepted mutation for client-side correlation.
type Result struct {
	CommandID string         `json:"command_id"`
	Device    *device.Device `json:"device"`
}

// Processor translates user intents into store updates. It is the only write
// path for commands: it enforces the command vocabulary and shields
// sensor-owned fields from user writes before anything reaches the store.
type Processor struct {
	store  *device.Store
	logger Logger
}

// NewProcessor creates a command processor backed by the given store.
func NewProcessor(store *device.Store) *Processor {
	return &Processor{store: store, logger: noopLogger{}}
}

// SetLogger sets the logger for the processor.
func (p *Processor) SetLogger(logger Logger) {
	p.logger = logger
}

// Execute runs a named command against a device. The update is validated and
// committed atomically by the store; Execute only builds it.
func (p *Processor) Execute(deviceID, name string, params Params) (*Result, error) {
	var u device.Update

	switch name {
	case CmdTogglePower:
		u.TogglePower = true
	case CmdSetBrightness:
		if params.Brightness == nil {
			return nil, fmt.Errorf("%w: %s requires brightness", ErrMissingParam, name)
		}
		u.Brightness = params.Brightness
	case CmdSetColorTemperature:
		if params.ColorTemperature == nil {
			return nil, fmt.Errorf("%w: %s requires color_temperature", ErrMissingParam, name)
		}
		u.ColorTemperature = params.ColorTemperature
	case CmdSetTargetTemperature:
		if params.TargetTemperature == nil {
			return nil, fmt.Errorf("%w: %s requires target_temperature", ErrMissingParam, name)
		}
		u.TargetTemperature = params.TargetTemperature
	case CmdToggleLock:
		u.ToggleLock = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	return p.commit(deviceID, name, u)
}

// ApplyPatch commits a partial state update from a user, such as a PATCH
// request body. Sensor-owned fields are rejected: current_temperature is
// written only by the simulator and telemetry ingest.
func (p *Processor) ApplyPatch(deviceID string, u device.Update) (*Result, error) {
	if u.CurrentTemperature != nil {
		return nil, fmt.Errorf("%w: current_temperature is read-only", device.ErrInvalidForKind)
	}
	return p.commit(deviceID, "patch", u)
}

func (p *Processor) commit(deviceID, name string, u device.Update) (*Result, error) {
	d, err := p.store.Apply(deviceID, u)
	if err != nil {
		p.logger.Debug("command rejected",
			"command", name, "device_id", deviceID, "error", err)
		return nil, err
	}

	res := &Result{CommandID: uuid.NewString(), Device: d}
	p.logger.Info("command applied",
		"command", name, "command_id", res.CommandID, "device_id", d.ID)
	return res, nil
}
