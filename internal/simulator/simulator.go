package simulator

import (
	"context"
	"time"

	"github.com/tomvassey/hearth-core/internal/device"
	"github.com/tomvassey/hearth-core/internal/telemetry"
)

// DefaultInterval is the tick period when none is configured, matching the
// cadence a real thermostat reports at.
const DefaultInterval = 30 * time.Second

// jitterTable is the deterministic wobble applied once a thermostat sits on
// its target: the reading drifts at most one degree off target and returns.
// Indexed by the per-device tick counter, so runs are reproducible.
var jitterTable = [...]int{0, 1, 0, 0, -1, 0, 0, 1, -1, 0, 0, 0, 1, 0, -1, 0}

// Logger defines the logging interface used by the Simulator.
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

// MetricWriter pushes a temperature sample to a time-series sink. Optional.
type MetricWriter interface {
	WriteTemperature(ctx context.Context, deviceID string, celsius float64) error
}

// Simulator drives thermostat temperature drift. Each tick steps every
// thermostat's current temperature one degree toward its target, never
// overshooting; a thermostat already on target wobbles deterministically
// within one degree. Every changed device is committed through the store,
// so each tick produces exactly one broadcast delta per changed device.
type Simulator struct {
	store    *device.Store
	recorder telemetry.Repository
	metrics  MetricWriter
	interval time.Duration
	logger   Logger

	ticks map[string]int // per-device tick counter, drives the jitter table
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRecorder persists a telemetry reading for every temperature change.
func WithRecorder(r telemetry.Repository) Option {
	return func(s *Simulator) { s.recorder = r }
}

// WithMetricWriter forwards temperature changes to a time-series sink.
func WithMetricWriter(w MetricWriter) Option {
	return func(s *Simulator) { s.metrics = w }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New creates a simulator over the given store.
func New(store *device.Store, opts ...Option) *Simulator {
	s := &Simulator{
		store:    store,
		interval: DefaultInterval,
		logger:   noopLogger{},
		ticks:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until the context is cancelled. The first tick fires
// immediately; subsequent ticks follow the configured interval. A failure on
// one device never stops the loop.
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("simulator started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick advances every thermostat by one step and returns the number of
// devices that changed. Exposed so callers and tests can drive the
// simulation without the ticker.
func (s *Simulator) Tick(ctx context.Context) int {
	changed := 0

	for _, d := range s.store.List("", device.KindThermostat) {
		tick := s.ticks[d.ID]
		s.ticks[d.ID] = tick + 1
		if d.CurrentTemperature == nil || d.TargetTemperature == nil {
			continue
		}

		next, ok := s.nextTemperature(tick, *d.CurrentTemperature, *d.TargetTemperature)
		if !ok {
			continue
		}

		if _, err := s.store.Apply(d.ID, device.Update{CurrentTemperature: &next}); err != nil {
			s.logger.Error("simulator update failed",
				"device_id", d.ID, "error", err)
			continue
		}
		changed++

		s.record(ctx, d.ID, next)
	}

	if changed > 0 {
		s.logger.Debug("simulator tick", "changed", changed)
	}
	return changed
}

// nextTemperature computes one drift step: toward target by one degree, or
// the deterministic wobble when already on target. ok is false when the
// reading should stay put this tick.
func (s *Simulator) nextTemperature(tick, current, target int) (next int, ok bool) {
	switch {
	case current < target:
		next = current + 1
	case current > target:
		next = current - 1
	default:
		next = target + jitterTable[tick%len(jitterTable)]
	}
	return next, next != current
}

func (s *Simulator) record(ctx context.Context, deviceID string, celsius int) {
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, deviceID, celsius, telemetry.SourceSimulator); err != nil {
			s.logger.Warn("recording telemetry failed",
				"device_id", deviceID, "error", err)
		}
	}
	if s.metrics != nil {
		if err := s.metrics.WriteTemperature(ctx, deviceID, float64(celsius)); err != nil {
			s.logger.Warn("writing temperature metric failed",
				"device_id", deviceID, "error", err)
		}
	}
}
