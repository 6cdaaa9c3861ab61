package device

import (
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// eventBuffer is the capacity of the store's event channel. If the consumer
// stalls and the buffer fills, events are dropped with a warning rather than
// blocking writers.
const eventBuffer = 1024

// RoomAll is the filter value that matches every room.
const RoomAll = "all"

// Store is the authoritative in-memory device state. All reads and writes go
// through it; every other component (API, simulator, broadcaster) observes
// device state only via Store methods and the event stream.
//
// Each successful Apply commits atomically under the store's lock, stamps a
// global sequence number, and emits exactly one Event carrying the changed
// fields. The sequence order is the canonical ordering of mutations across
// all devices.
//
// All public methods are thread-safe.
type Store struct {
	mu      sync.RWMutex
	devices map[string]*Device
	order   []string // insertion order, for stable listings
	seq     uint64
	events  chan Event
	clock   func() time.Time
	logger  Logger
}

// NewStore creates a store populated with the given seed devices. Seed IDs
// are normalised and validated; a duplicate or malformed ID fails the whole
// seed.
func NewStore(seed []Device) (*Store, error) {
	s := &Store{
		devices: make(map[string]*Device, len(seed)),
		order:   make([]string, 0, len(seed)),
		events:  make(chan Event, eventBuffer),
		clock:   time.Now,
		logger:  noopLogger{},
	}

	now := s.clock().UTC()
	for i := range seed {
		d := seed[i].Copy()
		d.ID = NormalizeID(d.ID)
		if err := ValidateID(d.ID); err != nil {
			return nil, err
		}
		if _, exists := s.devices[d.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, d.ID)
		}

		d.Room = RoomOf(d.ID)
		if d.LastUpdated.IsZero() {
			d.LastUpdated = now
		}

		s.devices[d.ID] = d
		s.order = append(s.order, d.ID)
	}

	return s, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// setClock overrides the timestamp source. Test hook.
func (s *Store) setClock(clock func() time.Time) {
	s.clock = clock
}

// Events returns the store's event stream. Exactly one consumer (the
// broadcaster) should range over it.
func (s *Store) Events() <-chan Event {
	return s.events
}

// Get retrieves a device by ID. The ID is normalised before lookup. The
// returned device is a copy; callers can safely modify it.
func (s *Store) Get(id string) (*Device, error) {
	key := NormalizeID(id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return d.Copy(), nil
}

// List returns all devices in seed order, optionally filtered by room and
// kind. Room RoomAll (or empty) matches everything; an unknown room or kind
// simply yields an empty list. The returned devices are copies.
func (s *Store) List(room string, kind Kind) []Device {
	roomKey := NormalizeID(room)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Device, 0, len(s.order))
	for _, id := range s.order {
		d := s.devices[id]
		if roomKey != "" && roomKey != RoomAll && d.Room != roomKey {
			continue
		}
		if kind != "" && d.Kind != kind {
			continue
		}
		out = append(out, *d.Copy())
	}
	return out
}

// Rooms returns the distinct room names in first-seen seed order.
func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.order))
	rooms := make([]string, 0, len(s.order))
	for _, id := range s.order {
		room := s.devices[id].Room
		if _, ok := seen[room]; ok {
			continue
		}
		seen[room] = struct{}{}
		rooms = append(rooms, room)
	}
	return rooms
}

// Snapshot returns a copy of every device in seed order together with the
// sequence number of the last committed mutation. A viewer that receives the
// snapshot and then every event with Seq greater than the returned sequence
// sees each mutation exactly once.
func (s *Store) Snapshot() ([]Device, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.devices[id].Copy())
	}
	return out, s.seq
}

// Apply validates and commits a partial update against the device with the
// given ID. Validation is all-or-nothing: any invalid field rejects the
// whole update and the device is untouched. On success Apply returns a copy
// of the updated device and emits an Event carrying exactly the changed
// fields.
//
// The event is queued before Apply releases the store lock, so a Snapshot
// taken afterwards can never precede its own mutations in the stream.
func (s *Store) Apply(id string, u Update) (*Device, error) {
	key := NormalizeID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	if err := ValidateUpdate(d.Kind, u); err != nil {
		return nil, fmt.Errorf("device %q: %w", key, err)
	}

	// A valid update where no field differs is still a commit: last_updated
	// advances and viewers observe the write.
	changed := s.mutate(d, u)

	// Monotonic per-device timestamp even if the wall clock stalls.
	now := s.clock().UTC()
	if !now.After(d.LastUpdated) {
		now = d.LastUpdated.Add(time.Nanosecond)
	}
	d.LastUpdated = now
	changed["last_updated"] = now

	s.seq++
	s.publish(Event{Seq: s.seq, DeviceID: key, Changed: changed})

	return d.Copy(), nil
}

// mutate applies the already-validated update in place and returns the
// changed fields keyed by JSON name. Caller holds the write lock.
func (s *Store) mutate(d *Device, u Update) Fields {
	changed := make(Fields, 4)

	if u.TogglePower {
		v := d.IsOn == nil || !*d.IsOn
		d.IsOn = &v
		changed["is_on"] = v
	} else if u.IsOn != nil {
		v := *u.IsOn
		if d.IsOn == nil || *d.IsOn != v {
			d.IsOn = &v
			changed["is_on"] = v
		}
	}

	if u.Brightness != nil {
		v := *u.Brightness
		if d.Brightness == nil || *d.Brightness != v {
			d.Brightness = &v
			changed["brightness"] = v
		}
	}

	if u.ColorTemperature != nil {
		v := *u.ColorTemperature
		if d.ColorTemperature == nil || *d.ColorTemperature != v {
			d.ColorTemperature = &v
			changed["color_temperature"] = v
		}
	}

	if u.TargetTemperature != nil {
		v := *u.TargetTemperature
		if d.TargetTemperature == nil || *d.TargetTemperature != v {
			d.TargetTemperature = &v
			changed["target_temperature"] = v
		}
	}

	if u.CurrentTemperature != nil {
		v := *u.CurrentTemperature
		if d.CurrentTemperature == nil || *d.CurrentTemperature != v {
			d.CurrentTemperature = &v
			changed["current_temperature"] = v
		}
	}

	if u.ToggleLock {
		v := d.IsLocked == nil || !*d.IsLocked
		d.IsLocked = &v
		changed["is_locked"] = v
	} else if u.IsLocked != nil {
		v := *u.IsLocked
		if d.IsLocked == nil || *d.IsLocked != v {
			d.IsLocked = &v
			changed["is_locked"] = v
		}
	}

	return changed
}

// publish queues an event without blocking. A full buffer means the consumer
// has stalled badly; dropping keeps writers responsive, and any client that
// reconnects recovers from a fresh snapshot.
func (s *Store) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event buffer full, dropping event",
			"seq", ev.Seq, "device_id", ev.DeviceID)
	}
}
