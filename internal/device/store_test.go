package device

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testSeed() []Device {
	return []Device{
		{ID: "kitchen/light/ceiling-01", Name: "Kitchen Light", Kind: KindLight,
			IsOn: ptr(true), Brightness: ptr(80), ColorTemperature: ptr(ColorWarmWhite)},
		{ID: "bedroom/thermostat/wall-01", Name: "Bedroom Thermostat", Kind: KindThermostat,
			IsOn: ptr(true), TargetTemperature: ptr(20), CurrentTemperature: ptr(19)},
		{ID: "living-room/lock/front-door-01", Name: "Front Door Lock", Kind: KindLock,
			IsLocked: ptr(true)},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(testSeed())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

// drain pulls one event off the store's stream, failing if none is queued.
func drain(t *testing.T, s *Store) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	default:
		t.Fatal("expected a queued event, got none")
		return Event{}
	}
}

func TestNewStore(t *testing.T) {
	t.Run("seeds devices in order", func(t *testing.T) {
		s := newTestStore(t)

		devices := s.List("", "")
		if len(devices) != 3 {
			t.Fatalf("List() returned %d devices, want 3", len(devices))
		}
		if devices[0].ID != "kitchen/light/ceiling-01" {
			t.Errorf("first device = %q, want seed order preserved", devices[0].ID)
		}
		if devices[0].Room != "kitchen" {
			t.Errorf("Room = %q, want derived from ID", devices[0].Room)
		}
	})

	t.Run("normalises seed ids", func(t *testing.T) {
		s, err := NewStore([]Device{
			{ID: "Living_Room/light/ceiling_01", Name: "L", Kind: KindLight},
		})
		if err != nil {
			t.Fatalf("NewStore() error = %v", err)
		}
		if _, err := s.Get("living-room/light/ceiling-01"); err != nil {
			t.Errorf("Get(canonical id) error = %v", err)
		}
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewStore([]Device{
			{ID: "kitchen/light/a-01", Name: "A", Kind: KindLight},
			{ID: "kitchen/light/a_01", Name: "B", Kind: KindLight},
		})
		if !errors.Is(err, ErrDuplicateID) {
			t.Errorf("NewStore() error = %v, want ErrDuplicateID", err)
		}
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		_, err := NewStore([]Device{{ID: "not-an-id", Name: "X", Kind: KindLight}})
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("NewStore() error = %v, want ErrInvalidID", err)
		}
	})
}

func TestStoreGet(t *testing.T) {
	s := newTestStore(t)

	t.Run("found", func(t *testing.T) {
		d, err := s.Get("kitchen/light/ceiling-01")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d.Name != "Kitchen Light" {
			t.Errorf("Name = %q", d.Name)
		}
	})

	t.Run("normalised lookup", func(t *testing.T) {
		if _, err := s.Get("Kitchen/Light/Ceiling_01"); err != nil {
			t.Errorf("Get(un-normalised id) error = %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get("attic/light/none-01")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("returned device is a copy", func(t *testing.T) {
		d, _ := s.Get("kitchen/light/ceiling-01")
		*d.Brightness = 5
		d2, _ := s.Get("kitchen/light/ceiling-01")
		if *d2.Brightness != 80 {
			t.Errorf("mutating returned device leaked into store: brightness = %d", *d2.Brightness)
		}
	})
}

func TestStoreList(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		room    string
		kind    Kind
		wantIDs []string
	}{
		{
			name:    "no filters",
			wantIDs: []string{"kitchen/light/ceiling-01", "bedroom/thermostat/wall-01", "living-room/lock/front-door-01"},
		},
		{
			name:    "room all sentinel",
			room:    RoomAll,
			wantIDs: []string{"kitchen/light/ceiling-01", "bedroom/thermostat/wall-01", "living-room/lock/front-door-01"},
		},
		{
			name:    "room filter",
			room:    "kitchen",
			wantIDs: []string{"kitchen/light/ceiling-01"},
		},
		{
			name:    "room filter with underscores",
			room:    "Living_Room",
			wantIDs: []string{"living-room/lock/front-door-01"},
		},
		{
			name:    "kind filter",
			kind:    KindThermostat,
			wantIDs: []string{"bedroom/thermostat/wall-01"},
		},
		{
			name:    "room and kind",
			room:    "kitchen",
			kind:    KindLock,
			wantIDs: []string{},
		},
		{
			name:    "unknown room yields empty",
			room:    "garage",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.List(tt.room, tt.kind)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("List() returned %d devices, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("List()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStoreRooms(t *testing.T) {
	s := newTestStore(t)
	rooms := s.Rooms()
	want := []string{"kitchen", "bedroom", "living-room"}
	if len(rooms) != len(want) {
		t.Fatalf("Rooms() = %v, want %v", rooms, want)
	}
	for i := range want {
		if rooms[i] != want[i] {
			t.Errorf("Rooms()[%d] = %q, want %q", i, rooms[i], want[i])
		}
	}
}

func TestStoreApply(t *testing.T) {
	t.Run("partial update changes only named fields", func(t *testing.T) {
		s := newTestStore(t)

		d, err := s.Apply("kitchen/light/ceiling-01", Update{Brightness: ptr(50)})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if *d.Brightness != 50 {
			t.Errorf("Brightness = %d, want 50", *d.Brightness)
		}
		if !*d.IsOn || *d.ColorTemperature != ColorWarmWhite {
			t.Error("unnamed fields must be untouched")
		}

		ev := drain(t, s)
		if ev.Seq != 1 {
			t.Errorf("Seq = %d, want 1", ev.Seq)
		}
		if ev.DeviceID != "kitchen/light/ceiling-01" {
			t.Errorf("DeviceID = %q", ev.DeviceID)
		}
		if ev.Changed["brightness"] != 50 {
			t.Errorf("Changed[brightness] = %v, want 50", ev.Changed["brightness"])
		}
		if _, ok := ev.Changed["last_updated"]; !ok {
			t.Error("Changed must always carry last_updated")
		}
		if _, ok := ev.Changed["is_on"]; ok {
			t.Error("Changed must carry only fields the update named")
		}
	})

	t.Run("invalid update leaves device untouched", func(t *testing.T) {
		s := newTestStore(t)

		_, err := s.Apply("kitchen/light/ceiling-01", Update{IsOn: ptr(false), Brightness: ptr(500)})
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Apply() error = %v, want ErrOutOfRange", err)
		}

		d, _ := s.Get("kitchen/light/ceiling-01")
		if !*d.IsOn {
			t.Error("valid field of a rejected update must not be applied")
		}

		select {
		case ev := <-s.Events():
			t.Errorf("rejected update emitted event %+v", ev)
		default:
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Apply("attic/light/none-01", Update{TogglePower: true})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Apply() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("toggle flips under lock", func(t *testing.T) {
		s := newTestStore(t)

		d, err := s.Apply("living-room/lock/front-door-01", Update{ToggleLock: true})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if *d.IsLocked {
			t.Error("toggle of locked lock should unlock")
		}
		d, _ = s.Apply("living-room/lock/front-door-01", Update{ToggleLock: true})
		if !*d.IsLocked {
			t.Error("second toggle should lock again")
		}
	})

	t.Run("sequence increases across devices", func(t *testing.T) {
		s := newTestStore(t)

		s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true})
		s.Apply("bedroom/thermostat/wall-01", Update{TargetTemperature: ptr(23)})
		s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true})

		for want := uint64(1); want <= 3; want++ {
			ev := drain(t, s)
			if ev.Seq != want {
				t.Errorf("Seq = %d, want %d", ev.Seq, want)
			}
		}
	})

	t.Run("no-op write still commits", func(t *testing.T) {
		s := newTestStore(t)

		before, _ := s.Get("kitchen/light/ceiling-01")
		d, err := s.Apply("kitchen/light/ceiling-01", Update{Brightness: ptr(80)})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if !d.LastUpdated.After(before.LastUpdated) {
			t.Error("no-op write must still advance last_updated")
		}

		ev := drain(t, s)
		if len(ev.Changed) != 1 {
			t.Errorf("Changed = %v, want only last_updated", ev.Changed)
		}
	})

	t.Run("last_updated monotonic under stalled clock", func(t *testing.T) {
		s := newTestStore(t)
		frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s.setClock(func() time.Time { return frozen })

		d1, _ := s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true})
		d2, _ := s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true})
		if !d2.LastUpdated.After(d1.LastUpdated) {
			t.Errorf("LastUpdated %v not after %v with stalled clock",
				d2.LastUpdated, d1.LastUpdated)
		}
	})
}

func TestStoreApplyConcurrent(t *testing.T) {
	s := newTestStore(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Drain events so the buffer never fills and drops.
	var got int
	go func() {
		defer close(done)
		for range s.Events() {
			got++
			if got == workers*perWorker {
				return
			}
		}
	}()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true}); err != nil {
					t.Errorf("Apply() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}

	// Even worker*perWorker toggles must land back on the seed value.
	d, _ := s.Get("kitchen/light/ceiling-01")
	if !*d.IsOn {
		t.Error("even number of toggles must restore initial power state")
	}

	_, seq := s.Snapshot()
	if seq != workers*perWorker {
		t.Errorf("final seq = %d, want %d", seq, workers*perWorker)
	}
}

func TestStoreSnapshot(t *testing.T) {
	s := newTestStore(t)

	s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true})
	s.Apply("living-room/lock/front-door-01", Update{ToggleLock: true})

	devices, seq := s.Snapshot()
	if seq != 2 {
		t.Errorf("Snapshot() seq = %d, want 2", seq)
	}
	if len(devices) != 3 {
		t.Fatalf("Snapshot() returned %d devices, want 3", len(devices))
	}
	if *devices[0].IsOn {
		t.Error("snapshot must reflect committed mutations")
	}

	// Every event already queued has Seq <= snapshot seq: a viewer that
	// skips those sees each mutation exactly once.
	for {
		select {
		case ev := <-s.Events():
			if ev.Seq > seq {
				t.Errorf("queued event Seq %d exceeds snapshot seq %d", ev.Seq, seq)
			}
			continue
		default:
		}
		break
	}
}

func TestStoreEventBufferOverflow(t *testing.T) {
	s := newTestStore(t)

	// Nobody drains: overflow past the buffer must drop, not block.
	for i := 0; i < eventBuffer+10; i++ {
		if _, err := s.Apply("kitchen/light/ceiling-01", Update{TogglePower: true}); err != nil {
			t.Fatalf("Apply() error = %v at i=%d", err, i)
		}
	}

	_, seq := s.Snapshot()
	if seq != eventBuffer+10 {
		t.Errorf("seq = %d, want %d; drops must not lose commits", seq, eventBuffer+10)
	}
}
