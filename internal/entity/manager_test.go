package entity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/c4bridge-core/internal/bridge"
)

type fakeWriter struct {
	mu        sync.Mutex
	states    []Snapshot
	refreshes []Refresh
}

func (f *fakeWriter) WriteState(_ context.Context, s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, s)
}

func (f *fakeWriter) DevicesRefreshed(_ context.Context, r Refresh) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, r)
}

type fakeRegistrar struct {
	infos []DeviceInfo
	types []string
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, info DeviceInfo, deviceType string) error {
	f.infos = append(f.infos, info)
	f.types = append(f.types, deviceType)
	return f.err
}

// syncConnector delivers signals synchronously when fire is called.
type syncConnector struct {
	handlers []func(any)
	removed  int
}

func (c *syncConnector) Connect(_ string, h func(payload any)) func() {
	c.handlers = append(c.handlers, h)
	return func() { c.removed++ }
}

func (c *syncConnector) fire() {
	for _, h := range c.handlers {
		h(nil)
	}
}

func TestManager_RefreshCreatesOnce(t *testing.T) {
	s := bridge.NewStore("main_house")
	s.UpsertDevices([]any{
		map[string]any{"device_id": "d1", "type": "light"},
		map[string]any{"device_id": "d2", "type": "relay"},
		map[string]any{"device_id": "d3", "type": "thermostat"},
	})

	w := &fakeWriter{}
	reg := &fakeRegistrar{}
	m := NewManager(s, w)
	m.SetRegistrar(reg)

	r := m.Refresh(context.Background())
	if r.Entities != 2 || len(r.NewEntities) != 2 || r.Devices != 3 {
		t.Errorf("first Refresh() = %+v, want 3 devices, 2 new entities", r)
	}
	if len(w.states) != 2 {
		t.Errorf("WriteState called %d times, want 2", len(w.states))
	}
	if len(reg.infos) != 3 {
		t.Errorf("Register called %d times, want 3 (every device)", len(reg.infos))
	}

	s.UpsertDevices([]any{map[string]any{"device_id": "m1", "type": "motion"}})
	r = m.Refresh(context.Background())
	if r.Entities != 3 || len(r.NewEntities) != 1 || r.NewEntities[0] != "control4_bridge_main_house_m1" {
		t.Errorf("second Refresh() = %+v, want one new binary sensor", r)
	}
	if len(w.states) != 5 {
		t.Errorf("WriteState total = %d, want 5 (2 + 3)", len(w.states))
	}
	if len(w.refreshes) != 2 {
		t.Errorf("DevicesRefreshed called %d times, want 2", len(w.refreshes))
	}
}

func TestManager_TypeChangeKeepsEntity(t *testing.T) {
	s := bridge.NewStore("main_house")
	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "light"}})

	m := NewManager(s, nil)
	m.Refresh(context.Background())

	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "switch"}})
	m.Refresh(context.Background())

	entities := m.Entities()
	if len(entities) != 1 || entities[0].Platform() != PlatformLight {
		t.Errorf("Entities() = %v, want the original light only", entities)
	}
}

func TestManager_StartAndStop(t *testing.T) {
	s := bridge.NewStore("main_house")
	w := &fakeWriter{}
	m := NewManager(s, w)
	c := &syncConnector{}

	m.Start(context.Background(), c, "signal")
	if len(w.refreshes) != 1 {
		t.Fatalf("Start() refreshes = %d, want initial refresh", len(w.refreshes))
	}

	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "switch"}})
	c.fire()
	if len(m.Entities()) != 1 {
		t.Errorf("Entities() after signal = %d, want 1", len(m.Entities()))
	}

	m.Stop()
	m.Stop()
	if c.removed != 1 {
		t.Errorf("disconnect called %d times, want 1", c.removed)
	}
}

func TestManager_RegistrarErrorDoesNotStopRefresh(t *testing.T) {
	s := bridge.NewStore("main_house")
	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "light"}})

	w := &fakeWriter{}
	m := NewManager(s, w)
	m.SetRegistrar(&fakeRegistrar{err: errors.New("disk full")})

	m.Refresh(context.Background())
	if len(w.states) != 1 {
		t.Errorf("WriteState called %d times, want 1", len(w.states))
	}
}

func TestManager_Actions(t *testing.T) {
	s := bridge.NewStore("main_house")
	s.UpsertDevices([]any{
		map[string]any{"device_id": "l1", "type": "light"},
		map[string]any{"device_id": "s1", "type": "switch"},
		map[string]any{"device_id": "c1", "type": "contact"},
	})
	m := NewManager(s, nil)
	m.Refresh(context.Background())

	b := 255
	if _, err := m.TurnOn(UniqueID("main_house", "l1"), &b); err != nil {
		t.Fatalf("TurnOn(light) error = %v", err)
	}
	if _, err := m.TurnOn(UniqueID("main_house", "s1"), &b); err != nil {
		t.Fatalf("TurnOn(switch) error = %v", err)
	}
	if _, err := m.TurnOff(UniqueID("main_house", "s1")); err != nil {
		t.Fatalf("TurnOff(switch) error = %v", err)
	}

	if _, err := m.TurnOn(UniqueID("main_house", "c1"), nil); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("TurnOn(binary_sensor) error = %v, want ErrUnsupportedAction", err)
	}
	if _, err := m.TurnOff(UniqueID("main_house", "c1")); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("TurnOff(binary_sensor) error = %v, want ErrUnsupportedAction", err)
	}
	if _, err := m.TurnOn("nope", nil); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("TurnOn(unknown) error = %v, want ErrEntityNotFound", err)
	}
	bad := 300
	if _, err := m.TurnOn(UniqueID("main_house", "l1"), &bad); !errors.Is(err, ErrInvalidBrightness) {
		t.Errorf("TurnOn(brightness=300) error = %v, want ErrInvalidBrightness", err)
	}

	cmds := s.PopCommands(10)
	if len(cmds) != 3 {
		t.Fatalf("queued %d commands, want 3", len(cmds))
	}
	if cmds[0].Params["brightness"] != 100 {
		t.Errorf("light brightness param = %v, want 100", cmds[0].Params["brightness"])
	}
	if len(cmds[1].Params) != 0 {
		t.Errorf("switch turn_on params = %v, want empty", cmds[1].Params)
	}
}

func TestManager_EntityForDevice(t *testing.T) {
	s := bridge.NewStore("main_house")
	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "light"}})
	m := NewManager(s, nil)
	m.Refresh(context.Background())

	e, err := m.EntityForDevice("d1")
	if err != nil {
		t.Fatalf("EntityForDevice() error = %v", err)
	}
	if e.DeviceID() != "d1" {
		t.Errorf("DeviceID() = %q", e.DeviceID())
	}
	if _, err := m.EntityForDevice("missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("EntityForDevice(missing) error = %v", err)
	}
}
