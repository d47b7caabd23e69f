package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger is the logging interface used by the Manager.
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

// StateWriter receives entity state after every refresh.
type StateWriter interface {
	// WriteState is called once per entity per refresh.
	WriteState(ctx context.Context, s Snapshot)

	// DevicesRefreshed is called once per refresh, after every WriteState.
	DevicesRefreshed(ctx context.Context, r Refresh)
}

// DeviceRegistrar records devices in the host device registry.
type DeviceRegistrar interface {
	Register(ctx context.Context, info DeviceInfo, deviceType string) error
}

// Connector is the dispatcher side the Manager subscribes to.
type Connector interface {
	Connect(signal string, h func(payload any)) (disconnect func())
}

// Refresh summarises one refresh pass.
type Refresh struct {
	BridgeID    string   `json:"bridge_id"`
	Devices     int      `json:"devices"`
	Entities    int      `json:"entities"`
	NewEntities []string `json:"new_entities"`
}

// Manager owns the entities of one store.
//
// All public methods are thread-safe.
type Manager struct {
	store     Store
	writer    StateWriter
	registrar DeviceRegistrar
	logger    Logger

	refreshMu sync.Mutex // serialises Refresh passes

	mu       sync.RWMutex
	entities map[string]Entity // by unique id
	byDevice map[string]string // device id -> unique id

	stopMu     sync.Mutex
	disconnect func()
}

// NewManager creates a manager for store. writer may be nil.
func NewManager(store Store, writer StateWriter) *Manager {
	return &Manager{
		store:    store,
		writer:   writer,
		logger:   noopLogger{},
		entities: make(map[string]Entity),
		byDevice: make(map[string]string),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetRegistrar sets the host device registry. Without one, device info is
// not recorded anywhere.
func (m *Manager) SetRegistrar(r DeviceRegistrar) {
	m.registrar = r
}

// Start performs an initial refresh and then refreshes on every signal
// received from c. Signals are handled with ctx.
func (m *Manager) Start(ctx context.Context, c Connector, signal string) {
	m.Refresh(ctx)

	disconnect := c.Connect(signal, func(any) {
		m.Refresh(ctx)
	})

	m.stopMu.Lock()
	m.disconnect = disconnect
	m.stopMu.Unlock()
}

// Stop disconnects from the dispatcher. Entities stay available for reads.
func (m *Manager) Stop() {
	m.stopMu.Lock()
	defer m.stopMu.Unlock()

	if m.disconnect != nil {
		m.disconnect()
		m.disconnect = nil
	}
}

// Refresh creates entities for devices not seen before, registers every
// device with the host registry and writes the state of every entity.
// An entity's platform is fixed when it is created: a device that later
// syncs with a different type keeps its original adapter.
func (m *Manager) Refresh(ctx context.Context) Refresh {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	devices := m.store.Devices()
	bridgeID := m.store.BridgeID()

	var created []string
	m.mu.Lock()
	for _, d := range devices {
		if _, seen := m.byDevice[d.ID]; seen {
			continue
		}
		e, ok := New(m.store, d.ID, d.Type)
		if !ok {
			continue
		}
		m.entities[e.UniqueID()] = e
		m.byDevice[d.ID] = e.UniqueID()
		created = append(created, e.UniqueID())
	}
	all := m.sortedLocked()
	m.mu.Unlock()

	if len(created) > 0 {
		m.logger.Info("entities added", "count", len(created), "total", len(all))
	}

	if m.registrar != nil {
		for _, d := range devices {
			if err := m.registrar.Register(ctx, DeviceInfoFor(bridgeID, d), d.Type); err != nil {
				m.logger.Warn("registering device failed", "device_id", d.ID, "error", err)
			}
		}
	}

	r := Refresh{
		BridgeID:    bridgeID,
		Devices:     len(devices),
		Entities:    len(all),
		NewEntities: created,
	}
	if r.NewEntities == nil {
		r.NewEntities = []string{}
	}

	if m.writer != nil {
		for _, e := range all {
			m.writer.WriteState(ctx, e.Snapshot())
		}
		m.writer.DevicesRefreshed(ctx, r)
	}
	return r
}

func (m *Manager) sortedLocked() []Entity {
	out := make([]Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID() < out[j].UniqueID() })
	return out
}

// Entity returns the entity with the given unique id.
func (m *Manager) Entity(uniqueID string) (Entity, error) {
	m.mu.RLock()
	e, ok := m.entities[uniqueID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, uniqueID)
	}
	return e, nil
}

// EntityForDevice returns the entity backed by a device id.
func (m *Manager) EntityForDevice(deviceID string) (Entity, error) {
	m.mu.RLock()
	uid, ok := m.byDevice[deviceID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: device %s", ErrEntityNotFound, deviceID)
	}
	return m.Entity(uid)
}

// Entities returns every entity, sorted by unique id.
func (m *Manager) Entities() []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked()
}

// TurnOn queues a turn_on for the entity and returns the command id.
// brightness is honoured by lights and ignored by switches.
func (m *Manager) TurnOn(uniqueID string, brightness *int) (string, error) {
	e, err := m.Entity(uniqueID)
	if err != nil {
		return "", err
	}
	if brightness != nil && (*brightness < 0 || *brightness > 255) {
		return "", ErrInvalidBrightness
	}

	switch ent := e.(type) {
	case *Light:
		return ent.TurnOn(brightness), nil
	case *Switch:
		return ent.TurnOn(), nil
	default:
		return "", fmt.Errorf("%w: turn_on on %s", ErrUnsupportedAction, e.Platform())
	}
}

// TurnOff queues a turn_off for the entity and returns the command id.
func (m *Manager) TurnOff(uniqueID string) (string, error) {
	e, err := m.Entity(uniqueID)
	if err != nil {
		return "", err
	}

	switch ent := e.(type) {
	case *Light:
		return ent.TurnOff(), nil
	case *Switch:
		return ent.TurnOff(), nil
	default:
		return "", fmt.Errorf("%w: turn_off on %s", ErrUnsupportedAction, e.Platform())
	}
}
