package bridge

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory mirror of one bridge. All methods are safe for
// concurrent use; each one is a single critical section.
type Store struct {
	bridgeID string

	mu       sync.Mutex
	devices  map[string]Device
	pending  []Command
	inflight map[string]Command
	observer Observer

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty store for the given bridge id.
func NewStore(bridgeID string) *Store {
	return &Store{
		bridgeID: bridgeID,
		devices:  make(map[string]Device),
		inflight: make(map[string]Command),
		now:      time.Now,
		newID:    newCommandID,
	}
}

// newCommandID returns "cmd_" followed by 32 hex characters of a random UUID.
func newCommandID() string {
	u := uuid.New()
	return CommandIDPrefix + hex.EncodeToString(u[:])
}

// BridgeID returns the id of the bridge this store mirrors.
func (s *Store) BridgeID() string {
	return s.bridgeID
}

// SetObserver installs (or, with nil, removes) the lifecycle observer.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// UpsertDevices replaces the record of every valid descriptor in raw and
// returns how many were accepted. Invalid entries are skipped silently.
// Duplicate ids within one batch are each counted; the last one wins.
func (s *Store) UpsertDevices(raw []any) int {
	parsed := make([]Device, 0, len(raw))
	for _, item := range raw {
		if d, ok := parseDescriptor(item); ok {
			parsed = append(parsed, d)
		}
	}

	s.mu.Lock()
	for _, d := range parsed {
		s.devices[d.ID] = d
	}
	s.mu.Unlock()

	return len(parsed)
}

// EnqueueCommand appends a command to the tail of the pending queue and
// returns its id. The device id is not checked against the device table.
func (s *Store) EnqueueCommand(deviceID, action string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	} else {
		params = deepCopyMap(params)
	}

	s.mu.Lock()
	cmd := Command{
		ID:        s.newID(),
		DeviceID:  deviceID,
		Action:    action,
		Params:    params,
		CreatedAt: s.now().UTC().Format(createdAtLayout),
	}
	s.pending = append(s.pending, cmd)
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs.CommandQueued(cmd.DeepCopy())
	}
	return cmd.ID
}

// PopCommands moves up to limit commands from the head of the pending queue
// into the in-flight table and returns them in enqueue order.
// The caller is responsible for clamping limit; limit <= 0 returns nothing.
func (s *Store) PopCommands(limit int) []Command {
	s.mu.Lock()
	n := min(max(limit, 0), len(s.pending))
	out := make([]Command, n)
	for i := 0; i < n; i++ {
		cmd := s.pending[i]
		s.inflight[cmd.ID] = cmd
		out[i] = cmd.DeepCopy()
	}
	clear(s.pending[:n])
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	obs := s.observer
	s.mu.Unlock()

	if obs != nil && n > 0 {
		obs.CommandsDelivered(copyCommands(out))
	}
	return out
}

// AckCommands removes each id in ids from the in-flight table and returns
// how many were actually removed. Unknown and repeated ids are no-ops.
func (s *Store) AckCommands(ids []string) int {
	s.mu.Lock()
	var acked []Command
	for _, id := range ids {
		if cmd, ok := s.inflight[id]; ok {
			delete(s.inflight, id)
			acked = append(acked, cmd)
		}
	}
	obs := s.observer
	s.mu.Unlock()

	if obs != nil && len(acked) > 0 {
		obs.CommandsAcked(acked)
	}
	return len(acked)
}

// Device looks up one device. The returned record is a private copy.
func (s *Store) Device(id string) (Device, bool) {
	s.mu.Lock()
	d, ok := s.devices[id]
	s.mu.Unlock()

	if !ok {
		return Device{}, false
	}
	return d.DeepCopy(), true
}

// Devices returns copies of every known device, sorted by id.
func (s *Store) Devices() []Device {
	s.mu.Lock()
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.DeepCopy())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats reports the size of each table.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BridgeID: s.bridgeID,
		Devices:  len(s.devices),
		Pending:  len(s.pending),
		InFlight: len(s.inflight),
	}
}

func copyCommands(cmds []Command) []Command {
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.DeepCopy()
	}
	return out
}
