package bridge

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func lightDescriptor(id, name string, on bool, level float64) map[string]any {
	return map[string]any{
		"device_id": id,
		"type":      "light",
		"name":      name,
		"state":     map[string]any{"on": on, "brightness": level},
	}
}

func TestUpsertDevices_LastWriteWins(t *testing.T) {
	s := NewStore("main_house")

	accepted := s.UpsertDevices([]any{
		lightDescriptor("d1", "Lamp", true, 50),
		lightDescriptor("d1", "Desk Lamp", false, 10),
	})
	if accepted != 2 {
		t.Errorf("UpsertDevices() = %d, want 2 (duplicates are counted)", accepted)
	}

	devices := s.Devices()
	if len(devices) != 1 {
		t.Fatalf("len(Devices()) = %d, want 1", len(devices))
	}
	d := devices[0]
	if d.Name != "Desk Lamp" {
		t.Errorf("Name = %q, want %q", d.Name, "Desk Lamp")
	}
	if d.State["on"] != false || d.State["brightness"] != 10.0 {
		t.Errorf("State = %v, want latest values", d.State)
	}
}

func TestUpsertDevices_ReplacesWholesale(t *testing.T) {
	s := NewStore("main_house")
	s.UpsertDevices([]any{map[string]any{
		"device_id": "d1", "type": "switch", "room": "Kitchen",
		"capabilities": []any{"on_off"}, "state": map[string]any{"on": true},
	}})
	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "switch"}})

	d, ok := s.Device("d1")
	if !ok {
		t.Fatal("Device(d1) not found")
	}
	if d.Room != "" || len(d.Capabilities) != 0 || len(d.State) != 0 {
		t.Errorf("Device = %+v, want fields reset by second sync", d)
	}
}

func TestUpsertDevices_SkipsInvalid(t *testing.T) {
	s := NewStore("main_house")

	accepted := s.UpsertDevices([]any{
		map[string]any{"device_id": "  ", "type": "light"},
		map[string]any{"device_id": "d2"},
		map[string]any{"type": "light"},
		"not an object",
		nil,
		42.0,
		map[string]any{"device_id": " d3 ", "type": " switch "},
	})
	if accepted != 1 {
		t.Fatalf("UpsertDevices() = %d, want 1", accepted)
	}

	d, ok := s.Device("d3")
	if !ok {
		t.Fatal("trimmed device id d3 not found")
	}
	if d.Type != "switch" {
		t.Errorf("Type = %q, want trimmed %q", d.Type, "switch")
	}
	if d.Name != "d3" {
		t.Errorf("Name = %q, want default to device id", d.Name)
	}
}

func TestUpsertDevices_Defaults(t *testing.T) {
	s := NewStore("main_house")
	s.UpsertDevices([]any{
		map[string]any{"device_id": 17.0, "type": "contact", "state": "garbage", "capabilities": "x"},
		map[string]any{"device_id": "d4", "type": "light", "name": "", "room": nil},
	})

	d, ok := s.Device("17")
	if !ok {
		t.Fatal("numeric device id should be stringified to \"17\"")
	}
	if d.State == nil || len(d.State) != 0 {
		t.Errorf("State = %v, want empty map for non-object state", d.State)
	}
	if d.Capabilities == nil || len(d.Capabilities) != 0 {
		t.Errorf("Capabilities = %v, want empty list", d.Capabilities)
	}

	d4, _ := s.Device("d4")
	if d4.Name != "" {
		t.Errorf("explicit empty name = %q, want kept empty", d4.Name)
	}
	if d4.Room != "" {
		t.Errorf("null room = %q, want empty", d4.Room)
	}
}

func TestUpsertDevices_DoesNotAliasInput(t *testing.T) {
	s := NewStore("main_house")
	state := map[string]any{"on": true}
	s.UpsertDevices([]any{map[string]any{"device_id": "d1", "type": "switch", "state": state}})

	state["on"] = false

	d, _ := s.Device("d1")
	if d.State["on"] != true {
		t.Error("mutating the sync payload changed the stored device")
	}

	d.State["on"] = "tampered"
	again, _ := s.Device("d1")
	if again.State["on"] != true {
		t.Error("mutating a returned device changed the stored device")
	}
}

func TestEnqueuePopAck_Lifecycle(t *testing.T) {
	s := NewStore("main_house")

	id := s.EnqueueCommand("d1", "turn_on", map[string]any{"brightness": 80})
	if !strings.HasPrefix(id, CommandIDPrefix) || len(id) < len(CommandIDPrefix)+12 {
		t.Errorf("command id = %q, want %q prefix and at least 12 hex chars", id, CommandIDPrefix)
	}

	cmds := s.PopCommands(1)
	if len(cmds) != 1 || cmds[0].ID != id {
		t.Fatalf("PopCommands(1) = %+v, want the enqueued command", cmds)
	}
	if cmds[0].Action != "turn_on" || cmds[0].Params["brightness"] != 80 {
		t.Errorf("command = %+v, want turn_on with brightness 80", cmds[0])
	}

	if again := s.PopCommands(1); len(again) != 0 {
		t.Errorf("second PopCommands(1) = %+v, want empty", again)
	}

	if st := s.Stats(); st.Pending != 0 || st.InFlight != 1 {
		t.Errorf("Stats() = %+v, want 0 pending, 1 in flight", st)
	}

	if n := s.AckCommands([]string{id}); n != 1 {
		t.Errorf("AckCommands() = %d, want 1", n)
	}
	if n := s.AckCommands([]string{id}); n != 0 {
		t.Errorf("re-ack AckCommands() = %d, want 0", n)
	}
}

func TestEnqueueCommand_NilParams(t *testing.T) {
	s := NewStore("main_house")
	s.EnqueueCommand("unknown-device", "turn_off", nil)

	cmds := s.PopCommands(5)
	if len(cmds) != 1 {
		t.Fatalf("PopCommands() returned %d commands, want 1", len(cmds))
	}
	if cmds[0].Params == nil {
		t.Error("Params = nil, want empty map")
	}
	if cmds[0].DeviceID != "unknown-device" {
		t.Errorf("DeviceID = %q, want commands for unsynced devices accepted", cmds[0].DeviceID)
	}
}

func TestEnqueueCommand_CreatedAt(t *testing.T) {
	s := NewStore("main_house")
	s.now = func() time.Time {
		return time.Date(2026, 3, 4, 5, 6, 7, 890000000, time.FixedZone("CET", 3600))
	}

	s.EnqueueCommand("d1", "turn_on", nil)
	cmd := s.PopCommands(1)[0]

	want := "2026-03-04T04:06:07.890000+00:00"
	if cmd.CreatedAt != want {
		t.Errorf("CreatedAt = %q, want %q", cmd.CreatedAt, want)
	}
}

func TestPopCommands_FIFO(t *testing.T) {
	s := NewStore("main_house")

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.EnqueueCommand(fmt.Sprintf("d%d", i), "turn_on", nil))
	}

	first := s.PopCommands(3)
	var got []string
	for _, c := range first {
		got = append(got, c.ID)
	}
	if !reflect.DeepEqual(got, ids[:3]) {
		t.Errorf("first pop = %v, want %v", got, ids[:3])
	}

	rest := s.PopCommands(10)
	got = got[:0]
	for _, c := range rest {
		got = append(got, c.ID)
	}
	if !reflect.DeepEqual(got, ids[3:]) {
		t.Errorf("second pop = %v, want remaining %v in order", got, ids[3:])
	}
}

func TestPopCommands_NonPositiveLimit(t *testing.T) {
	s := NewStore("main_house")
	s.EnqueueCommand("d1", "turn_on", nil)

	for _, limit := range []int{0, -3} {
		if got := s.PopCommands(limit); len(got) != 0 {
			t.Errorf("PopCommands(%d) = %d commands, want 0", limit, len(got))
		}
	}
	if st := s.Stats(); st.Pending != 1 {
		t.Errorf("Pending = %d, want 1", st.Pending)
	}
}

func TestAckCommands_UnknownAndDuplicate(t *testing.T) {
	s := NewStore("main_house")
	queued := s.EnqueueCommand("d1", "turn_on", nil)

	if n := s.AckCommands([]string{queued, "cmd_doesnotexist"}); n != 0 {
		t.Errorf("acking never-polled and unknown ids = %d, want 0", n)
	}

	s.PopCommands(1)
	if n := s.AckCommands([]string{queued, queued, queued}); n != 1 {
		t.Errorf("acking duplicate ids = %d, want 1", n)
	}
	if n := s.AckCommands(nil); n != 0 {
		t.Errorf("AckCommands(nil) = %d, want 0", n)
	}
}

func TestCommandIDsUnique(t *testing.T) {
	s := NewStore("main_house")
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := s.EnqueueCommand("d1", "turn_on", nil)
		if seen[id] {
			t.Fatalf("duplicate command id %q", id)
		}
		seen[id] = true
	}
}

func TestDevices_SortedByID(t *testing.T) {
	s := NewStore("main_house")
	s.UpsertDevices([]any{
		map[string]any{"device_id": "c", "type": "light"},
		map[string]any{"device_id": "a", "type": "light"},
		map[string]any{"device_id": "b", "type": "light"},
	})

	var ids []string
	for _, d := range s.Devices() {
		ids = append(ids, d.ID)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("Devices() ids = %v, want %v", ids, want)
	}
}

type recordingObserver struct {
	mu        sync.Mutex
	queued    []string
	delivered []string
	acked     []string
}

func (r *recordingObserver) CommandQueued(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, cmd.ID)
}

func (r *recordingObserver) CommandsDelivered(cmds []Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		r.delivered = append(r.delivered, c.ID)
	}
}

func (r *recordingObserver) CommandsAcked(cmds []Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		r.acked = append(r.acked, c.ID)
	}
}

func TestObserver(t *testing.T) {
	s := NewStore("main_house")
	obs := &recordingObserver{}
	s.SetObserver(obs)

	id := s.EnqueueCommand("d1", "turn_on", nil)
	s.PopCommands(0)
	s.PopCommands(5)
	s.AckCommands([]string{"unknown"})
	s.AckCommands([]string{id})

	if !reflect.DeepEqual(obs.queued, []string{id}) {
		t.Errorf("queued = %v, want [%s]", obs.queued, id)
	}
	if !reflect.DeepEqual(obs.delivered, []string{id}) {
		t.Errorf("delivered = %v, want [%s]", obs.delivered, id)
	}
	if !reflect.DeepEqual(obs.acked, []string{id}) {
		t.Errorf("acked = %v, want [%s]", obs.acked, id)
	}
}

// reentrantObserver calls back into the store; this deadlocks if the store
// notifies while holding its lock.
type reentrantObserver struct{ s *Store }

func (r reentrantObserver) CommandQueued(Command)       { r.s.Stats() }
func (r reentrantObserver) CommandsDelivered([]Command) { r.s.Stats() }
func (r reentrantObserver) CommandsAcked([]Command)     { r.s.Stats() }

func TestObserver_CalledOutsideLock(t *testing.T) {
	s := NewStore("main_house")
	s.SetObserver(reentrantObserver{s: s})

	done := make(chan struct{})
	go func() {
		id := s.EnqueueCommand("d1", "turn_on", nil)
		s.PopCommands(1)
		s.AckCommands([]string{id})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("observer callback deadlocked against the store lock")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore("main_house")

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(3)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.EnqueueCommand(fmt.Sprintf("d%d", w), "turn_on", nil)
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.UpsertDevices([]any{map[string]any{"device_id": fmt.Sprintf("d%d", i%10), "type": "light"}})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				for _, c := range s.PopCommands(3) {
					s.AckCommands([]string{c.ID})
				}
			}
		}()
	}
	wg.Wait()

	// Drain what the pollers left behind.
	for _, c := range s.PopCommands(workers * perWorker) {
		s.AckCommands([]string{c.ID})
	}

	st := s.Stats()
	if st.Pending != 0 || st.InFlight != 0 {
		t.Errorf("Stats() = %+v, want everything acknowledged", st)
	}
	if st.Devices != 10 {
		t.Errorf("Devices = %d, want 10", st.Devices)
	}
}
