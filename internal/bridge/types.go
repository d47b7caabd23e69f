package bridge

// ProtocolVersion is the only sync protocol version the driver may speak.
const ProtocolVersion = 1

// CommandIDPrefix tags every store-generated command id.
const CommandIDPrefix = "cmd_"

// createdAtLayout matches the timestamps the Control4 driver already parses:
// ISO-8601 in UTC with microseconds and an explicit +00:00 offset.
const createdAtLayout = "2006-01-02T15:04:05.000000-07:00"

// Device is the mirrored state of one Control4 device.
//
// The record is replaced wholesale on every sync that carries its ID.
type Device struct {
	ID           string         `json:"device_id"`
	Name         string         `json:"name"`
	Room         string         `json:"room"`
	Type         string         `json:"type"`
	Capabilities []any          `json:"capabilities"`
	State        map[string]any `json:"state"`
}

// Command is one instruction queued for the driver.
//
// The JSON form is exactly what the commands endpoint returns.
type Command struct {
	ID        string         `json:"command_id"`
	DeviceID  string         `json:"device_id"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params"`
	CreatedAt string         `json:"created_at"`
}

// Stats is a point-in-time count of the store's tables.
type Stats struct {
	BridgeID string `json:"bridge_id"`
	Devices  int    `json:"devices"`
	Pending  int    `json:"pending_commands"`
	InFlight int    `json:"inflight_commands"`
}

// Observer is notified of command lifecycle transitions.
//
// Calls happen after the store lock has been released, on the goroutine
// that performed the operation. Implementations must not block.
type Observer interface {
	// CommandQueued is called once per EnqueueCommand.
	CommandQueued(cmd Command)

	// CommandsDelivered is called when a poll moves commands to in-flight.
	// Not called for an empty poll.
	CommandsDelivered(cmds []Command)

	// CommandsAcked is called with the commands actually removed from in-flight.
	// Not called when nothing was acknowledged.
	CommandsAcked(cmds []Command)
}

// DeepCopy returns a copy of d that shares no maps or slices with it.
func (d Device) DeepCopy() Device {
	cpy := d
	cpy.Capabilities = deepCopySlice(d.Capabilities)
	cpy.State = deepCopyMap(d.State)
	return cpy
}

// DeepCopy returns a copy of c that shares no maps with it.
func (c Command) DeepCopy() Command {
	cpy := c
	cpy.Params = deepCopyMap(c.Params)
	return cpy
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopySlice(s []any) []any {
	if s == nil {
		return nil
	}
	cpy := make([]any, len(s))
	for i, v := range s {
		cpy[i] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue copies JSON-shaped values; anything else is returned as is.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		return deepCopySlice(val)
	default:
		return v
	}
}
