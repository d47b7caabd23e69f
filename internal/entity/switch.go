package entity

// Switch is an on/off device (switches and relays).
type Switch struct {
	base
}

// TurnOn queues a turn_on command with no parameters.
func (s *Switch) TurnOn() string {
	return s.store.EnqueueCommand(s.deviceID, "turn_on", map[string]any{})
}

// TurnOff queues a turn_off command with no parameters.
func (s *Switch) TurnOff() string {
	return s.store.EnqueueCommand(s.deviceID, "turn_off", map[string]any{})
}

func (s *Switch) Snapshot() Snapshot {
	return s.snapshot()
}

// BinarySensor is a read-only on/off sensor (motion, contact, ...).
type BinarySensor struct {
	base
}

func (b *BinarySensor) Snapshot() Snapshot {
	return b.snapshot()
}
