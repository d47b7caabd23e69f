package entity

import "math"

// Light is a dimmable light. The device reports brightness as a 0-100
// percentage in state["brightness"]; the entity exposes it as 0-255.
type Light struct {
	base
}

// Brightness returns the display brightness, or nil when the device does not
// report a numeric level.
func (l *Light) Brightness() *int {
	d, ok := l.device()
	if !ok {
		return nil
	}
	level, ok := toFloat(d.State["brightness"])
	if !ok {
		return nil
	}
	b := levelToBrightness(level)
	return &b
}

// TurnOn queues a turn_on command. A nil brightness leaves the level to the
// device.
func (l *Light) TurnOn(brightness *int) string {
	params := map[string]any{}
	if brightness != nil {
		params["brightness"] = brightnessToLevel(*brightness)
	}
	return l.store.EnqueueCommand(l.deviceID, "turn_on", params)
}

// TurnOff queues a turn_off command.
func (l *Light) TurnOff() string {
	return l.store.EnqueueCommand(l.deviceID, "turn_off", map[string]any{})
}

func (l *Light) Snapshot() Snapshot {
	s := l.snapshot()
	s.Brightness = l.Brightness()
	return s
}

// levelToBrightness maps 0-100 to 0-255, rounding half away from zero.
func levelToBrightness(level float64) int {
	b := math.Round(level * 255 / 100)
	return int(math.Max(0, math.Min(255, b)))
}

// brightnessToLevel maps 0-255 back to the device's 0-100 scale.
func brightnessToLevel(b int) int {
	return int(math.Round(float64(b) * 100 / 255))
}
