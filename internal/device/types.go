package device

import "time"

// Device is one registered bridge device.
type Device struct {
	BridgeID      string    `json:"bridge_id"`
	DeviceID      string    `json:"device_id"`
	Identifier    string    `json:"identifier"`
	Name          string    `json:"name"`
	Manufacturer  string    `json:"manufacturer"`
	Model         string    `json:"model"`
	SuggestedArea *string   `json:"suggested_area"`
	DeviceType    string    `json:"device_type"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// Validate checks the keys every registration needs.
func (d *Device) Validate() error {
	switch {
	case d.BridgeID == "":
		return ErrInvalidDevice
	case d.DeviceID == "":
		return ErrInvalidDevice
	case d.Identifier == "":
		return ErrInvalidDevice
	}
	return nil
}

// sameDescription reports whether the descriptive fields match, ignoring timestamps.
func (d *Device) sameDescription(o *Device) bool {
	if d.Name != o.Name || d.Manufacturer != o.Manufacturer || d.Model != o.Model || d.DeviceType != o.DeviceType {
		return false
	}
	switch {
	case d.SuggestedArea == nil && o.SuggestedArea == nil:
		return true
	case d.SuggestedArea == nil || o.SuggestedArea == nil:
		return false
	default:
		return *d.SuggestedArea == *o.SuggestedArea
	}
}

// DeepCopy returns a copy that shares no pointers with d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.SuggestedArea != nil {
		area := *d.SuggestedArea
		cpy.SuggestedArea = &area
	}
	return &cpy
}
