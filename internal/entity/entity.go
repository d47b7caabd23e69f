package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/c4bridge-core/internal/bridge"
)

// Device registry constants shared by every bridge device.
const (
	IdentifierDomain = "control4_bridge"
	Manufacturer     = "Control4"
	Model            = "Bridge Device"
)

// Store is the part of bridge.Store the entity layer needs.
type Store interface {
	BridgeID() string
	Device(id string) (bridge.Device, bool)
	Devices() []bridge.Device
	EnqueueCommand(deviceID, action string, params map[string]any) string
}

// Entity is a device exposed to the host as a typed entity.
type Entity interface {
	UniqueID() string
	DeviceID() string
	Platform() Platform
	Name() string
	Available() bool
	IsOn() bool
	DeviceInfo() DeviceInfo
	Snapshot() Snapshot
}

// DeviceInfo describes the physical device behind an entity for the host
// device registry.
type DeviceInfo struct {
	BridgeID      string  `json:"bridge_id"`
	DeviceID      string  `json:"device_id"`
	Identifier    string  `json:"identifier"`
	Manufacturer  string  `json:"manufacturer"`
	Model         string  `json:"model"`
	Name          string  `json:"name"`
	SuggestedArea *string `json:"suggested_area"`
}

// Snapshot is the externally visible state of an entity at one instant.
type Snapshot struct {
	UniqueID   string         `json:"unique_id"`
	DeviceID   string         `json:"device_id"`
	Platform   Platform       `json:"platform"`
	Name       string         `json:"name"`
	Available  bool           `json:"available"`
	IsOn       bool           `json:"is_on"`
	Brightness *int           `json:"brightness,omitempty"`
	Attributes map[string]any `json:"attributes"`
	State      map[string]any `json:"state"`
	DeviceInfo DeviceInfo     `json:"device_info"`
}

// UniqueID builds the stable entity id for a device of a bridge.
func UniqueID(bridgeID, deviceID string) string {
	return "control4_bridge_" + bridgeID + "_" + deviceID
}

// DeviceInfoFor builds the registry entry for a device record.
func DeviceInfoFor(bridgeID string, d bridge.Device) DeviceInfo {
	info := DeviceInfo{
		BridgeID:     bridgeID,
		DeviceID:     d.ID,
		Identifier:   IdentifierDomain + ":" + bridgeID + ":" + d.ID,
		Manufacturer: Manufacturer,
		Model:        Model,
		Name:         d.Name,
	}
	if d.Room != "" {
		room := d.Room
		info.SuggestedArea = &room
	}
	return info
}

// base implements the parts of Entity shared by every platform.
type base struct {
	store    Store
	deviceID string
	platform Platform
}

func (b base) UniqueID() string   { return UniqueID(b.store.BridgeID(), b.deviceID) }
func (b base) DeviceID() string   { return b.deviceID }
func (b base) Platform() Platform { return b.platform }

func (b base) device() (bridge.Device, bool) {
	return b.store.Device(b.deviceID)
}

// Name is empty while the device is unavailable.
func (b base) Name() string {
	d, _ := b.device()
	return d.Name
}

func (b base) Available() bool {
	_, ok := b.device()
	return ok
}

// IsOn reads the truthiness of state["on"].
func (b base) IsOn() bool {
	d, ok := b.device()
	if !ok {
		return false
	}
	return truthy(d.State["on"])
}

func (b base) DeviceInfo() DeviceInfo {
	d, ok := b.device()
	if !ok {
		d = bridge.Device{ID: b.deviceID}
	}
	return DeviceInfoFor(b.store.BridgeID(), d)
}

func (b base) snapshot() Snapshot {
	d, ok := b.device()
	s := Snapshot{
		UniqueID:  b.UniqueID(),
		DeviceID:  b.deviceID,
		Platform:  b.platform,
		Available: ok,
	}
	if !ok {
		d = bridge.Device{ID: b.deviceID}
	}
	s.Name = d.Name
	s.IsOn = ok && truthy(d.State["on"])
	s.State = d.State
	if s.State == nil {
		s.State = map[string]any{}
	}
	caps := d.Capabilities
	if caps == nil {
		caps = []any{}
	}
	s.Attributes = map[string]any{
		"control4_device_id":    b.deviceID,
		"control4_room":         d.Room,
		"control4_capabilities": caps,
	}
	s.DeviceInfo = DeviceInfoFor(b.store.BridgeID(), d)
	return s
}

// truthy follows the loose on/off conventions drivers use: false, zero,
// empty strings, empty collections and nil are off; everything else is on.
func truthy(v any) bool { return bridge.Truthy(v) }

// toFloat accepts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case json.Number:
		f, err := val.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String implements fmt.Stringer for log output.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s(%s on=%t available=%t)", s.Platform, s.UniqueID, s.IsOn, s.Available)
}
