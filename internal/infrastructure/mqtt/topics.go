package mqtt

import (
	"fmt"
	"strings"
)

// Topic suffixes.
const (
	suffixState  = "state"
	suffixSet    = "set"
	suffixStatus = "status"
)

// Topics builds the MQTT topics of one bridge.
//
//	topics := mqtt.NewTopics("control4_bridge", "main_house")
//	topics.EntityState("light", "42")
//	// Returns: "control4_bridge/main_house/light/42/state"
type Topics struct {
	Prefix   string
	BridgeID string
}

// NewTopics returns a topic builder for bridgeID under prefix.
// Surrounding slashes on prefix are ignored.
func NewTopics(prefix, bridgeID string) Topics {
	return Topics{
		Prefix:   strings.Trim(prefix, "/"),
		BridgeID: bridgeID,
	}
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", t.Prefix, t.BridgeID)
}

// Status returns the retained availability topic of the bridge.
//
// Example: control4_bridge/main_house/status
func (t Topics) Status() string {
	return t.base() + "/" + suffixStatus
}

// EntityState returns the retained state topic of an entity.
//
// Example: control4_bridge/main_house/switch/7/state
func (t Topics) EntityState(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.base(), platform, deviceID, suffixState)
}

// EntitySet returns the command topic of an entity.
//
// Example: control4_bridge/main_house/switch/7/set
func (t Topics) EntitySet(platform, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.base(), platform, deviceID, suffixSet)
}

// AllSets returns a wildcard matching the set topic of every entity.
//
// Example: control4_bridge/main_house/+/+/set
func (t Topics) AllSets() string {
	return t.base() + "/+/+/" + suffixSet
}

// ParseSet extracts platform and device id from a set topic of this bridge.
func (t Topics) ParseSet(topic string) (platform, deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.base()+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != suffixSet || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
