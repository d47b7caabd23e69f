package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/c4bridge-core/internal/entity"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/mqtt"
)

// MQTT command payload states.
const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// Errors returned by the set-topic handler.
var (
	ErrInvalidSetTopic   = errors.New("publish: not an entity set topic")
	ErrInvalidSetPayload = errors.New("publish: invalid set payload")
	ErrPlatformMismatch  = errors.New("publish: set topic platform does not match entity")
)

// MQTTClient is the slice of *mqtt.Client the mirror needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
	QoS() byte
}

// Commander executes entity commands. *entity.Manager satisfies it.
type Commander interface {
	Entity(uniqueID string) (entity.Entity, error)
	TurnOn(uniqueID string, brightness *int) (string, error)
	TurnOff(uniqueID string) (string, error)
}

// stateMessage is the retained payload of an entity state topic.
type stateMessage struct {
	UniqueID   string         `json:"unique_id"`
	Name       string         `json:"name"`
	State      string         `json:"state"`
	Brightness *int           `json:"brightness,omitempty"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes"`
}

// setMessage is the payload accepted on an entity set topic.
type setMessage struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

// MQTTMirror mirrors entity state to retained MQTT topics and turns
// messages on .../set topics into entity commands.
//
// Unchanged payloads are not republished; the broker already retains them.
//
// Thread Safety: All methods are safe for concurrent use.
type MQTTMirror struct {
	client   MQTTClient
	commands Commander
	topics   mqtt.Topics
	logger   Logger

	lastPayload map[string][]byte // by state topic
	cacheMu     sync.Mutex
}

// NewMQTTMirror creates a mirror publishing through client and sending set
// commands to commands.
func NewMQTTMirror(client MQTTClient, commands Commander) *MQTTMirror {
	return &MQTTMirror{
		client:      client,
		commands:    commands,
		topics:      client.Topics(),
		logger:      noopLogger{},
		lastPayload: make(map[string][]byte),
	}
}

// SetLogger sets the logger for the mirror.
func (m *MQTTMirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Start subscribes to every entity set topic of the bridge.
func (m *MQTTMirror) Start() error {
	topic := m.topics.AllSets()
	if err := m.client.Subscribe(topic, m.client.QoS(), m.handleSet); err != nil {
		return fmt.Errorf("subscribe to set topics: %w", err)
	}
	m.logger.Info("subscribed to entity set topics", "topic", topic)
	return nil
}

// Stop unsubscribes from the set topics.
func (m *MQTTMirror) Stop() error {
	return m.client.Unsubscribe(m.topics.AllSets())
}

// WriteState implements entity.StateWriter.
func (m *MQTTMirror) WriteState(_ context.Context, s entity.Snapshot) {
	msg := stateMessage{
		UniqueID:   s.UniqueID,
		Name:       s.Name,
		State:      StateOff,
		Brightness: s.Brightness,
		Available:  s.Available,
		Attributes: s.Attributes,
	}
	if s.IsOn {
		msg.State = StateOn
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("failed to marshal entity state", "unique_id", s.UniqueID, "error", err)
		return
	}

	topic := m.topics.EntityState(string(s.Platform), s.DeviceID)
	if m.unchanged(topic, payload) {
		return
	}

	if err := m.client.Publish(topic, payload, m.client.QoS(), true); err != nil {
		m.forget(topic)
		m.logger.Warn("failed to publish entity state", "topic", topic, "error", err)
	}
}

// DevicesRefreshed implements entity.StateWriter. Per-entity state topics
// already carry everything the mirror publishes.
func (m *MQTTMirror) DevicesRefreshed(_ context.Context, r entity.Refresh) {
	if len(r.NewEntities) > 0 {
		m.logger.Debug("mqtt mirror picked up new entities", "count", len(r.NewEntities))
	}
}

// handleSet processes one message on an entity set topic.
func (m *MQTTMirror) handleSet(topic string, payload []byte) error {
	platform, deviceID, ok := m.topics.ParseSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidSetTopic, topic)
	}

	var msg setMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetPayload, err)
	}

	uniqueID := entity.UniqueID(m.topics.BridgeID, deviceID)
	e, err := m.commands.Entity(uniqueID)
	if err != nil {
		return err
	}
	if string(e.Platform()) != platform {
		return fmt.Errorf("%w: %s is %s", ErrPlatformMismatch, uniqueID, e.Platform())
	}

	var commandID string
	switch strings.ToUpper(strings.TrimSpace(msg.State)) {
	case StateOn:
		commandID, err = m.commands.TurnOn(uniqueID, msg.Brightness)
	case StateOff:
		commandID, err = m.commands.TurnOff(uniqueID)
	default:
		return fmt.Errorf("%w: state %q", ErrInvalidSetPayload, msg.State)
	}
	if err != nil {
		return err
	}

	m.logger.Info("mqtt command queued",
		"unique_id", uniqueID,
		"state", msg.State,
		"command_id", commandID)
	return nil
}

// unchanged reports whether payload matches the last one published to topic,
// recording it when it does not.
func (m *MQTTMirror) unchanged(topic string, payload []byte) bool {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	if bytes.Equal(m.lastPayload[topic], payload) {
		return true
	}
	m.lastPayload[topic] = payload
	return false
}

func (m *MQTTMirror) forget(topic string) {
	m.cacheMu.Lock()
	delete(m.lastPayload, topic)
	m.cacheMu.Unlock()
}
