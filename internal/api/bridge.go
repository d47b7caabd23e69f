package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/c4bridge-core/internal/bridge"
	"github.com/nerrad567/c4bridge-core/internal/dispatch"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/config"
)

type syncResponse struct {
	OK              bool `json:"ok"`
	AcceptedDevices int  `json:"accepted_devices"`
}

type commandsResponse struct {
	OK       bool             `json:"ok"`
	Commands []bridge.Command `json:"commands"`
}

type ackResponse struct {
	OK    bool `json:"ok"`
	Acked int  `json:"acked"`
}

// handleSync accepts the driver's device snapshot.
//
// Body: {"bridge_id": "...", "protocol_version": 1, "devices": [...]}
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(r)
	if !ok {
		writeBridgeError(w, http.StatusBadRequest, BridgeErrInvalidJSON)
		return
	}
	if !s.knownBridge(body["bridge_id"]) {
		writeBridgeError(w, http.StatusNotFound, BridgeErrUnknownBridge)
		return
	}
	if !supportedProtocol(body["protocol_version"]) {
		writeBridgeError(w, http.StatusBadRequest, BridgeErrUnsupportedProtocol)
		return
	}
	devices, ok := optionalArray(body, "devices")
	if !ok {
		writeBridgeError(w, http.StatusBadRequest, BridgeErrInvalidDevices)
		return
	}

	accepted := s.store.UpsertDevices(devices)
	if s.notifier != nil && !s.notifier.Send(dispatch.SignalDeviceUpdate, nil) {
		s.logger.Warn("device update signal dropped")
	}

	s.logger.Debug("sync accepted", "received", len(devices), "accepted", accepted)
	writeJSON(w, http.StatusOK, syncResponse{OK: true, AcceptedDevices: accepted})
}

// handleCommands hands the next batch of queued commands to the driver.
//
// Query parameters:
//   - bridge_id: must match the configured bridge
//   - limit: batch size, clamped to [1,100]; defaults to the configured
//     command_batch_size when absent or not an integer
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("bridge_id") != s.store.BridgeID() {
		writeBridgeError(w, http.StatusNotFound, BridgeErrUnknownBridge)
		return
	}

	limit := parseLimit(q.Get("limit"), s.bridge.CommandBatchSize)
	commands := s.store.PopCommands(limit)
	if commands == nil {
		commands = []bridge.Command{}
	}

	if len(commands) > 0 {
		s.logger.Debug("commands delivered", "count", len(commands), "limit", limit)
	}
	writeJSON(w, http.StatusOK, commandsResponse{OK: true, Commands: commands})
}

// handleAck removes executed commands from the in-flight table.
//
// Body: {"bridge_id": "...", "acks": [{"command_id": "cmd_..."}]}
func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeObject(r)
	if !ok {
		writeBridgeError(w, http.StatusBadRequest, BridgeErrInvalidJSON)
		return
	}
	if !s.knownBridge(body["bridge_id"]) {
		writeBridgeError(w, http.StatusNotFound, BridgeErrUnknownBridge)
		return
	}
	acks, ok := optionalArray(body, "acks")
	if !ok {
		writeBridgeError(w, http.StatusBadRequest, BridgeErrInvalidAcks)
		return
	}

	acked := s.store.AckCommands(bridge.AckIDs(acks))
	writeJSON(w, http.StatusOK, ackResponse{OK: true, Acked: acked})
}

func (s *Server) knownBridge(v any) bool {
	id, ok := v.(string)
	return ok && id == s.store.BridgeID()
}

// decodeObject reads a single JSON object from the request body.
func decodeObject(r *http.Request) (map[string]any, bool) {
	if r.Body == nil {
		return nil, false
	}
	dec := json.NewDecoder(r.Body)
	// Numbers stay as json.Number so large numeric device and command ids
	// keep every digit.
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	obj, ok := v.(map[string]any)
	return obj, ok
}

// supportedProtocol reports whether v is the numeric protocol version. 1 and
// 1.0 are both accepted; strings and booleans are not.
func supportedProtocol(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	f, err := n.Float64()
	return err == nil && f == bridge.ProtocolVersion
}

// optionalArray returns body[key] as an array. An absent key is an empty
// array; any other non-array value, null included, is rejected.
func optionalArray(body map[string]any, key string) ([]any, bool) {
	v, present := body[key]
	if !present {
		return []any{}, true
	}
	arr, ok := v.([]any)
	return arr, ok
}

// parseLimit parses the commands limit. Non-integers fall back to def;
// the result is clamped to [MinCommandBatchSize, MaxCommandBatchSize].
func parseLimit(raw string, def int) int {
	limit := def
	if raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err == nil:
			limit = n
		case errors.Is(err, strconv.ErrRange):
			limit = math.MaxInt
			if strings.HasPrefix(strings.TrimSpace(raw), "-") {
				limit = math.MinInt
			}
		}
	}
	return max(config.MinCommandBatchSize, min(config.MaxCommandBatchSize, limit))
}
