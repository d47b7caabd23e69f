package influxdb

import (
	"encoding/json"
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceState   = "device_state"
	MeasurementCommandEvents = "command_events"
)

// StateFields keeps the numeric and boolean values of a device state map.
// Strings and nested values are not representable as InfluxDB fields
// without guessing a type, so they are dropped. Returns nil when nothing
// is left.
func StateFields(state map[string]any) map[string]any {
	var fields map[string]any
	for k, v := range state {
		var f any
		switch n := v.(type) {
		case bool:
			f = n
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				continue
			}
			f = n
		case json.Number:
			// Always float so a field never flips type between writes.
			v, err := n.Float64()
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			f = v
		case float32:
			f = float64(n)
		case int:
			f = int64(n)
		case int64:
			f = n
		case int32:
			f = int64(n)
		default:
			continue
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		fields[k] = f
	}
	return fields
}

func deviceStatePoint(bridgeID, deviceID, platform string, fields map[string]any, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDeviceState,
		map[string]string{
			"bridge_id": bridgeID,
			"device_id": deviceID,
			"platform":  platform,
		},
		fields,
		ts,
	)
}

func commandEventsPoint(bridgeID, event string, n int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCommandEvents,
		map[string]string{
			"bridge_id": bridgeID,
			"event":     event,
		},
		map[string]any{
			"count": int64(n),
		},
		ts,
	)
}

// WriteDeviceState records the numeric and boolean fields of a device state.
// A state without such fields writes nothing.
func (c *Client) WriteDeviceState(bridgeID, deviceID, platform string, state map[string]any) {
	if !c.IsConnected() {
		return
	}

	fields := StateFields(state)
	if len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(deviceStatePoint(bridgeID, deviceID, platform, fields, time.Now()))
}

// RecordCommandEvents counts n command lifecycle events of one kind
// ("queued", "delivered", "acked").
func (c *Client) RecordCommandEvents(bridgeID, event string, n int) {
	if !c.IsConnected() || n <= 0 {
		return
	}
	c.writeAPI.WritePoint(commandEventsPoint(bridgeID, event, n, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
