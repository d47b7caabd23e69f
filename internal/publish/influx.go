package publish

import (
	"context"

	"github.com/nerrad567/c4bridge-core/internal/entity"
)

// DeviceStateRecorder is the slice of *influxdb.Client the telemetry writer
// needs.
type DeviceStateRecorder interface {
	WriteDeviceState(bridgeID, deviceID, platform string, state map[string]any)
}

// InfluxWriter records entity state as InfluxDB points. Unavailable
// entities are skipped.
type InfluxWriter struct {
	recorder DeviceStateRecorder
}

// NewInfluxWriter creates a telemetry writer over recorder.
func NewInfluxWriter(recorder DeviceStateRecorder) *InfluxWriter {
	return &InfluxWriter{recorder: recorder}
}

// WriteState implements entity.StateWriter.
func (w *InfluxWriter) WriteState(_ context.Context, s entity.Snapshot) {
	if !s.Available {
		return
	}

	state := make(map[string]any, len(s.State)+2)
	for k, v := range s.State {
		state[k] = v
	}
	state["is_on"] = s.IsOn
	if s.Brightness != nil {
		state["brightness_255"] = *s.Brightness
	}

	w.recorder.WriteDeviceState(s.DeviceInfo.BridgeID, s.DeviceID, string(s.Platform), state)
}

// DevicesRefreshed implements entity.StateWriter. Refresh summaries are not
// recorded.
func (w *InfluxWriter) DevicesRefreshed(context.Context, entity.Refresh) {}
