// Package publish fans entity state out to the host surfaces.
//
// The entity manager writes every snapshot to a single entity.StateWriter.
// Fanout forwards it to each configured surface:
//   - the WebSocket hub (internal/api)
//   - the MQTT mirror, which also turns .../set topics into entity commands
//   - the InfluxDB telemetry writer
//
// MQTT and InfluxDB are optional; main only adds the writers whose
// infrastructure is enabled.
package publish
