// Package influxdb records bridge telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//
//   - device_state: one point per entity refresh, tagged with bridge, device
//     and platform, carrying the numeric and boolean fields of the device
//     state as reported by the Control4 driver
//   - command_events: counts of commands queued, delivered and acknowledged
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceState("main_house", "42", "light", state)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Write errors are delivered to the SetOnError callback.
package influxdb
