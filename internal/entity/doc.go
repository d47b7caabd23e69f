// Package entity exposes bridge devices as typed entities.
//
// Each Platform (light, switch, binary_sensor) claims a fixed set of device
// type tags. An entity holds only its store and device id and reads the
// device record live on every call, so it always reflects the latest sync and
// reports itself unavailable if the device is missing.
//
// The Manager owns every entity of one store. On each devices-changed signal
// it instantiates entities for newly seen devices (entities are never
// removed), registers device info with the host registry and pushes the
// state of every entity to a StateWriter.
//
// User actions flow the other way: Manager.TurnOn / Manager.TurnOff translate
// into commands queued on the store for the driver to poll.
package entity
