// Package bridge holds the in-memory mirror of one Control4 installation.
//
// A Store owns three tables behind a single mutex:
//   - the device table, replaced record-by-record on every sync
//   - the FIFO queue of commands waiting to be polled by the driver
//   - the in-flight table of commands handed to the driver but not yet acknowledged
//
// Command lifecycle:
//
//	EnqueueCommand ──► pending ──PopCommands──► in-flight ──AckCommands──► gone
//
// Devices are never evicted and in-flight commands never time out. Both
// grow without bound if the driver misbehaves; callers that care can watch
// Store.Stats.
//
// Store methods never fail. Malformed sync entries are skipped and counted
// out, unknown acknowledgement ids are ignored.
//
// The store performs no I/O. An optional Observer is notified of command
// lifecycle transitions after the lock is released.
package bridge
