// Package device is the host-side registry of devices reported by Control4 bridges.
//
// Every refresh of the entity layer registers each bridge device here, keyed
// by its identifier (control4_bridge:{bridge}:{device}). The registry keeps
// name, suggested area, manufacturer and model current and tracks when the
// device was first and last seen.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────┐
//	│                  Device Registry                    │
//	│                                                     │
//	│  ┌──────────────────┐      ┌──────────────────┐     │
//	│  │     Registry     │      │    Repository    │     │
//	│  │  (registry.go)   │─────▶│ (repository.go)  │     │
//	│  │                  │      │                  │     │
//	│  │ • Register       │      │ • SQLite upsert  │     │
//	│  │ • In-memory cache│      │ • Queries        │     │
//	│  │ • Write skipping │      │                  │     │
//	│  └──────────────────┘      └──────────────────┘     │
//	└─────────────────────────────────────────────────────┘
//
// The registry is an observability catalogue. It is never read back into the
// bridge store, which starts empty on every restart.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	manager.SetRegistrar(registry)
package device
