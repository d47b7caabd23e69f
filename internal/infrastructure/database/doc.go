// Package database provides the SQLite connection used by the bridge core's
// host-side tables (device registry and command audit trail).
//
// The bridge's live device map and command queues never touch this
// database. Only data the host keeps about the bridge lives here.
//
// The package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Additive schema migrations loaded from any fs.FS
//   - Health checks for the /api/v1/health endpoint
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
//	    return err
//	}
package database
