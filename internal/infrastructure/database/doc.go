// Package database provides SQLite connectivity for Hearth Core.
//
// The database backs the telemetry history store: thermostat readings
// recorded by the simulator and the ingest endpoint land here and are
// pruned on a retention schedule. The package manages:
//   - Connection setup with WAL mode for concurrent reads during writes
//   - Schema migrations embedded in the binary (additive-only)
//   - Single-writer connection pooling matching SQLite's locking model
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only to support safe rollbacks:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns
//   - Each migration file has both .up.sql and .down.sql
package database
