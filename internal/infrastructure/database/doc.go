// Package database provides SQLite connectivity for the simulator.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from any fs.FS (the binary embeds them)
//   - Connection pooling and lifecycle management
//
// The simulator stores the history of finished automation sessions here.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive-only:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Each migration file has both .up.sql and .down.sql
//   - Files are named YYYYMMDD_HHMMSS_description.{up,down}.sql
package database
