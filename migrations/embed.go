// Package migrations embeds the simulator's SQL migration files into the
// binary so no SQL needs to be present on the filesystem at runtime.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migrations for database.DB.Migrate.
func Source() database.MigrationSource {
	return database.MigrationSource{FS: files, Dir: "."}
}
