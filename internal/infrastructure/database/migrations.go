package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationSource locates migration files. Dir is "." when the files sit at
// the root of FS, as with the embedded migrations package.
type MigrationSource struct {
	FS  fs.FS
	Dir string
}

// Migration is one versioned schema change. Version is the
// YYYYMMDD_HHMMSS filename prefix.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   string
	AppliedAt time.Time
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate applies every pending migration from src, oldest first, each in
// its own transaction. A failure leaves earlier migrations committed and
// stops there; the next call resumes at the failed one.
func (db *DB) Migrate(ctx context.Context, src MigrationSource) error {
	_, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied migration. It is a no-op
// when nothing is applied.
func (db *DB) MigrateDown(ctx context.Context, src MigrationSource) error {
	applied, _, err := db.MigrationStatus(ctx, src)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	version := applied[len(applied)-1].Version

	all, err := loadMigrations(src)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return fmt.Errorf("migration %s not found in source", version)
	}
	m := all[i]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", version)
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return fmt.Errorf("reverting %s: %w", version, err)
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", version)
		return err
	})
}

// MigrationStatus reports the applied migrations and those of src not yet
// applied, both in version order.
func (db *DB) MigrationStatus(ctx context.Context, src MigrationSource) (applied []AppliedMigration, pending []Migration, err error) {
	if _, err := db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, nil, fmt.Errorf("creating migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var a AppliedMigration
		var at string
		if err := rows.Scan(&a.Version, &at); err != nil {
			return nil, nil, fmt.Errorf("scanning migration row: %w", err)
		}
		a.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		applied = append(applied, a)
		done[a.Version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating migrations: %w", err)
	}

	all, err := loadMigrations(src)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// migrationFile is a parsed migration filename.
type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile splits "20261001_090000_automation_sessions.up.sql"
// into its version, name and direction.
func parseMigrationFile(filename string) (migrationFile, bool) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return migrationFile{}, false
	}

	var f migrationFile
	if b, ok := strings.CutSuffix(base, ".up"); ok {
		f.up, base = true, b
	} else if b, ok := strings.CutSuffix(base, ".down"); ok {
		base = b
	} else {
		return migrationFile{}, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 {
		return migrationFile{}, false
	}
	f.version = parts[0] + "_" + parts[1]
	f.name = f.version
	if len(parts) == 3 {
		f.name = parts[2]
	}
	return f, true
}

// loadMigrations reads every migration in src, oldest first. Files that do
// not parse are ignored, as is a nil FS.
func loadMigrations(src MigrationSource) ([]Migration, error) {
	if src.FS == nil {
		return nil, nil
	}
	dir := src.Dir
	if dir == "" {
		dir = "."
	}

	entries, err := fs.ReadDir(src.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations %s: %w", dir, err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		f, ok := parseMigrationFile(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		body, err := fs.ReadFile(src.FS, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}

		m := byVersion[f.version]
		if m == nil {
			m = &Migration{Version: f.version}
			byVersion[f.version] = m
		}
		if f.up {
			m.Name, m.UpSQL = f.name, string(body)
		} else {
			m.DownSQL = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		// A down file without its up file is not a migration.
		if m.UpSQL != "" {
			out = append(out, *m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}
