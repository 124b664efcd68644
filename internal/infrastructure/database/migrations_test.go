package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

// testSource holds two migrations; the second depends on the first.
func testSource() MigrationSource {
	return MigrationSource{
		FS: fstest.MapFS{
			"sql/20261001_090000_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
			"sql/20261001_090000_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
			"sql/20261002_090000_add_notes.up.sql":      {Data: []byte("CREATE TABLE notes (item_id INTEGER REFERENCES items(id));")},
			"sql/20261002_090000_add_notes.down.sql":    {Data: []byte("DROP TABLE notes;")},
			"sql/README.txt":                            {Data: []byte("ignored")},
		},
		Dir: "sql",
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src := testSource()
	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"items", "notes"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20261001_090000" {
		t.Errorf("first applied = %s", applied[0].Version)
	}

	// Running again is a no-op.
	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	src := testSource()
	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if err := db.MigrateDown(ctx, src); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "notes") {
		t.Error("notes still exists after rollback")
	}
	if !tableExists(t, db, "items") {
		t.Error("items rolled back too")
	}

	_, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "add_notes" {
		t.Errorf("pending = %+v, want add_notes", pending)
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx, MigrationSource{}); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, MigrationSource{}); err != nil {
		t.Fatalf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestMigrate_FailureStopsAtBadMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	src := MigrationSource{FS: fstest.MapFS{
		"20261001_090000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20261002_090000_bad.up.sql":  {Data: []byte("CREATE TABLE broken (")},
	}}

	ctx := context.Background()
	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() error = nil, want failure")
	}
	if !tableExists(t, db, "good") {
		t.Error("earlier migration was not kept")
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestParseMigrationFile(t *testing.T) {
	tests := []struct {
		filename string
		want     migrationFile
		wantOk   bool
	}{
		{"20261001_090000_automation_sessions.up.sql", migrationFile{"20261001_090000", "automation_sessions", true}, true},
		{"20261001_090000_automation_sessions.down.sql", migrationFile{"20261001_090000", "automation_sessions", false}, true},
		{"20261001_090000.up.sql", migrationFile{"20261001_090000", "20261001_090000", true}, true},
		{"readme.txt", migrationFile{}, false},
		{"20261001_090000_create_items.sql", migrationFile{}, false},
		{"invalid.up.sql", migrationFile{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := parseMigrationFile(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("parseMigrationFile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadMigrations_IgnoresOrphanDown(t *testing.T) {
	src := MigrationSource{FS: fstest.MapFS{
		"20261001_090000_a.down.sql": {Data: []byte("DROP TABLE a;")},
		"20261002_090000_b.up.sql":   {Data: []byte("CREATE TABLE b (id INTEGER);")},
	}}
	got, err := loadMigrations(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "b" {
		t.Errorf("loadMigrations() = %+v", got)
	}
}
