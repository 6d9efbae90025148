package migration

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("orders by numeric version and reads descriptions", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"schema/010_add_index.sql":     {Data: []byte("CREATE INDEX idx ON things(name);")},
			"schema/002_create_things.sql": {Data: []byte("-- Description: things table\nCREATE TABLE things (name TEXT);")},
			"schema/README.md":             {Data: []byte("ignored")},
		}
		migrations, err := Scan(fsys, "schema")
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "002" || migrations[1].Version != "010" {
			t.Fatalf("unexpected order %s, %s", migrations[0].Version, migrations[1].Version)
		}
		if migrations[0].Description != "things table" {
			t.Fatalf("unexpected description %q", migrations[0].Description)
		}
		if migrations[1].Description != "add index" {
			t.Fatalf("expected filename description, got %q", migrations[1].Description)
		}
		if migrations[0].Checksum == "" {
			t.Fatalf("expected checksum")
		}
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		t.Parallel()

		cases := map[string]fstest.MapFS{
			"bad name":  {"schema/create.sql": {Data: []byte("SELECT 1;")}},
			"empty":     {"schema/001_empty.sql": {Data: []byte("  \n")}},
			"duplicate": {"schema/001_a.sql": {Data: []byte("SELECT 1;")}, "schema/001_b.sql": {Data: []byte("SELECT 1;")}},
		}
		for name, fsys := range cases {
			if _, err := Scan(fsys, "schema"); err == nil {
				t.Fatalf("%s: expected error", name)
			}
		}
	})
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- only a comment;\nINSERT INTO a VALUES (1);")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "INSERT INTO a VALUES (1)" {
		t.Fatalf("unexpected statement %q", got[1])
	}
}

func TestManagerRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Connect(InMemoryTestSQLiteConfig())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys := fstest.MapFS{
		"schema/001_create_things.sql": {Data: []byte("CREATE TABLE things (name TEXT NOT NULL);")},
		"schema/002_seed.sql":          {Data: []byte("INSERT INTO things (name) VALUES ('a');")},
	}
	migrations, err := Scan(fsys, "schema")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	executor := NewSQLiteExecutor(db)
	manager := NewManager(executor, migrations, nil)
	if err := manager.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := manager.Run(ctx); err != nil {
		t.Fatalf("second Run must be a no-op, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed to run once, got %d rows", count)
	}

	applied, err := executor.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions failed: %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "001" || applied[1].Version != "002" {
		t.Fatalf("unexpected applied versions %+v", applied)
	}

	t.Run("edited migration is rejected", func(t *testing.T) {
		edited := append([]Migration(nil), migrations...)
		edited[0].Checksum = "changed"
		err := NewManager(executor, edited, nil).Run(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected checksum mismatch, got %v", err)
		}
	})

	t.Run("failed migration rolls back", func(t *testing.T) {
		broken := []Migration{{Version: "003", FilePath: "schema/003_broken.sql", SQL: "INSERT INTO things (name) VALUES ('b'); INSERT INTO missing VALUES (1);"}}
		err := NewManager(executor, broken, nil).Run(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected migration failure, got %v", err)
		}
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM things").Scan(&count); err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected rollback, got %d rows", count)
		}
	})
}

func TestSQLiteConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultSQLiteConfig("cache.db").Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	bad := DefaultSQLiteConfig("cache.db")
	bad.JournalMode = "SIDEWAYS"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected journal mode error")
	}
	if err := DefaultSQLiteConfig(" ").Validate(); err == nil {
		t.Fatalf("expected DSN error")
	}
	if !InMemoryTestSQLiteConfig().InMemory() || DefaultSQLiteConfig("file:cache.db").InMemory() {
		t.Fatalf("InMemory misreports")
	}
}
