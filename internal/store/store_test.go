package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/airwarden/airwarden/pkg/plugin"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMigrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create things",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT)")
				return err
			},
		},
		{
			Version:     2,
			Description: "add kind column",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE things ADD COLUMN kind TEXT")
				return err
			},
		},
	}
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "demo", testMigrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Both columns exist after both migrations ran.
	if _, err := s.DB().Exec("INSERT INTO things (name, kind) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx, "demo", testMigrations()); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	// A second run must skip already-applied versions; the ALTER TABLE
	// would fail otherwise.
	if err := s.Migrate(ctx, "demo", testMigrations()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var count int
	err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM _migrations WHERE module_name = 'demo'",
	).Scan(&count)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}
}

func TestMigrate_FailedMigrationRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	bad := []plugin.Migration{
		{
			Version:     1,
			Description: "fails midway",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec("CREATE TABLE half (id INTEGER)"); err != nil {
					return err
				}
				return errors.New("boom")
			},
		},
	}

	if err := s.Migrate(ctx, "demo", bad); err == nil {
		t.Fatal("failing migration returned nil error")
	}

	// Nothing from the failed migration may persist.
	if _, err := s.DB().Exec("INSERT INTO half (id) VALUES (1)"); err == nil {
		t.Error("table from rolled-back migration still exists")
	}
	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("failed migration recorded as applied")
	}
}

func TestTx_CommitAndRollback(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.DB().Exec("CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatal(err)
	}

	if err := s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (id) VALUES (1)")
		return err
	}); err != nil {
		t.Fatalf("Tx commit: %v", err)
	}

	wantErr := errors.New("abort")
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (id) VALUES (2)"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Tx rollback returned %v, want %v", err, wantErr)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1 (rollback leaked a row)", count)
	}
}

func TestCheckVersion(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// First run records the version.
	if err := s.CheckVersion(ctx, "0.2.0"); err != nil {
		t.Fatalf("first CheckVersion: %v", err)
	}
	// Same version passes.
	if err := s.CheckVersion(ctx, "0.2.0"); err != nil {
		t.Fatalf("same version: %v", err)
	}
	// Upgrade passes and updates the stored version.
	if err := s.CheckVersion(ctx, "0.3.0"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	// Downgrade is refused.
	if err := s.CheckVersion(ctx, "0.1.0"); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("downgrade error = %v, want ErrNewerSchema", err)
	}
	// Dev builds always pass.
	if err := s.CheckVersion(ctx, "dev"); err != nil {
		t.Errorf("dev version: %v", err)
	}
}
