package migrate_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"agentdb/internal/enginerr"
	"agentdb/internal/migrate"
)

func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Touch the file so backups have something to copy.
	if _, err := db.Exec("PRAGMA journal_mode = DELETE"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS _touch (x)"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	return db, dbPath
}

func TestApply_FreshDatabaseRunsAll(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())

	done, err := r.Apply(0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(done) != 3 {
		t.Fatalf("applied %d migrations, want 3", len(done))
	}

	v, err := r.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != 3 {
		t.Fatalf("version = %d, want 3", v)
	}

	// Schema from all three migrations must be usable.
	if _, err := db.Exec(
		`INSERT INTO files (repo_path, file_hash) VALUES ('a.go', 'sha256:00')`,
	); err != nil {
		t.Fatalf("insert file: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO symbols (repo_path, name, kind, content_hash, l0_overview)
		 VALUES ('a.go', 'main', 'function', 'sha256:01', 'entry point')`,
	); err != nil {
		t.Fatalf("insert symbol with multilevel column: %v", err)
	}
}

func TestApply_IsIdempotentAndResumable(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())

	if _, err := r.Apply(1); err != nil {
		t.Fatalf("Apply to 1: %v", err)
	}
	pending, err := r.Pending(0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Version != 2 {
		t.Fatalf("pending = %v, want v2 v3", pending)
	}

	done, err := r.Apply(0)
	if err != nil {
		t.Fatalf("Apply rest: %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("applied %d, want 2", len(done))
	}

	again, err := r.Apply(0)
	if err != nil {
		t.Fatalf("Apply again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-apply did work: %v", again)
	}
}

func TestApply_ChecksumMismatchRejected(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())
	if _, err := r.Apply(0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Simulate a build whose v1 SQL was rewritten.
	tampered := migrate.Builtin()
	tampered[0] = migrate.NewMigration(1, "initial schema", "CREATE TABLE different (x)", "")
	r2 := migrate.NewRunner(db, dbPath, tampered)

	_, err := r2.Apply(0)
	if !enginerr.Is(err, enginerr.DBVersionMismatch) {
		t.Fatalf("err = %v, want db_version_mismatch", err)
	}
}

func TestApply_UnknownAppliedVersionRejected(t *testing.T) {
	db, dbPath := openTestDB(t)
	full := migrate.NewRunner(db, dbPath, migrate.Builtin())
	if _, err := full.Apply(0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// An older build that only knows v1 and v2 must refuse the database.
	older := migrate.NewRunner(db, dbPath, migrate.Builtin()[:2])
	if err := older.Verify(); !enginerr.Is(err, enginerr.DBVersionMismatch) {
		t.Fatalf("Verify = %v, want db_version_mismatch", err)
	}
}

func TestRollback_LatestOnly(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())
	if _, err := r.Apply(0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := r.Rollback(1); !enginerr.Is(err, enginerr.RollbackFailed) {
		t.Fatalf("Rollback(1) = %v, want rollback_failed", err)
	}

	if err := r.Rollback(3); err != nil {
		t.Fatalf("Rollback(3): %v", err)
	}
	v, err := r.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != 2 {
		t.Fatalf("version after rollback = %d, want 2", v)
	}
}

func TestRollback_EmptyHistoryRejected(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())
	if err := r.Rollback(1); !enginerr.Is(err, enginerr.RollbackFailed) {
		t.Fatalf("Rollback on empty = %v, want rollback_failed", err)
	}
}

func TestBackup_CreatedBeforeApply(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())
	if _, err := r.Apply(0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(dbPath))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), ".backup-") {
			found = true
		}
	}
	if !found {
		t.Fatal("no backup file created before apply")
	}
}

func TestBackup_MissingFile(t *testing.T) {
	db, _ := openTestDB(t)
	r := migrate.NewRunner(db, filepath.Join(t.TempDir(), "nope.db"), migrate.Builtin())
	if _, err := r.Backup(); !enginerr.Is(err, enginerr.NoDBFound) {
		t.Fatalf("Backup = %v, want no_db_found", err)
	}
}

func TestPlan_ReportsWithoutExecuting(t *testing.T) {
	db, dbPath := openTestDB(t)
	r := migrate.NewRunner(db, dbPath, migrate.Builtin())

	steps, err := r.Plan(0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(steps) != 3 || steps[0].Direction != "up" {
		t.Fatalf("steps = %v", steps)
	}

	v, err := r.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != 0 {
		t.Fatalf("Plan applied migrations: version %d", v)
	}
}
