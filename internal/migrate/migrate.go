// Package migrate manages versioned schema migrations for the index
// database. Each migration is a checksummed up/down SQL pair; applied
// versions are recorded in schema_migrations so the engine can detect
// databases that are ahead of or behind the binary.
package migrate

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"agentdb/internal/enginerr"
)

// Migration is one versioned schema change. Checksum is derived from
// the up SQL so a rewritten migration is detected on startup.
type Migration struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
	Checksum    string `json:"checksum"`
	UpSQL       string `json:"-"`
	DownSQL     string `json:"-"`
}

// Applied is a schema_migrations row.
type Applied struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
	Checksum    string `json:"checksum"`
	AppliedAt   string `json:"applied_at"`
}

// Step describes one planned migration action without executing it.
type Step struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
	Direction   string `json:"direction"` // "up" or "down"
}

// Runner applies and rolls back migrations against a single database.
type Runner struct {
	db         *sql.DB
	dbPath     string
	migrations []Migration
}

// NewRunner creates a runner over db. dbPath is the database file on
// disk, used for pre-apply backups; an empty path disables backups
// (in-memory databases in tests).
func NewRunner(db *sql.DB, dbPath string, migrations []Migration) *Runner {
	ms := make([]Migration, len(migrations))
	copy(ms, migrations)
	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })
	return &Runner{db: db, dbPath: dbPath, migrations: ms}
}

// checksumSQL hashes migration SQL the same way file content is hashed
// elsewhere in the engine.
func checksumSQL(sqlText string) string {
	sum := sha256.Sum256([]byte(sqlText))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// NewMigration builds a Migration with its checksum filled in.
func NewMigration(version int, description, upSQL, downSQL string) Migration {
	return Migration{
		Version:     version,
		Description: description,
		Checksum:    checksumSQL(upSQL),
		UpSQL:       upSQL,
		DownSQL:     downSQL,
	}
}

func (r *Runner) ensureTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			checksum    TEXT NOT NULL,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}
	return nil
}

// AppliedVersions returns the applied migrations in ascending order.
func (r *Runner) AppliedVersions() ([]Applied, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(
		`SELECT version, checksum, description, applied_at
		 FROM schema_migrations ORDER BY version ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("migrate: query applied: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Version, &a.Checksum, &a.Description, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CurrentVersion returns the highest applied version, 0 when none.
func (r *Runner) CurrentVersion() (int, error) {
	applied, err := r.AppliedVersions()
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, nil
	}
	return applied[len(applied)-1].Version, nil
}

// Verify checks every applied migration against the registered set.
// A checksum mismatch or an applied version the binary does not know
// about means the database and the binary have diverged.
func (r *Runner) Verify() error {
	applied, err := r.AppliedVersions()
	if err != nil {
		return err
	}
	known := make(map[int]Migration, len(r.migrations))
	for _, m := range r.migrations {
		known[m.Version] = m
	}
	for _, a := range applied {
		m, ok := known[a.Version]
		if !ok {
			return enginerr.Newf(enginerr.DBVersionMismatch,
				"database has migration v%d which this build does not know; upgrade the binary", a.Version)
		}
		if m.Checksum != a.Checksum {
			return enginerr.Newf(enginerr.DBVersionMismatch,
				"migration v%d checksum mismatch: recorded %s, expected %s", a.Version, a.Checksum, m.Checksum)
		}
	}
	return nil
}

// Pending returns migrations not yet applied, up to and including
// target. target <= 0 means all registered migrations.
func (r *Runner) Pending(target int) ([]Migration, error) {
	current, err := r.CurrentVersion()
	if err != nil {
		return nil, err
	}
	if target <= 0 {
		target = r.latestVersion()
	}
	var out []Migration
	for _, m := range r.migrations {
		if m.Version > current && m.Version <= target {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Runner) latestVersion() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// Plan returns the steps Apply would take, without executing them.
func (r *Runner) Plan(target int) ([]Step, error) {
	pending, err := r.Pending(target)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(pending))
	for _, m := range pending {
		steps = append(steps, Step{Version: m.Version, Description: m.Description, Direction: "up"})
	}
	return steps, nil
}

// Apply runs all pending migrations up to target (all when target <= 0),
// backing up the database file first. Each migration commits in its own
// transaction with its schema_migrations row, so a failure leaves every
// earlier migration recorded and the run resumable.
func (r *Runner) Apply(target int) ([]Applied, error) {
	if err := r.Verify(); err != nil {
		return nil, err
	}
	pending, err := r.Pending(target)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if r.dbPath != "" {
		if _, err := r.Backup(); err != nil {
			return nil, err
		}
	}

	var done []Applied
	for _, m := range pending {
		if err := r.applyOne(m); err != nil {
			return done, err
		}
		done = append(done, Applied{
			Version:     m.Version,
			Description: m.Description,
			Checksum:    m.Checksum,
			AppliedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}
	return done, nil
}

func (r *Runner) applyOne(m Migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin v%d: %w", m.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(m.UpSQL); err != nil {
		return fmt.Errorf("migrate: apply v%d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, checksum, description) VALUES (?, ?, ?)`,
		m.Version, m.Checksum, m.Description,
	); err != nil {
		return fmt.Errorf("migrate: record v%d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit v%d: %w", m.Version, err)
	}
	return nil
}

// Rollback reverts exactly the given version, which must be the highest
// applied one. Reverting from the middle of the history is refused.
func (r *Runner) Rollback(version int) error {
	current, err := r.CurrentVersion()
	if err != nil {
		return err
	}
	if current == 0 {
		return enginerr.New(enginerr.RollbackFailed, "no migrations have been applied")
	}
	if version != current {
		return enginerr.Newf(enginerr.RollbackFailed,
			"can only roll back the latest migration v%d, not v%d", current, version)
	}

	var m *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == version {
			m = &r.migrations[i]
			break
		}
	}
	if m == nil {
		return enginerr.Newf(enginerr.RollbackFailed, "migration v%d is not registered in this build", version)
	}
	if m.DownSQL == "" {
		return enginerr.Newf(enginerr.RollbackFailed, "migration v%d (%s) has no down migration", version, m.Description)
	}

	if r.dbPath != "" {
		if _, err := r.Backup(); err != nil {
			return err
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin rollback v%d: %w", version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(m.DownSQL); err != nil {
		return enginerr.Newf(enginerr.RollbackFailed, "down migration v%d failed: %v", version, err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, version); err != nil {
		return fmt.Errorf("migrate: delete record v%d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit rollback v%d: %w", version, err)
	}
	return nil
}

// Backup copies the database file next to itself with a timestamped
// unique suffix and returns the backup path.
func (r *Runner) Backup() (string, error) {
	src, err := os.Open(r.dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", enginerr.New(enginerr.NoDBFound, "no database file to back up").WithPath(r.dbPath)
		}
		return "", fmt.Errorf("migrate: open database for backup: %w", err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.backup-%s-%s",
		r.dbPath,
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
	)
	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("migrate: create backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("migrate: write backup: %w", err)
	}
	return backupPath, nil
}
