package export

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/timeindex"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stored in PRAGMA user_version.
const currentSchemaVersion = 1

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7 generates time-ordered UUIDs.
type UUIDv7 struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run describes one export.
type Run struct {
	ID         string
	Source     string
	SchemaName string
	Entries    int
	// First and Last are nil for an empty export.
	First     *float64
	Last      *float64
	CreatedAt time.Time
}

// Row is one exported entry, with the value in its schema encoding.
type Row struct {
	Seq   int64
	T     float64
	Value string
}

// DB is a SQLite export database.
type DB struct {
	db  *sql.DB
	ids IDGenerator
	now func() time.Time
}

// Option configures OpenDB.
type Option func(*DB)

// WithIDGenerator replaces the UUIDv7 run id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *DB) { d.ids = g }
}

// WithClock sets the clock used for run creation times.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// OpenDB creates or opens the export database at path and applies the
// schema and migrations.
//
// The database is configured with:
//   - WAL mode so readers are not blocked by an export in progress
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
func OpenDB(path string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open export database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect export database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	d := &DB{db: db, ids: UUIDv7{}, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// WriteStore exports a snapshot of s as a new run inside one transaction.
func WriteStore[T any](ctx context.Context, d *DB, s *timeindex.Store[T]) (Run, error) {
	schema := s.Schema()
	run := Run{
		ID:         d.ids.Generate(),
		Source:     s.Path(),
		SchemaName: schema.Name(),
		CreatedAt:  d.now().UTC(),
	}

	var rows []Row
	for e := range s.All() {
		v, err := schema.Encode(e.Value)
		if err != nil {
			return Run{}, fmt.Errorf("export entry %d: %w", len(rows), err)
		}
		rows = append(rows, Row{Seq: int64(len(rows)), T: e.Timestamp, Value: string(v)})
	}
	run.Entries = len(rows)
	if len(rows) > 0 {
		run.First = &rows[0].T
		run.Last = &rows[len(rows)-1].T
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("export: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, schema_name, entry_count, first_t, last_t, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Source,
		run.SchemaName,
		run.Entries,
		run.First,
		run.Last,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("export: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (run_id, seq, t, v) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("export: prepare: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, r.Seq, r.T, r.Value); err != nil {
			return Run{}, fmt.Errorf("export: insert entry %d: %w", r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("export: commit: %w", err)
	}
	return run, nil
}

// Runs returns all runs, oldest first.
func (d *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, source, schema_name, entry_count, first_t, last_t, created_at
		FROM runs
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			first     sql.NullFloat64
			last      sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.SchemaName, &r.Entries, &first, &last, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if first.Valid {
			r.First = &first.Float64
		}
		if last.Valid {
			r.Last = &last.Float64
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: created_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries returns the rows of a run in log order.
func (d *DB) Entries(ctx context.Context, runID string) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, t, v FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Seq, &r.T, &r.Value); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// At returns the latest row of a run at or before ts, the nearest_prev
// policy evaluated in SQL. ok is false when no row qualifies.
func (d *DB) At(ctx context.Context, runID string, ts float64) (r Row, ok bool, err error) {
	err = d.db.QueryRowContext(ctx, `
		SELECT seq, t, v FROM entries
		WHERE run_id = ? AND t <= ?
		ORDER BY t DESC, seq DESC
		LIMIT 1
	`, runID, ts).Scan(&r.Seq, &r.T, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("query entry at %v: %w", ts, err)
	}
	return r, true, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
