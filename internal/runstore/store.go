// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists completed lookup runs in SQLite so results can
// be downloaded after they are displayed and listed later from the CLI.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const defaultListLimit = 50

// timeFormat is fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens or creates the run database at cfg.Path. An empty path keeps
// runs in memory until Close.
func New(cfg types.StoreConfig) (*Store, error) {
	var dsn string
	if cfg.Path == "" {
		dsn = ":memory:?_foreign_keys=on"
	} else {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
		dsn = cfg.Path + "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each connection to :memory: is a separate database, and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logging.NewLogger("runstore")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			created_at TEXT NOT NULL,
			input_rows INTEGER NOT NULL,
			unique_pmids INTEGER NOT NULL,
			with_trials INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			pmid TEXT NOT NULL,
			nct_ids TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores result under a new run ID and returns the stored run.
func (s *Store) Save(ctx context.Context, source string, result types.Result) (types.Run, error) {
	run := types.Run{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC().Round(0),
		Result:    result,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, created_at, input_rows, unique_pmids, with_trials)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt.Format(timeFormat),
		result.Summary.InputRows, result.Summary.UniquePMIDs, result.Summary.WithTrials,
	)
	if err != nil {
		return types.Run{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (run_id, position, pmid, nct_ids) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return types.Run{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range result.Entries {
		var nct sql.NullString
		if e.NCTIDs != nil {
			data, _ := json.Marshal(e.NCTIDs)
			nct = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, e.PMID, nct); err != nil {
			return types.Run{}, fmt.Errorf("inserting entry %s: %w", e.PMID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Run{}, fmt.Errorf("committing run: %w", err)
	}
	s.logger.Info().
		Str("run_id", run.ID).
		Str("source", source).
		Int("unique_pmids", result.Summary.UniquePMIDs).
		Msg("run saved")
	return run, nil
}

// Get loads the run with the given ID, entries included.
func (s *Store) Get(ctx context.Context, id string) (types.Run, error) {
	var (
		run     types.Run
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, created_at, input_rows, unique_pmids, with_trials FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Source, &created,
		&run.Result.Summary.InputRows, &run.Result.Summary.UniquePMIDs, &run.Result.Summary.WithTrials)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return types.Run{}, fmt.Errorf("parsing created_at for run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pmid, nct_ids FROM entries WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return types.Run{}, fmt.Errorf("querying entries for run %s: %w", id, err)
	}
	defer rows.Close()

	run.Result.Entries = []types.Entry{}
	for rows.Next() {
		var (
			e   types.Entry
			nct sql.NullString
		)
		if err := rows.Scan(&e.PMID, &nct); err != nil {
			return types.Run{}, fmt.Errorf("scanning entry: %w", err)
		}
		if nct.Valid {
			if err := json.Unmarshal([]byte(nct.String), &e.NCTIDs); err != nil {
				return types.Run{}, fmt.Errorf("decoding nct_ids for %s: %w", e.PMID, err)
			}
		}
		run.Result.Entries = append(run.Result.Entries, e)
	}
	return run, rows.Err()
}

// List returns the most recent runs, newest first. Entries are not loaded;
// only the summary counts are populated. A non-positive limit uses 50.
func (s *Store) List(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, created_at, input_rows, unique_pmids, with_trials
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var (
			run     types.Run
			created string
		)
		if err := rows.Scan(&run.ID, &run.Source, &created,
			&run.Result.Summary.InputRows, &run.Result.Summary.UniquePMIDs, &run.Result.Summary.WithTrials); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parsing created_at for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run and its entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
