// Package store keeps finished analysis reports in a local DuckDB database
// so earlier runs can be listed and reloaded.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/firmscope/internal/constants"
	"github.com/coral-mesh/firmscope/internal/duckdb"
	"github.com/coral-mesh/firmscope/internal/logging"
	"github.com/coral-mesh/firmscope/internal/report"
)

// ErrNotFound is returned by Get when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

// ErrNoDatabase is returned by OpenReadOnly when the database file does not exist yet.
var ErrNoDatabase = errors.New("no analysis database")

const analysesTable = "analyses"

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id VARCHAR PRIMARY KEY,
		file_name VARCHAR NOT NULL,
		file_hash VARCHAR NOT NULL,
		file_size BIGINT NOT NULL,
		container VARCHAR,
		architecture VARCHAR,
		created_at TIMESTAMP NOT NULL,
		report VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_file_hash ON analyses(file_hash)`,
}

// analysisRow is the stored form of one analysis.
type analysisRow struct {
	ID           string    `duckdb:"id,pk"`
	FileName     string    `duckdb:"file_name"`
	FileHash     string    `duckdb:"file_hash"`
	FileSize     int64     `duckdb:"file_size"`
	Container    string    `duckdb:"container"`
	Architecture string    `duckdb:"architecture"`
	CreatedAt    time.Time `duckdb:"created_at"`
	Report       string    `duckdb:"report"`
}

// Entry summarizes one stored analysis.
type Entry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	FileHash     string    `json:"file_hash"`
	FileSize     int64     `json:"file_size"`
	Container    string    `json:"container"`
	Architecture string    `json:"architecture"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Limit      int
	FileName   string
	HashPrefix string
	Since      time.Time
}

// Store wraps the analyses database.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
	analyses *duckdb.Table[analysisRow]
	logger   zerolog.Logger
	now      func() time.Time
}

// Open opens or creates the database in dir, creating dir when needed.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return open(filepath.Join(dir, constants.DefaultDatabaseFile), logger, false)
}

// OpenReadOnly opens an existing database in dir without taking the write
// lock, so several readers can share it.
func OpenReadOnly(dir string, logger zerolog.Logger) (*Store, error) {
	path := filepath.Join(dir, constants.DefaultDatabaseFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrNoDatabase, path)
	}
	return open(path, logger, true)
}

func open(path string, logger zerolog.Logger, readOnly bool) (*Store, error) {
	dsn := path
	if readOnly {
		dsn = duckdb.ReadOnly(path)
	}

	db, err := duckdb.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if !readOnly {
		if err := initSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	s := &Store{
		db:       db,
		path:     path,
		readOnly: readOnly,
		analyses: duckdb.NewTable[analysisRow](db, analysesTable),
		logger:   logging.WithComponent(logger, "store"),
		now:      time.Now,
	}

	s.logger.Debug().
		Str("path", path).
		Bool("read_only", readOnly).
		Msg("Database initialized")

	return s, nil
}

func initSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ddl := range schemaDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return tx.Commit()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.logger.Debug().Msg("Database closed")
	return nil
}

// Save stores r under a new id and returns it. hash is the fingerprint of
// the analyzed bytes.
func (s *Store) Save(ctx context.Context, r *report.Report, hash string) (string, error) {
	if s.readOnly {
		return "", errors.New("store opened read-only")
	}

	data, err := report.Marshal(r, report.FormatJSON)
	if err != nil {
		return "", err
	}

	row := &analysisRow{
		ID:        uuid.NewString(),
		FileName:  r.FileName,
		FileHash:  hash,
		FileSize:  r.FileSize,
		CreatedAt: s.now().UTC(),
		Report:    string(data),
	}
	if r.Container != nil {
		row.Container = string(r.Container.Kind)
	}
	row.Architecture = r.Architecture
	if row.Architecture == "" && r.Container != nil {
		row.Architecture = r.Container.Architecture
	}

	if err := s.analyses.Insert(ctx, row); err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Debug().
		Str("id", row.ID).
		Str("file", row.FileName).
		Str("hash", hash).
		Msg("Analysis stored")

	return row.ID, nil
}

// List returns stored analyses matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := duckdb.NewQueryBuilder(analysesTable).
		Eq("file_name", f.FileName).
		Prefix("file_hash", f.HashPrefix).
		Since("created_at", f.Since).
		OrderBy("-created_at", "id").
		Limit(f.Limit)

	if s.logger.GetLevel() <= zerolog.TraceLevel {
		query, args, _ := q.Build()
		s.logger.Trace().Str("query", duckdb.InterpolateQuery(query, args)).Msg("Listing analyses")
	}

	rows, err := s.analyses.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

// Count returns the number of stored analyses matching f. Limit is ignored.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	q := duckdb.NewQueryBuilder(analysesTable).
		Eq("file_name", f.FileName).
		Prefix("file_hash", f.HashPrefix).
		Since("created_at", f.Since)

	n, err := s.analyses.Count(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return n, nil
}

// Get loads the analysis with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, *report.Report, error) {
	row, err := s.analyses.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	r, err := report.Unmarshal([]byte(row.Report))
	if err != nil {
		return Entry{}, nil, err
	}
	return row.entry(), r, nil
}

// Delete removes the analysis with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.readOnly {
		return errors.New("store opened read-only")
	}

	removed, err := s.analyses.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *analysisRow) entry() Entry {
	return Entry{
		ID:           r.ID,
		FileName:     r.FileName,
		FileHash:     r.FileHash,
		FileSize:     r.FileSize,
		Container:    r.Container,
		Architecture: r.Architecture,
		CreatedAt:    r.CreatedAt,
	}
}
