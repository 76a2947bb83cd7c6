package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);`

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore implements Store and Incrementer on an SQLite database. Each
// document is a JSON object in the data column.
type SQLiteStore struct {
	db         *sql.DB
	collection string
	logger     zerolog.Logger
}

// SQLiteOption configures a SQLiteStore
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	uniqueKeys  []string
	busyTimeout int
}

// WithSQLiteUniqueKeys adds unique indexes on the given document fields
func WithSQLiteUniqueKeys(keys ...string) SQLiteOption {
	return func(o *sqliteOptions) {
		o.uniqueKeys = append(o.uniqueKeys, keys...)
	}
}

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds
func WithBusyTimeout(ms int) SQLiteOption {
	return func(o *sqliteOptions) {
		o.busyTimeout = ms
	}
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// prepares the schema for collection.
func OpenSQLiteStore(path, collection string, logger zerolog.Logger, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	}

	o := sqliteOptions{busyTimeout: 10_000}
	for _, opt := range opts {
		opt(&o)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	for _, key := range o.uniqueKeys {
		if !fieldNamePattern.MatchString(key) {
			db.Close()
			return nil, fmt.Errorf("invalid unique key %q", key)
		}
		stmt := fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_%s ON documents(collection, json_extract(data, '$.%s'))`,
			key, key)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create unique index on %s: %w", key, err)
		}
	}

	logger.Debug().Str("path", path).Str("collection", collection).Msg("Opened sqlite telemetry store")

	return &SQLiteStore{
		db:         db,
		collection: collection,
		logger:     logger,
	}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListDocuments returns documents matching q. Ties in the sort order keep
// insertion order.
func (s *SQLiteStore) ListDocuments(ctx context.Context, q Query) ([]Document, error) {
	stmt := `SELECT id, data FROM documents WHERE collection = ?`
	args := []any{s.collection}

	for key, value := range q.Equal {
		if !fieldNamePattern.MatchString(key) {
			return nil, fmt.Errorf("invalid field name %q", key)
		}
		stmt += ` AND json_extract(data, ?) = ?`
		args = append(args, "$."+key, value)
	}

	if q.OrderDesc != "" {
		if !fieldNamePattern.MatchString(q.OrderDesc) {
			return nil, fmt.Errorf("invalid field name %q", q.OrderDesc)
		}
		stmt += ` ORDER BY COALESCE(json_extract(data, ?), 0) DESC, rowid ASC`
		args = append(args, "$."+q.OrderDesc)
	} else {
		stmt += ` ORDER BY rowid ASC`
	}

	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decodeSQLiteDocument(id, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// CreateDocument stores a new document under id
func (s *SQLiteStore) CreateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document id is required")
	}
	if fields == nil {
		fields = map[string]any{}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode document: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		s.collection, id, string(data), now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return Document{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return Document{}, fmt.Errorf("failed to insert document: %w", err)
	}

	return decodeSQLiteDocument(id, string(data))
}

// UpdateDocument merges fields into the document identified by id
func (s *SQLiteStore) UpdateDocument(ctx context.Context, id string, fields map[string]any) (Document, error) {
	patch, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode update: %w", err)
	}

	var data string
	err = s.db.QueryRowContext(ctx,
		`UPDATE documents SET data = json_patch(data, ?), updated_at = ?
		 WHERE collection = ? AND id = ? RETURNING data`,
		string(patch), time.Now().UTC().Format(time.RFC3339Nano), s.collection, id).Scan(&data)
	if err != nil {
		return Document{}, s.writeError(err, id)
	}

	return decodeSQLiteDocument(id, data)
}

// IncrementDocument adds delta to field in a single statement
func (s *SQLiteStore) IncrementDocument(ctx context.Context, id, field string, delta int) (Document, error) {
	if !fieldNamePattern.MatchString(field) {
		return Document{}, fmt.Errorf("invalid field name %q", field)
	}

	path := "$." + field
	var data string
	err := s.db.QueryRowContext(ctx,
		`UPDATE documents SET data = json_set(data, ?, COALESCE(json_extract(data, ?), 0) + ?), updated_at = ?
		 WHERE collection = ? AND id = ? RETURNING data`,
		path, path, delta, time.Now().UTC().Format(time.RFC3339Nano), s.collection, id).Scan(&data)
	if err != nil {
		return Document{}, s.writeError(err, id)
	}

	return decodeSQLiteDocument(id, data)
}

func (s *SQLiteStore) writeError(err error, id string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case isConstraintViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
}

func decodeSQLiteDocument(id, data string) (Document, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return Document{}, &DecodeError{DocumentID: id, Reason: "invalid JSON document", Err: err}
	}
	return Document{ID: id, Fields: fields}, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// Without extended result codes only the primary code is reported.
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT
}
