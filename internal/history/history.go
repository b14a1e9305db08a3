// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records finished and in-progress searches in a SQLite
// database so their results can be listed and searched later without
// contacting the API.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/unitrad/pkg/types"
)

// ErrNoPath is returned by Open when the configuration names no database.
var ErrNoPath = errors.New("history path is empty")

const defaultLimit = 20

// timeLayout is fixed width so that updated_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one stored search session.
type Record struct {
	UUID      string
	Query     types.Query
	Version   int
	Running   bool
	Remains   []string
	Errors    []string
	BookCount int
	UpdatedAt time.Time
}

// Hit is a stored book matched by Find.
type Hit struct {
	UUID  string
	Index int
	Query types.Query
	Book  types.Book
}

// Store manages the history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at cfg.Path, creating parent
// directories and the schema as needed.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
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
		`CREATE TABLE IF NOT EXISTS sessions (
			uuid TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			version INTEGER NOT NULL,
			running INTEGER NOT NULL,
			remains TEXT,
			errors TEXT,
			book_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			session_uuid TEXT NOT NULL REFERENCES sessions(uuid) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (session_uuid, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores snap under its uuid, replacing any earlier version of the same
// session and its books. Snapshots without a uuid are ignored.
func (s *Store) Save(ctx context.Context, q types.Query, snap types.Snapshot) error {
	if snap.UUID == "" {
		return nil
	}

	queryJSON, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	remainsJSON, _ := json.Marshal(snap.Remains)
	errorsJSON, _ := json.Marshal(snap.Errors)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, query, version, running, remains, errors, book_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET
			query=excluded.query, version=excluded.version, running=excluded.running,
			remains=excluded.remains, errors=excluded.errors,
			book_count=excluded.book_count, updated_at=excluded.updated_at`,
		snap.UUID, string(queryJSON), snap.Version, snap.Running,
		string(remainsJSON), string(errorsJSON), len(snap.Books),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE session_uuid = ?`, snap.UUID); err != nil {
		return fmt.Errorf("deleting old books: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books (session_uuid, idx, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range snap.Books {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encoding book %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, snap.UUID, i, string(data)); err != nil {
			return fmt.Errorf("inserting book %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// List returns up to limit sessions, most recently saved first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT uuid, query, version, running, remains, errors, book_count, updated_at
		 FROM sessions ORDER BY updated_at DESC, uuid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                                  Record
			queryJSON, remainsJSON, errorsJSON string
			updatedAt                          string
		)
		if err := rows.Scan(&r.UUID, &queryJSON, &r.Version, &r.Running,
			&remainsJSON, &errorsJSON, &r.BookCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		_ = json.Unmarshal([]byte(queryJSON), &r.Query)
		_ = json.Unmarshal([]byte(remainsJSON), &r.Remains)
		_ = json.Unmarshal([]byte(errorsJSON), &r.Errors)
		r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Books returns the stored books of one session in index order.
func (s *Store) Books(ctx context.Context, uuid string) ([]types.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM books WHERE session_uuid = ? ORDER BY idx`, uuid)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		var b types.Book
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("decoding book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Find returns up to limit stored books whose JSON contains term, newest
// sessions first.
func (s *Store) Find(ctx context.Context, term string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT b.session_uuid, b.idx, b.data, s.query
		 FROM books b JOIN sessions s ON s.uuid = b.session_uuid
		 WHERE b.data LIKE ? ESCAPE '\'
		 ORDER BY s.updated_at DESC, b.session_uuid, b.idx
		 LIMIT ?`, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h               Hit
			data, queryJSON string
		)
		if err := rows.Scan(&h.UUID, &h.Index, &data, &queryJSON); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &h.Book); err != nil {
			return nil, fmt.Errorf("decoding book: %w", err)
		}
		_ = json.Unmarshal([]byte(queryJSON), &h.Query)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
