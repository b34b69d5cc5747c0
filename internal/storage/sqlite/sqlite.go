// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// The production store is Cloud Firestore, which needs credentials and a
// network. For local development and offline demos a single SQLite file is
// enough: every document is kept as a JSON blob keyed by (collection, id),
// which mirrors Firestore's schemaless model closely.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Store.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Store = (*SQLite)(nil)

// New opens the SQLite database at path, creates the documents table if it
// does not already exist, and returns a ready-to-use *SQLite.
func New(ctx context.Context, path string) (*SQLite, error) {
	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.New: open db")
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup.
	//
	// Schema:
	//   collection — logical collection name ("students", "teachers")
	//   id         — document id, unique within its collection
	//   data       — the document fields, JSON encoded
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite.New: create table")
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Create inserts a new document under a freshly generated UUID.
//
// Values are bound with ? placeholders, never concatenated into the SQL,
// so document content can never be interpreted as SQL syntax.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "Create: encode")
	}

	id := uuid.NewString()

	_, err = s.Db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id, string(data),
	)
	if err != nil {
		return "", errors.Wrap(err, "Create: exec")
	}

	return id, nil
}

// Get fetches exactly one document matched by collection and id.
func (s *SQLite) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var raw string

	err := s.Db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ? LIMIT 1",
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Translate the driver sentinel into the storage one so
			// services never import database/sql.
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, errors.Wrap(err, "Get: scan")
	}

	data, err := decode(raw)
	if err != nil {
		return storage.Document{}, errors.Wrapf(err, "Get: decode %s/%s", collection, id)
	}

	return storage.Document{ID: id, Data: data}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List returns all documents of a collection as a slice.
//
// Query returns a cursor (*sql.Rows); rows.Next() advances it and Scan
// reads the current row. rows.Close() must always run to release the
// underlying connection.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) List(ctx context.Context, collection string) ([]storage.Document, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ?",
		collection,
	)
	if err != nil {
		return nil, errors.Wrap(err, "List: query")
	}
	defer rows.Close()

	// Non-nil so callers encode [] rather than null.
	docs := make([]storage.Document, 0)

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "List: scan row")
		}

		data, err := decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "List: decode %s/%s", collection, id)
		}

		docs = append(docs, storage.Document{ID: id, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "List: rows iteration")
	}

	return docs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Update merges fields into the stored document.
//
// SQLite has no partial JSON update that we want to rely on here, so the
// read-merge-write runs inside one transaction: a concurrent writer to the
// same document either sees our result or overwrites it whole.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Update: begin")
	}
	// Rollback after Commit is a no-op, so this is safe on every path.
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return errors.Wrap(err, "Update: scan")
	}

	data, err := decode(raw)
	if err != nil {
		return errors.Wrapf(err, "Update: decode %s/%s", collection, id)
	}

	for k, v := range fields {
		data[k] = v
	}

	merged, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "Update: encode")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		string(merged), collection, id,
	); err != nil {
		return errors.Wrap(err, "Update: exec")
	}

	return errors.Wrap(tx.Commit(), "Update: commit")
}

// Delete removes a document by collection and id.
func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	result, err := s.Db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return errors.Wrap(err, "Delete: exec")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "Delete: rows affected")
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Probe reads at most limit ids from collection. A failure here means the
// database file cannot be read at all, so it is reported as unavailable.
func (s *SQLite) Probe(ctx context.Context, collection string, limit int) error {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id FROM documents WHERE collection = ? LIMIT ?",
		collection, limit,
	)
	if err != nil {
		return fmt.Errorf("%w: probe %s: %v", storage.ErrUnavailable, collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		// Only reachability matters; the rows are discarded.
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: probe %s: %v", storage.ErrUnavailable, collection, err)
	}

	return nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// decode parses a stored JSON body. UseNumber keeps integers exact instead
// of turning them into float64.
func decode(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	data := make(map[string]any)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
