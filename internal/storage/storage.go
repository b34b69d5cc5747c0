// Package storage defines the Store interface — the contract any document
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Services should not know which database they are talking to. By depending
// only on this interface:
//
//   - Production talks to Cloud Firestore (storage/firestore), local
//     development can run on a single SQLite file (storage/sqlite).
//
//   - Tests pass a fake that satisfies the interface, so neither a network
//     nor credentials are needed.
//
// The store is schemaless: documents are flat field maps grouped into named
// collections and addressed by a store-assigned id.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable marks failures that mean the handle itself is no longer
	// usable: the endpoint is unreachable or the credential was rejected.
	// Callers holding a shared handle should drop it when they see this.
	ErrUnavailable = errors.New("document store unavailable")
)

// Document is one stored record: its id plus its raw fields.
type Document struct {
	ID   string
	Data map[string]any
}

// Store is the document database contract.
// Every method takes a context because every call may cross the network.
type Store interface {
	// Create inserts a new document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Get fetches one document. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document in the collection.
	// Returns an empty slice (not nil) when the collection is empty.
	List(ctx context.Context, collection string) ([]Document, error)

	// Update merges fields into an existing document. Fields not named
	// in the map are left untouched. Returns ErrNotFound, and writes
	// nothing, if the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document permanently. Returns ErrNotFound if it
	// does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Probe performs a small bounded read used only to prove that the
	// credential is accepted and the endpoint answers.
	Probe(ctx context.Context, collection string, limit int) error

	// Close releases the underlying client.
	Close() error
}
