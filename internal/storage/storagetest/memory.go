// Package storagetest provides an in-memory storage.Store for tests, with
// hooks to inject failures.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aanand-mishra/school-api/internal/storage"
)

// Memory is a map-backed storage.Store. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]map[string]map[string]any
	nextID int
	calls  map[string]int
	closed bool

	// Errors makes the named operation ("create", "get", "list",
	// "update", "delete", "probe") fail with the given error.
	Errors map[string]error
}

var _ storage.Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[string]map[string]map[string]any),
		calls:  make(map[string]int),
		Errors: make(map[string]error),
	}
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Fail makes op return err from now on.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[op] = err
}

// Len returns the number of documents in collection.
func (m *Memory) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

// begin records the call and returns the injected error, if any.
// Callers must hold m.mu.
func (m *Memory) begin(op string) error {
	m.calls[op]++
	return m.Errors[op]
}

func (m *Memory) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("create"); err != nil {
		return "", err
	}

	m.nextID++
	id := fmt.Sprintf("doc-%d", m.nextID)

	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]map[string]any)
	}
	m.docs[collection][id] = copyFields(fields)
	return id, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("get"); err != nil {
		return storage.Document{}, err
	}

	data, ok := m.docs[collection][id]
	if !ok {
		return storage.Document{}, storage.ErrNotFound
	}
	return storage.Document{ID: id, Data: copyFields(data)}, nil
}

func (m *Memory) List(_ context.Context, collection string) ([]storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("list"); err != nil {
		return nil, err
	}

	docs := make([]storage.Document, 0, len(m.docs[collection]))
	for id, data := range m.docs[collection] {
		docs = append(docs, storage.Document{ID: id, Data: copyFields(data)})
	}
	return docs, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("update"); err != nil {
		return err
	}

	data, ok := m.docs[collection][id]
	if !ok {
		return storage.ErrNotFound
	}
	for k, v := range fields {
		data[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("delete"); err != nil {
		return err
	}

	if _, ok := m.docs[collection][id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) Probe(_ context.Context, _ string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin("probe")
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Handles is a fixed service.HandleSource around one store.
type Handles struct {
	mu    sync.Mutex
	Store storage.Store
	Err   error
	stale []storage.Store
}

// Get returns Store, or Err when set.
func (h *Handles) Get(context.Context) (storage.Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return nil, h.Err
	}
	return h.Store, nil
}

// Invalidate records the handle reported as stale.
func (h *Handles) Invalidate(stale storage.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stale = append(h.stale, stale)
}

// Invalidated returns how many times Invalidate was called.
func (h *Handles) Invalidated() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stale)
}

// Stale returns the handles passed to Invalidate, in order.
func (h *Handles) Stale() []storage.Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]storage.Store(nil), h.stale...)
}
