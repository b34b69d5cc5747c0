package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aanand-mishra/school-api/internal/storage"
	"golang.org/x/sync/singleflight"
)

// Connector produces a verified handle. *Bootstrapper implements it.
type Connector interface {
	Connect(ctx context.Context) (storage.Store, error)
}

// DefaultCloseGrace is how long an invalidated handle stays open for the
// requests still using it.
const DefaultCloseGrace = 30 * time.Second

// Cache holds at most one ready handle for the whole process.
//
// The first Get runs the connector; later calls return the same handle
// until it is invalidated. Concurrent callers that find the cache empty
// share a single in-flight Connect and all receive its result, success or
// failure.
type Cache struct {
	connector Connector
	log       *slog.Logger
	grace     time.Duration

	mu      sync.RWMutex
	handle  storage.Store
	retired map[storage.Store]*time.Timer

	group singleflight.Group
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithCloseGrace replaces DefaultCloseGrace.
func WithCloseGrace(d time.Duration) CacheOption {
	return func(c *Cache) { c.grace = d }
}

// NewCache returns an empty cache backed by connector.
func NewCache(connector Connector, log *slog.Logger, opts ...CacheOption) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		connector: connector,
		log:       log,
		grace:     DefaultCloseGrace,
		retired:   make(map[storage.Store]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const flightKey = "handle"

// Get returns the cached handle, connecting first if there is none.
//
// The connect itself is detached from ctx's cancellation so one impatient
// caller cannot fail the bootstrap for everybody waiting on it; ctx still
// bounds how long this caller waits.
func (c *Cache) Get(ctx context.Context) (storage.Store, error) {
	if h := c.current(); h != nil {
		return h, nil
	}

	ch := c.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished just before ours may already have
		// filled the slot.
		if h := c.current(); h != nil {
			return h, nil
		}

		h, err := c.connector.Connect(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.handle = h
		c.mu.Unlock()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(storage.Store), nil
	}
}

// Invalidate empties the slot if it still holds stale, so the next Get
// bootstraps again. A caller reporting a handle that was already replaced
// changes nothing.
//
// The dropped handle is closed after the grace period; requests still
// holding it finish on it first.
func (c *Cache) Invalidate(stale storage.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stale == nil || c.handle != stale {
		return
	}

	c.log.Warn("document store handle invalidated",
		slog.Duration("close_after", c.grace))
	c.handle = nil
	c.retire(stale)
}

// retire schedules h to be closed. Callers must hold c.mu.
func (c *Cache) retire(h storage.Store) {
	c.retired[h] = time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		_, pending := c.retired[h]
		delete(c.retired, h)
		c.mu.Unlock()

		// Close may already have taken it.
		if pending {
			c.closeHandle(h)
		}
	})
}

func (c *Cache) closeHandle(h storage.Store) {
	if err := h.Close(); err != nil {
		c.log.Warn("closing retired document store handle",
			slog.String("error", err.Error()))
	}
}

// Warm starts a bootstrap in the background so the first request does not
// pay for it. Failures are only logged; Get will try again.
func (c *Cache) Warm(ctx context.Context) {
	go func() {
		if _, err := c.Get(ctx); err != nil {
			c.log.Error("initial document store connection failed",
				slog.String("error", err.Error()))
		}
	}()
}

// Close closes and drops the cached handle, if any, along with every
// retired handle still waiting for its grace period.
func (c *Cache) Close() error {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	retired := c.retired
	c.retired = make(map[storage.Store]*time.Timer)
	c.mu.Unlock()

	for r, timer := range retired {
		timer.Stop()
		c.closeHandle(r)
	}

	if h == nil {
		return nil
	}
	return h.Close()
}

func (c *Cache) current() storage.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}
