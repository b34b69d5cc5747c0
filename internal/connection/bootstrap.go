// Package connection produces and shares the process-wide document store
// handle.
//
// A Bootstrapper turns a Config into a verified storage.Store: it checks the
// settings, opens the backend, proves the connection with a small probe read
// and retries with exponential backoff when that fails. A Cache keeps the
// resulting handle so request handlers reuse one connection, and collapses
// concurrent first callers onto a single bootstrap.
package connection

import (
	"context"
	"log/slog"
	"time"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/aanand-mishra/school-api/internal/storage"
	"github.com/pkg/errors"
)

// OpenFunc opens a backend without verifying it.
type OpenFunc func(ctx context.Context, cfg Config) (storage.Store, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Bootstrapper builds verified handles. It holds no handle itself; see Cache.
type Bootstrapper struct {
	cfg    Config
	policy RetryPolicy
	open   OpenFunc
	sleep  SleepFunc
	log    *slog.Logger
}

// Option customises a Bootstrapper.
type Option func(*Bootstrapper)

// WithPolicy replaces DefaultRetryPolicy.
func WithPolicy(p RetryPolicy) Option {
	return func(b *Bootstrapper) { b.policy = p }
}

// WithOpener replaces the driver-based Open.
func WithOpener(open OpenFunc) Option {
	return func(b *Bootstrapper) { b.open = open }
}

// WithSleep replaces the timer-based wait between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(b *Bootstrapper) { b.sleep = sleep }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bootstrapper) { b.log = log }
}

// NewBootstrapper returns a Bootstrapper for cfg.
func NewBootstrapper(cfg Config, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		cfg:    cfg,
		policy: DefaultRetryPolicy(),
		open:   Open,
		sleep:  sleepContext,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect validates the configuration and runs open+probe until it succeeds
// or the policy's attempts are used up.
//
// A configuration problem fails immediately without opening anything. After
// the last failed attempt the error is a KindConnection *apperr.Error that
// wraps the last underlying failure. Every handle that failed its probe is
// closed before the next attempt, so nothing half-built outlives Connect.
func (b *Bootstrapper) Connect(ctx context.Context) (storage.Store, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	cfg := b.cfg.Normalize()

	attempts := b.policy.Attempts()
	delays := b.policy.backoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		store, err := b.attempt(ctx, cfg)
		if err == nil {
			b.log.Info("document store connection established",
				slog.String("driver", string(cfg.Driver)),
				slog.Int("attempt", attempt))
			return store, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := delays.Duration()
		b.log.Warn("document store connection failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := b.sleep(ctx, delay); err != nil {
			return nil, apperr.Connection(attempt, errors.Wrap(err, "retry wait interrupted"))
		}
	}

	b.log.Error("document store connection failed",
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()))

	return nil, apperr.Connection(attempts, lastErr)
}

// attempt opens a handle and probes it, closing it if the probe fails.
func (b *Bootstrapper) attempt(ctx context.Context, cfg Config) (storage.Store, error) {
	store, err := b.open(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	if err := store.Probe(ctx, b.policy.ProbeCollection, b.policy.ProbeLimit); err != nil {
		if cerr := store.Close(); cerr != nil {
			b.log.Debug("closing rejected handle", slog.String("error", cerr.Error()))
		}
		return nil, errors.Wrap(err, "verify")
	}

	return store, nil
}

// sleepContext waits on a timer so a cancelled ctx ends the wait early.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
