package connection

import (
	"time"

	"github.com/jpillora/backoff"
)

// RetryPolicy controls how the bootstrapper retries a failed open+probe.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so a
	// bootstrap makes at most MaxRetries+1 attempts.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// Factor multiplies the delay after every retry.
	Factor float64
	// MaxDelay caps a single wait.
	MaxDelay time.Duration

	// ProbeCollection and ProbeLimit describe the verification read.
	ProbeCollection string
	ProbeLimit      int
}

// DefaultRetryPolicy waits 2s, 3s, 4.5s between four attempts and probes
// one document of "_test_".
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialDelay:    2 * time.Second,
		Factor:          1.5,
		MaxDelay:        time.Minute,
		ProbeCollection: "_test_",
		ProbeLimit:      1,
	}
}

// Attempts is the total number of open+probe attempts.
func (p RetryPolicy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func (p RetryPolicy) backoff() *backoff.Backoff {
	ceiling := p.MaxDelay
	if ceiling < p.InitialDelay {
		ceiling = p.InitialDelay
	}
	return &backoff.Backoff{
		Min:    p.InitialDelay,
		Max:    ceiling,
		Factor: p.Factor,
	}
}

// Delays returns the waits between attempts, in order.
func (p RetryPolicy) Delays() []time.Duration {
	b := p.backoff()
	delays := make([]time.Duration, 0, p.Attempts()-1)
	for i := 1; i < p.Attempts(); i++ {
		delays = append(delays, b.Duration())
	}
	return delays
}
