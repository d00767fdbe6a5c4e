package common

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/retail/backend/internal/domain/shared"
)

// RetryConfig holds the retry settings for a unit of work
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// InitialInterval is the delay before the second attempt
	InitialInterval time.Duration
	// MaxInterval caps the delay between attempts
	MaxInterval time.Duration
	// Multiplier grows the delay after each attempt
	Multiplier float64
	// Jitter randomizes each delay by +/- this fraction
	Jitter float64
}

// DefaultRetryConfig returns 5 attempts with 50-200ms randomized exponential delays
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		Multiplier:      2,
		Jitter:          0.5,
	}
}

// RetryPolicy retries a unit of work while it fails with a transient store
// error. It is a bounded loop; the attempt count is returned to the caller.
type RetryPolicy struct {
	config RetryConfig
	// IsTransient classifies errors that warrant another attempt
	IsTransient func(error) bool
	// Sleep waits between attempts; replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the attempt that just failed
	OnRetry func(ctx context.Context, attempt int, delay time.Duration, err error)
	// OnExhausted is called once when the attempt bound is reached
	OnExhausted func(ctx context.Context, attempts int, err error)
}

// NewRetryPolicy creates a retry policy. Zero config fields fall back to the defaults.
func NewRetryPolicy(cfg RetryConfig, isTransient func(error) bool) *RetryPolicy {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = def.Jitter
	}
	if isTransient == nil {
		isTransient = func(error) bool { return false }
	}
	return &RetryPolicy{
		config:      cfg,
		IsTransient: isTransient,
		Sleep:       sleepContext,
	}
}

// Config returns the effective configuration
func (p *RetryPolicy) Config() RetryConfig {
	return p.config
}

func (p *RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.InitialInterval
	b.MaxInterval = p.config.MaxInterval
	b.Multiplier = p.config.Multiplier
	b.RandomizationFactor = p.config.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt bound is reached. Exhaustion yields STORE_CONTENTION wrapping the
// last transient error.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	b := p.newBackOff()

	var lastErr error
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if !p.IsTransient(err) {
			return attempt, err
		}
		lastErr = err

		if attempt == p.config.MaxAttempts {
			break
		}

		delay := b.NextBackOff()
		if p.OnRetry != nil {
			p.OnRetry(ctx, attempt, delay, err)
		}
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return attempt, errors.Join(sleepErr, lastErr)
		}
	}

	if p.OnExhausted != nil {
		p.OnExhausted(ctx, p.config.MaxAttempts, lastErr)
	}
	return p.config.MaxAttempts, shared.ErrStoreContention.
		WithDetail("attempts", p.config.MaxAttempts).
		WithCause(lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
