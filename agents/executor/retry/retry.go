/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config controls how many times an operation is re-attempted and how long
// to wait between attempts.
type Config struct {
	// MaxRetries is the number of attempts made after the first one.
	// 0 means do not retry at all.
	MaxRetries int
	// BaseBackoff is the wait before the first retry; it doubles on each subsequent retry.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// MaxJitter is the upper bound of the random delay added to each wait.
	MaxJitter time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// FallbackConfig is a single immediate retry. Model fallback does not benefit
// from waiting: the second attempt targets a different model.
func FallbackConfig() Config {
	return Config{MaxRetries: 1}
}

// wait returns the delay before retry number attempt+1.
func (c Config) wait(attempt int) time.Duration {
	backoff := min(c.BaseBackoff<<attempt, c.MaxBackoff)
	if c.MaxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter))); err == nil {
			backoff += time.Duration(n.Int64())
		}
	}
	return backoff
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or the
// retry budget is spent. fn receives the zero-based attempt number so callers
// can change what they do on a retry.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func(attempt int) (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn(attempt)
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := cfg.wait(attempt)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Retrying operation")

		if wait <= 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}

	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}
