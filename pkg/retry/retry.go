// Copyright 2026 Benoit Pereira da Silva
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry implements the bounded-attempt retry loop with composable
// backoff and jitter used by the Resilient execution strategy (§4.5).
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes the base delay after attempt n (0-indexed: the delay
// between attempt n and attempt n+1).
type Backoff func(attempt int) time.Duration

// Fixed always waits d.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits d0 + attempt*step, capped at cap (cap<=0 means uncapped).
func Linear(d0, step, cap time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := d0 + time.Duration(attempt)*step
		if cap > 0 && d > cap {
			return cap
		}
		return d
	}
}

// Exponential waits d0*mult^attempt, capped at cap (cap<=0 means uncapped).
func Exponential(d0 time.Duration, mult float64, cap time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := float64(d0)
		for i := 0; i < attempt; i++ {
			d *= mult
		}
		if cap > 0 && d > float64(cap) {
			return cap
		}
		return time.Duration(d)
	}
}

// Jitter perturbs a base delay. prev is the delay actually used for the
// previous attempt (0 on the first attempt); it is needed only by
// Decorrelated.
type Jitter func(base, prev time.Duration) time.Duration

// NoJitter returns base unchanged.
func NoJitter() Jitter {
	return func(base, _ time.Duration) time.Duration { return base }
}

// FullJitter returns a uniform random value in [0, base].
func FullJitter() Jitter {
	return func(base, _ time.Duration) time.Duration {
		if base <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(int64(base) + 1))
	}
}

// EqualJitter returns base/2 + uniform(0, base/2).
func EqualJitter() Jitter {
	return func(base, _ time.Duration) time.Duration {
		half := base / 2
		if half <= 0 {
			return base
		}
		return half + time.Duration(rand.Int64N(int64(half)+1))
	}
}

// DecorrelatedJitter returns uniform(base, min(prev*3, cap)), the "decorrelated
// jitter" formula from AWS's exponential backoff writeup, adapted to this
// package's Backoff/Jitter split (prev is the previous attempt's delay, not
// the base).
func DecorrelatedJitter(cap time.Duration) Jitter {
	return func(base, prev time.Duration) time.Duration {
		hi := prev * 3
		if hi < base {
			hi = base
		}
		if cap > 0 && hi > cap {
			hi = cap
		}
		if hi <= base {
			return base
		}
		return base + time.Duration(rand.Int64N(int64(hi-base)+1))
	}
}

// RetriablePredicate decides whether a failure should be retried.
type RetriablePredicate func(err error, attempt int) bool

// Config configures a retry loop (§4.5).
type Config struct {
	MaxAttempts    int // total attempts, including the first; default 1 (no retry)
	Backoff        Backoff
	Jitter         Jitter
	OverallTimeout time.Duration // 0 means no overall budget
	ShouldRetry    RetriablePredicate
	// OnRetry, if set, is called once per attempt beyond the first, right
	// before its backoff delay. Used by the Resilient strategy to report the
	// retries counter (§6 Outcome).
	OnRetry func(attempt int)
}

// withDefaults fills zero-valued fields with the package defaults: 1 attempt (no
// retry), fixed(0) backoff, no jitter, no overall timeout, retry-everything
// predicate (the node-level default lives in perrors.Retriable; callers of
// this package that want that behavior pass it explicitly).
func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Backoff == nil {
		c.Backoff = Fixed(0)
	}
	if c.Jitter == nil {
		c.Jitter = NoJitter()
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = func(error, int) bool { return true }
	}
	return c
}

// ErrBudgetExceeded is returned by Do when OverallTimeout elapses before the
// body succeeds; callers typically wrap it as perrors.ErrRetryBudgetExhausted.
type ErrBudgetExceeded struct{ Last error }

func (e *ErrBudgetExceeded) Error() string { return "retry: overall timeout exceeded: " + e.Last.Error() }
func (e *ErrBudgetExceeded) Unwrap() error  { return e.Last }

// ErrAttemptsExhausted is returned by Do when every attempt has been spent.
type ErrAttemptsExhausted struct {
	Attempts int
	Last     error
}

func (e *ErrAttemptsExhausted) Error() string {
	return "retry: attempts exhausted: " + e.Last.Error()
}
func (e *ErrAttemptsExhausted) Unwrap() error { return e.Last }

// Do runs body up to cfg.MaxAttempts times, sleeping cfg.Backoff/cfg.Jitter
// between attempts, stopping early when cfg.ShouldRetry(err, attempt) is
// false. It returns the first successful result, or an error describing why
// retrying stopped: the body's last error (non-retriable),
// *ErrAttemptsExhausted, *ErrBudgetExceeded, or ctx.Err() on cancellation.
func Do[T any](ctx context.Context, cfg Config, body func(ctx context.Context, attempt int) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var deadline <-chan time.Time
	if cfg.OverallTimeout > 0 {
		timer := time.NewTimer(cfg.OverallTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var zero T
	var lastErr error
	var prevDelay time.Duration

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt)
			}
			base := cfg.Backoff(attempt - 1)
			delay := cfg.Jitter(base, prevDelay)
			prevDelay = delay
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-deadline:
				return zero, &ErrBudgetExceeded{Last: lastErr}
			case <-time.After(delay):
			}
		}

		result, err := body(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.ShouldRetry(err, attempt) {
			return zero, err
		}
		if attempt+1 >= cfg.MaxAttempts {
			return zero, &ErrAttemptsExhausted{Attempts: attempt + 1, Last: lastErr}
		}
	}
	return zero, &ErrAttemptsExhausted{Attempts: cfg.MaxAttempts, Last: lastErr}
}
