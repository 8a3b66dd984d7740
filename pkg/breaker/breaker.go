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

// Package breaker implements the per-node circuit breaker state machine
// used by the Resilient execution strategy (§4.5): Closed -> Open ->
// Half-Open -> Closed|Open.
package breaker

import (
	"sync"
	"time"
)

// State identifies one of the three breaker states.
type State int

const (
	// Closed admits every call and counts consecutive failures.
	Closed State = iota
	// Open rejects every call until OpenDuration elapses.
	Open
	// HalfOpen admits a bounded number of probe calls to decide whether to
	// close again or reopen.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures in Closed that
	// trips the breaker to Open. Default 5.
	FailureThreshold int
	// OpenDuration is how long the breaker stays Open before moving to
	// HalfOpen. Default 30s.
	OpenDuration time.Duration
	// ProbeCount is how many calls HalfOpen admits before deciding. Default 1.
	ProbeCount int
	// OnTrip, if set, is called each time the breaker transitions into Open.
	// Used by the Resilient strategy to report the breaker-trips counter (§6
	// Outcome).
	OnTrip func()
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = 30 * time.Second
	}
	if c.ProbeCount <= 0 {
		c.ProbeCount = 1
	}
	return c
}

// Breaker is a single per-node circuit breaker. It is safe for concurrent
// use: Allow/RecordSuccess/RecordFailure may be called from multiple driver
// goroutines when the owning node runs under a Parallel strategy.
type Breaker struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	fails  int
	probes int
	oks    int // successful probes in the current HalfOpen period
	openAt time.Time
	now    func() time.Time
}

// New creates a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), state: Closed, now: time.Now}
}

// Allow reports whether a call may proceed, transitioning Open->HalfOpen
// when OpenDuration has elapsed. When it returns false the caller must treat
// the item as rejected with perrors.ErrCircuitOpen without invoking the body.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openAt) >= b.cfg.OpenDuration {
			b.state = HalfOpen
			b.probes = 0
			b.oks = 0
			return b.admitProbeLocked()
		}
		return false
	case HalfOpen:
		return b.admitProbeLocked()
	default:
		return false
	}
}

func (b *Breaker) admitProbeLocked() bool {
	if b.probes >= b.cfg.ProbeCount {
		return false
	}
	b.probes++
	return true
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.fails = 0
	case HalfOpen:
		b.oks++
		if b.oks >= b.cfg.ProbeCount {
			b.state = Closed
			b.fails = 0
			b.probes = 0
			b.oks = 0
		}
	}
}

// RecordFailure reports a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.fails++
		if b.fails >= b.cfg.FailureThreshold {
			b.trip()
		}
	case HalfOpen:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openAt = b.now()
	b.fails = 0
	b.probes = 0
	b.oks = 0
	if b.cfg.OnTrip != nil {
		b.cfg.OnTrip()
	}
}

// State returns the breaker's current state, for diagnostics.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
