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

// Package metrics holds the per-node counters a run accumulates (items-in,
// items-out, failures, retries, breaker trips), surfaced on scheduler.Outcome
// (§6). It is reached only through execctx.Context.Metrics, never a
// package-level collector.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Counters are the per-node counts a run tracks. All fields use atomics so
// concurrent strategies (Parallel, fan-out consumers) can update them without
// a Registry-wide lock.
type Counters struct {
	ItemsIn      atomic.Int64
	ItemsOut     atomic.Int64
	Failures     atomic.Int64
	Retries      atomic.Int64
	BreakerTrips atomic.Int64
}

// Snapshot is an immutable point-in-time read of Counters.
type Snapshot struct {
	ItemsIn      int64
	ItemsOut     int64
	Failures     int64
	Retries      int64
	BreakerTrips int64
}

func (c *Counters) snapshot() Snapshot {
	return Snapshot{
		ItemsIn:      c.ItemsIn.Load(),
		ItemsOut:     c.ItemsOut.Load(),
		Failures:     c.Failures.Load(),
		Retries:      c.Retries.Load(),
		BreakerTrips: c.BreakerTrips.Load(),
	}
}

// Registry owns one Counters per node id, created lazily on first access.
type Registry struct {
	mu    sync.Mutex
	nodes map[string]*Counters
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: map[string]*Counters{}}
}

// For returns the Counters for nodeID, creating them on first call.
func (r *Registry) For(nodeID string) *Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.nodes[nodeID]
	if !ok {
		c = &Counters{}
		r.nodes[nodeID] = c
	}
	return c
}

// Snapshot returns a copy of every node's counters recorded so far.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Snapshot, len(r.nodes))
	for id, c := range r.nodes {
		out[id] = c.snapshot()
	}
	return out
}
