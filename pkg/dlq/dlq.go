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

// Package dlq provides dead-letter sinks for items whose processing failed
// irrecoverably (§4.5). A sink satisfies execctx.DeadLetterSink.
package dlq

import (
	"context"
	"sync"
	"time"
)

// Record is one dead-lettered item.
type Record struct {
	NodeID string
	Item   any
	Cause  error
	At     time.Time
}

// MemorySink accumulates records in memory. It is intended for tests and for
// small embedders that want to inspect failures after a run completes.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{now: time.Now}
}

// Publish implements execctx.DeadLetterSink.
func (s *MemorySink) Publish(_ context.Context, nodeID string, item any, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{NodeID: nodeID, Item: item, Cause: cause, At: s.now()})
}

// Records returns a snapshot of every record published so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records published so far.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// FuncSink adapts a plain function to execctx.DeadLetterSink.
type FuncSink func(ctx context.Context, nodeID string, item any, cause error)

// Publish implements execctx.DeadLetterSink.
func (f FuncSink) Publish(ctx context.Context, nodeID string, item any, cause error) {
	f(ctx, nodeID, item, cause)
}
