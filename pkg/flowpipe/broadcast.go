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

package flowpipe

import (
	"context"
	"fmt"
	"sync"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/perrors"
)

// broadcastPipe is the sole Pipe implementation. Published items live in a
// slice keyed by a monotonically increasing sequence number; every Cursor
// just tracks the next sequence number it wants. An item is only evicted
// from the slice once every live cursor has read past it, so a slow
// consumer backpressures the producer once the buffer reaches capacity.
// The buffer is shared: a faster cursor keeps reading out of the slice at
// its own pace until it catches up with the producer, and from then on
// advances only as the slowest cursor frees space, so it runs at most
// capacity items ahead of the slowest one.
//
// This gives fan-out semantics (§4.2) "for free": Subscribe just registers
// another read position against the same backing storage.
type broadcastPipe[T any] struct {
	mu       sync.Mutex
	waitCh   chan struct{}
	buf      []T
	base     int64 // sequence number of buf[0]
	seq      int64 // next sequence number to assign
	capacity int
	policy   BackpressurePolicy

	state State
	err   error
	drops uint64

	cursors map[*cursorImpl[T]]struct{}
}

// New creates a Pipe with the given buffer capacity (<=0 means unbounded —
// PolicyWait then never actually waits) and backpressure policy.
func New[T any](capacity int, policy BackpressurePolicy) Pipe[T] {
	return &broadcastPipe[T]{
		waitCh:   make(chan struct{}),
		capacity: capacity,
		policy:   policy,
		state:    StateOpen,
		cursors:  map[*cursorImpl[T]]struct{}{},
	}
}

// notifyLocked wakes every goroutine blocked on the current waitCh. Must be
// called with mu held.
func (p *broadcastPipe[T]) notifyLocked() {
	close(p.waitCh)
	p.waitCh = make(chan struct{})
}

// minCursorPosLocked returns the lowest read position among live cursors, or
// p.base (everything retained) when there are none registered yet.
func (p *broadcastPipe[T]) minCursorPosLocked() int64 {
	if len(p.cursors) == 0 {
		return p.base
	}
	min := int64(-1)
	for c := range p.cursors {
		pos := c.posLoad()
		if min == -1 || pos < min {
			min = pos
		}
	}
	return min
}

// trimLocked drops items every live cursor has already read past.
func (p *broadcastPipe[T]) trimLocked() {
	min := p.minCursorPosLocked()
	if min > p.base {
		drop := int(min - p.base)
		if drop > len(p.buf) {
			drop = len(p.buf)
		}
		p.buf = p.buf[drop:]
		p.base += int64(drop)
	}
}

func (p *broadcastPipe[T]) Subscribe() Cursor[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := &cursorImpl[T]{pipe: p}
	c.pos.Store(p.base)
	p.cursors[c] = struct{}{}
	return c
}

func (p *broadcastPipe[T]) Publish(ctx context.Context, item T) error {
	for {
		p.mu.Lock()
		if p.state != StateOpen {
			p.mu.Unlock()
			return fmt.Errorf("flowpipe: publish on %s pipe", p.state)
		}

		full := p.capacity > 0 && len(p.buf) >= p.capacity
		if !full {
			p.buf = append(p.buf, item)
			p.seq++
			p.notifyLocked()
			p.mu.Unlock()
			return nil
		}

		switch p.policy {
		case PolicyDropNewest:
			p.drops++
			p.mu.Unlock()
			return nil
		case PolicyDropOldest:
			if len(p.buf) > 0 {
				p.buf = p.buf[1:]
				p.base++
			}
			p.buf = append(p.buf, item)
			p.seq++
			p.drops++
			p.notifyLocked()
			p.mu.Unlock()
			return nil
		case PolicyReject:
			p.mu.Unlock()
			return perrors.Wrap(perrors.ErrDataflowFault, fmt.Errorf("pipe full (capacity %d)", p.capacity))
		default: // PolicyWait
			waitCh := p.waitCh
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-waitCh:
				// loop and retry
			}
		}
	}
}

func (p *broadcastPipe[T]) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOpen {
		return
	}
	p.state = StateCompleted
	p.notifyLocked()
}

func (p *broadcastPipe[T]) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOpen {
		return
	}
	p.state = StateFaulted
	p.err = err
	p.notifyLocked()
}

// Cancel is not part of the Pipe interface (cancellation is observed via the
// run's context at every suspension point) but is exposed for the scheduler
// to force-terminate a pipe when the run is cancelled.
func (p *broadcastPipe[T]) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateOpen {
		return
	}
	p.state = StateCancelled
	p.notifyLocked()
}

func (p *broadcastPipe[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *broadcastPipe[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *broadcastPipe[T]) Drops() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drops
}

func (p *broadcastPipe[T]) unregister(c *cursorImpl[T]) {
	p.mu.Lock()
	delete(p.cursors, c)
	p.trimLocked()
	p.mu.Unlock()
}
