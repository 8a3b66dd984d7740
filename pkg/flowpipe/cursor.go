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
	"sync/atomic"
)

type cursorImpl[T any] struct {
	pipe *broadcastPipe[T]
	pos  atomic.Int64
}

func (c *cursorImpl[T]) posLoad() int64 { return c.pos.Load() }

func (c *cursorImpl[T]) Next(ctx context.Context) (T, State, error) {
	p := c.pipe
	for {
		p.mu.Lock()
		idx := c.pos.Load() - p.base
		if idx >= 0 && idx < int64(len(p.buf)) {
			v := p.buf[idx]
			c.pos.Add(1)
			p.trimLocked()
			p.notifyLocked()
			p.mu.Unlock()
			return v, StateOpen, nil
		}

		switch p.state {
		case StateCompleted:
			p.mu.Unlock()
			var zero T
			return zero, StateCompleted, nil
		case StateFaulted:
			err := p.err
			p.mu.Unlock()
			var zero T
			return zero, StateFaulted, err
		case StateCancelled:
			p.mu.Unlock()
			var zero T
			return zero, StateCancelled, nil
		}

		waitCh := p.waitCh
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			var zero T
			return zero, StateCancelled, ctx.Err()
		case <-waitCh:
		}
	}
}

// Close releases this cursor's hold on the pipe's buffer, allowing the
// producer to trim items this cursor had not yet read. A consumer that
// stops reading before end-of-stream should call Close to avoid pinning the
// buffer indefinitely.
func (c *cursorImpl[T]) Close() {
	c.pipe.unregister(c)
}
