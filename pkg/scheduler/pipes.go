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

package scheduler

import (
	"context"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/metrics"
)

// countingOutPipe decorates a node's own output pipe and counts, as
// items-out, the items published through the decorator itself. Node drivers
// publish to the pipe they created rather than through this decorator, so
// Run counts their items-out in monitor instead (§6 Outcome), independent
// of how many downstream consumers fan out from the pipe.
type countingOutPipe struct {
	flowpipe.Pipe[any]
	counters *metrics.Counters
}

func wrapOut(p flowpipe.Pipe[any], c *metrics.Counters) flowpipe.Pipe[any] {
	return &countingOutPipe{Pipe: p, counters: c}
}

func (p *countingOutPipe) Publish(ctx context.Context, item any) error {
	err := p.Pipe.Publish(ctx, item)
	if err == nil {
		p.counters.ItemsOut.Add(1)
	}
	return err
}

// countingInPipe decorates the pipe view handed to one particular consumer
// so that every item it actually reads counts against that consumer's
// items-in counter, independently of its siblings on the same fan-out pipe.
type countingInPipe struct {
	flowpipe.Pipe[any]
	counters *metrics.Counters
}

func wrapIn(p flowpipe.Pipe[any], c *metrics.Counters) flowpipe.Pipe[any] {
	return &countingInPipe{Pipe: p, counters: c}
}

func (p *countingInPipe) Subscribe() flowpipe.Cursor[any] {
	return &countingCursor{Cursor: p.Pipe.Subscribe(), counters: p.counters}
}

type countingCursor struct {
	flowpipe.Cursor[any]
	counters *metrics.Counters
}

func (c *countingCursor) Next(ctx context.Context) (any, flowpipe.State, error) {
	item, state, err := c.Cursor.Next(ctx)
	if state == flowpipe.StateOpen {
		c.counters.ItemsIn.Add(1)
	}
	return item, state, err
}
