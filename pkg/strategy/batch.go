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

package strategy

import (
	"time"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// Batch returns a stream-transform body that accumulates up to size items,
// or until timeout elapses since the first item of the current batch
// (whichever comes first), emitting each accumulated group as a single
// []T. timeout<=0 means size-only batching. Remaining items are flushed as
// a final, possibly short, batch when the input completes. Wire it with
// graph.AddStreamTransform[T, []T].
func Batch[T any](size int, timeout time.Duration) func(ctx *execctx.Context, in flowpipe.Pipe[T]) (flowpipe.Pipe[[]T], error) {
	if size < 1 {
		size = 1
	}
	return func(ctx *execctx.Context, in flowpipe.Pipe[T]) (flowpipe.Pipe[[]T], error) {
		out := flowpipe.New[[]T](defaultCapacity, flowpipe.PolicyWait)
		go func() {
			cur := in.Subscribe()
			defer cur.Close()

			batch := make([]T, 0, size)
			var timer *time.Timer
			var timerC <-chan time.Time

			flush := func() bool {
				if len(batch) == 0 {
					return true
				}
				toSend := batch
				batch = make([]T, 0, size)
				if timer != nil {
					timer.Stop()
					timer = nil
					timerC = nil
				}
				return out.Publish(ctx.Std(), toSend) == nil
			}

			itemCh := make(chan T)
			stateCh := make(chan flowpipe.State, 1)
			errCh := make(chan error, 1)
			go func() {
				for {
					item, state, err := cur.Next(ctx.Std())
					if state != flowpipe.StateOpen {
						if state == flowpipe.StateFaulted {
							errCh <- err
						}
						stateCh <- state
						return
					}
					select {
					case itemCh <- item:
					case <-ctx.Done():
						return
					}
				}
			}()

			for {
				if timerC == nil {
					timerC = blockedTimerChan()
				}
				select {
				case item := <-itemCh:
					if len(batch) == 0 && timeout > 0 {
						timer = time.NewTimer(timeout)
						timerC = timer.C
					}
					batch = append(batch, item)
					if len(batch) >= size {
						if !flush() {
							return
						}
					}
				case <-timerC:
					if !flush() {
						return
					}
				case st := <-stateCh:
					flush()
					switch st {
					case flowpipe.StateCompleted:
						out.Complete()
					case flowpipe.StateFaulted:
						out.Fail(<-errCh)
					case flowpipe.StateCancelled:
						out.Cancel()
					}
					return
				case <-ctx.Done():
					out.Cancel()
					return
				}
			}
		}()
		return out, nil
	}
}

// blockedTimerChan returns a channel that never fires, used as the select
// arm for "no batch timeout pending yet".
func blockedTimerChan() <-chan time.Time {
	return make(chan time.Time)
}

// Unbatch returns a stream-transform body that emits each element of every
// input collection as an individual output item, in iteration order, with
// no reordering across input collections. Wire it with
// graph.AddStreamTransform[[]T, T].
func Unbatch[T any]() func(ctx *execctx.Context, in flowpipe.Pipe[[]T]) (flowpipe.Pipe[T], error) {
	return func(ctx *execctx.Context, in flowpipe.Pipe[[]T]) (flowpipe.Pipe[T], error) {
		out := flowpipe.New[T](defaultCapacity, flowpipe.PolicyWait)
		go func() {
			cur := in.Subscribe()
			defer cur.Close()
			for {
				group, state, err := cur.Next(ctx.Std())
				switch state {
				case flowpipe.StateOpen:
					for _, item := range group {
						if pubErr := out.Publish(ctx.Std(), item); pubErr != nil {
							return
						}
					}
				case flowpipe.StateCompleted:
					out.Complete()
					return
				case flowpipe.StateFaulted:
					out.Fail(err)
					return
				case flowpipe.StateCancelled:
					out.Cancel()
					return
				}
			}
		}()
		return out, nil
	}
}
