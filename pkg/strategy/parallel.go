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
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// Parallel drives up to parallel.degree items concurrently (default 4). By
// default the output order is not the input order; set
// parallel.preserve_order to reassemble it in an in-memory reorder buffer.
// The reorder buffer has no size bound: a body's slot is released as soon
// as its result is handed over, so results that finish ahead of a slow
// earlier item accumulate until that item completes.
type Parallel struct{}

type indexedResult struct {
	idx int
	val any
	err error
}

// Drive implements Strategy.
func (Parallel) Drive(ctx *execctx.Context, nodeID string, in flowpipe.Pipe[any], body ItemBody) flowpipe.Pipe[any] {
	degree := ctx.IntParam(nodeID, ParamParallelDegree, 4)
	if degree <= 0 {
		degree = 1
	}
	preserveOrder := ctx.BoolParam(nodeID, ParamParallelPreserveOrder, false)

	out := flowpipe.New[any](degree*2, flowpipe.PolicyWait)

	go func() {
		sem := semaphore.NewWeighted(int64(degree))
		cur := in.Subscribe()
		defer cur.Close()

		resCh := make(chan indexedResult, degree)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var produceErr error
		var cancelled bool

		go func() {
			idx := 0
			for {
				item, state, err := cur.Next(ctx.Std())
				switch state {
				case flowpipe.StateOpen:
					if acqErr := sem.Acquire(ctx.Std(), 1); acqErr != nil {
						mu.Lock()
						cancelled = true
						mu.Unlock()
						wg.Wait()
						close(resCh)
						return
					}
					wg.Add(1)
					go func(i int, it any) {
						defer wg.Done()
						defer sem.Release(1)
						result, bodyErr := runBody(ctx, body, it)
						resCh <- indexedResult{idx: i, val: result, err: bodyErr}
					}(idx, item)
					idx++
				case flowpipe.StateCompleted:
					wg.Wait()
					close(resCh)
					return
				case flowpipe.StateFaulted:
					mu.Lock()
					produceErr = err
					mu.Unlock()
					wg.Wait()
					close(resCh)
					return
				case flowpipe.StateCancelled:
					mu.Lock()
					cancelled = true
					mu.Unlock()
					wg.Wait()
					close(resCh)
					return
				}
			}
		}()

		var firstErr error
		record := func(err error) {
			if firstErr == nil {
				firstErr = err
			}
		}
		consume := func(r indexedResult) {
			if r.err != nil {
				recordFailure(ctx, nodeID)
				record(r.err)
				return
			}
			if firstErr == nil {
				if pubErr := out.Publish(ctx.Std(), r.val); pubErr != nil {
					record(pubErr)
				}
			}
		}

		if preserveOrder {
			pending := map[int]indexedResult{}
			next := 0
			for r := range resCh {
				pending[r.idx] = r
				for {
					rr, ok := pending[next]
					if !ok {
						break
					}
					delete(pending, next)
					next++
					consume(rr)
				}
			}
		} else {
			for r := range resCh {
				consume(r)
			}
		}

		mu.Lock()
		pe, wasCancelled := produceErr, cancelled
		mu.Unlock()

		switch {
		case firstErr != nil:
			out.Fail(firstErr)
		case pe != nil:
			out.Fail(pe)
		case wasCancelled:
			out.Cancel()
		default:
			out.Complete()
		}
	}()

	return out
}
