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
	"container/heap"
	"context"
	"sync"
	"time"
)

// MergeMode selects how items from multiple input pipes are combined onto a
// merge port (§4.2).
type MergeMode int

const (
	// MergeOrderedByArrival interleaves items in the order they arrive at
	// the merge point. Per-input order is preserved.
	MergeOrderedByArrival MergeMode = iota
	// MergeOrderedByTimestamp emits items in non-decreasing watermark order,
	// buffering late arrivals up to a configured lateness bound.
	MergeOrderedByTimestamp
	// MergePartitioned preserves per-input order; interleaving across
	// inputs is arbitrary (same mechanics as MergeOrderedByArrival — the
	// mode exists to document intent at the call site).
	MergePartitioned
)

// MergeResult is the outcome of Merge: the combined pipe plus an accessor
// for items dropped for arriving later than the configured lateness bound
// (only relevant to MergeOrderedByTimestamp).
type MergeResult[T any] struct {
	Pipe      Pipe[T]
	LateDrops func() uint64
}

// Merge combines inputs onto a single output Pipe according to mode. The
// returned pipe is completed once every input has completed, and is faulted
// as soon as any input faults.
func Merge[T any](ctx context.Context, mode MergeMode, capacity int, policy BackpressurePolicy, inputs []Pipe[T], timestampOf func(T) time.Time, lateness time.Duration) MergeResult[T] {
	out := New[T](capacity, policy)

	switch mode {
	case MergeOrderedByTimestamp:
		drops := mergeByTimestamp(ctx, out, inputs, timestampOf, lateness)
		return MergeResult[T]{Pipe: out, LateDrops: drops}
	default:
		mergeByArrival(ctx, out, inputs)
		return MergeResult[T]{Pipe: out, LateDrops: func() uint64 { return 0 }}
	}
}

// mergeByArrival fans every input into out as items arrive. A mutex
// serializes publishes so concurrent inputs never interleave a single
// Publish call; per-input receive order is preserved because each input has
// its own forwarding goroutine reading its own cursor sequentially.
func mergeByArrival[T any](ctx context.Context, out Pipe[T], inputs []Pipe[T]) {
	var wg sync.WaitGroup
	var publishMu sync.Mutex
	var failOnce sync.Once

	wg.Add(len(inputs))
	for _, in := range inputs {
		in := in
		go func() {
			defer wg.Done()
			cur := in.Subscribe()
			defer cur.Close()
			for {
				item, state, err := cur.Next(ctx)
				switch state {
				case StateOpen:
					publishMu.Lock()
					pubErr := out.Publish(ctx, item)
					publishMu.Unlock()
					if pubErr != nil {
						return
					}
				case StateCompleted:
					return
				case StateFaulted:
					failOnce.Do(func() { out.Fail(err) })
					return
				case StateCancelled:
					failOnce.Do(func() { out.Cancel() })
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		out.Complete()
	}()
}

type tsHeapItem[T any] struct {
	item T
	ts   time.Time
	src  int
}

type tsHeap[T any] []tsHeapItem[T]

func (h tsHeap[T]) Len() int            { return len(h) }
func (h tsHeap[T]) Less(i, j int) bool  { return h[i].ts.Before(h[j].ts) }
func (h tsHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tsHeap[T]) Push(x any)         { *h = append(*h, x.(tsHeapItem[T])) }
func (h *tsHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergeByTimestamp runs a single-goroutine k-way merge keyed by
// timestampOf(item): each input has a dedicated reader goroutine feeding a
// per-input Go channel; the merge goroutine always advances the input whose
// head item has the smallest timestamp, dropping arrivals that fall further
// than lateness behind the last emitted watermark.
func mergeByTimestamp[T any](ctx context.Context, out Pipe[T], inputs []Pipe[T], timestampOf func(T) time.Time, lateness time.Duration) func() uint64 {
	type msg struct {
		item T
		ok   bool
		err  error
		fail bool
	}

	chans := make([]chan msg, len(inputs))
	for i, in := range inputs {
		chans[i] = make(chan msg, 1)
		in := in
		ch := chans[i]
		go func() {
			cur := in.Subscribe()
			defer cur.Close()
			defer close(ch)
			for {
				item, state, err := cur.Next(ctx)
				switch state {
				case StateOpen:
					select {
					case ch <- msg{item: item, ok: true}:
					case <-ctx.Done():
						return
					}
				case StateCompleted:
					return
				case StateFaulted:
					select {
					case ch <- msg{fail: true, err: err}:
					case <-ctx.Done():
					}
					return
				case StateCancelled:
					return
				}
			}
		}()
	}

	var lateDrops uint64
	var lateMu sync.Mutex

	go func() {
		h := &tsHeap[T]{}
		heap.Init(h)
		open := make([]bool, len(inputs))
		for i := range open {
			open[i] = true
		}
		var watermark time.Time
		remaining := len(inputs)

		// pull reads from source i until it can either push a fresh-enough
		// item onto the heap or determine the source is exhausted/failed; a
		// late-dropped item must not leave the source unrepresented in the
		// heap, so it loops rather than returning after a single drop.
		pull := func(i int) bool {
			for {
				m, alive := <-chans[i]
				if !alive {
					return false
				}
				if m.fail {
					out.Fail(m.err)
					return false
				}
				if !m.ok {
					return false
				}
				ts := timestampOf(m.item)
				if !watermark.IsZero() && ts.Before(watermark.Add(-lateness)) {
					lateMu.Lock()
					lateDrops++
					lateMu.Unlock()
					continue
				}
				heap.Push(h, tsHeapItem[T]{item: m.item, ts: ts, src: i})
				return true
			}
		}

		for _, i := range rangeN(len(inputs)) {
			if !pull(i) {
				open[i] = false
				remaining--
			}
		}

		for remaining > 0 || h.Len() > 0 {
			if h.Len() == 0 {
				break
			}
			top := heap.Pop(h).(tsHeapItem[T])
			if top.ts.After(watermark) {
				watermark = top.ts
			}
			if err := out.Publish(ctx, top.item); err != nil {
				return
			}
			if open[top.src] {
				if !pull(top.src) {
					open[top.src] = false
					remaining--
				}
			}
		}
		out.Complete()
	}()

	return func() uint64 {
		lateMu.Lock()
		defer lateMu.Unlock()
		return lateDrops
	}
}

func rangeN(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
