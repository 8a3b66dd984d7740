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

package graph

import (
	"math/rand"
	"sync"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// RoutePredicate decides whether item is eligible for a given route.
type RoutePredicate[T any] func(ctx *execctx.Context, item T) bool

// RoutingStrategy selects which eligible route(s) receive an item (§1c,
// generalized from the teacher's text router into a branch transform over
// any element type).
type RoutingStrategy int

const (
	// RoutingFirstMatch sends the item to the first eligible route only.
	RoutingFirstMatch RoutingStrategy = iota
	// RoutingBroadcast sends the item to every eligible route.
	RoutingBroadcast
	// RoutingRoundRobin sends the item to the next eligible route in
	// rotation.
	RoutingRoundRobin
	// RoutingRandom sends the item to one eligible route chosen at random.
	RoutingRandom
)

// Route pairs a predicate with the pipe that receives matching items.
type Route[T any] struct {
	Predicate RoutePredicate[T]
	Out       flowpipe.Pipe[T]
}

// Branch builds a stream-transform body implementing a multi-output
// transform (§3: "multi-output nodes (branch) ... dispatched via a
// RoutingStrategy"). The returned pipe is a dummy completion signal: the
// real outputs are the pipes embedded in routes. scheduler.Run hands every
// out-edge of the node this completion pipe, whatever its FromPort, so the
// route pipes reach only code that holds them directly.
func Branch[T any](strategy RoutingStrategy, routes []Route[T]) func(ctx *execctx.Context, in flowpipe.Pipe[T]) (flowpipe.Pipe[struct{}], error) {
	return func(ctx *execctx.Context, in flowpipe.Pipe[T]) (flowpipe.Pipe[struct{}], error) {
		done := flowpipe.New[struct{}](1, flowpipe.PolicyWait)
		go func() {
			defer func() {
				for _, r := range routes {
					r.Out.Complete()
				}
				done.Complete()
			}()

			cur := in.Subscribe()
			defer cur.Close()
			var rrCursor int
			var mu sync.Mutex

			for {
				item, state, err := cur.Next(ctx.Std())
				switch state {
				case flowpipe.StateOpen:
					dispatch(ctx, strategy, routes, item, &rrCursor, &mu)
				case flowpipe.StateCompleted:
					return
				case flowpipe.StateFaulted:
					for _, r := range routes {
						r.Out.Fail(err)
					}
					return
				case flowpipe.StateCancelled:
					for _, r := range routes {
						r.Out.Cancel()
					}
					return
				}
			}
		}()
		return done, nil
	}
}

func dispatch[T any](ctx *execctx.Context, strategy RoutingStrategy, routes []Route[T], item T, rrCursor *int, mu *sync.Mutex) {
	var eligible []int
	for i, r := range routes {
		// nil predicate means "always eligible", a convenience for a default
		// catch-all route.
		if r.Predicate == nil || r.Predicate(ctx, item) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return
	}

	std := ctx.Std()
	switch strategy {
	case RoutingBroadcast:
		for _, i := range eligible {
			_ = routes[i].Out.Publish(std, item)
		}
	case RoutingRoundRobin:
		mu.Lock()
		idx := eligible[*rrCursor%len(eligible)]
		*rrCursor++
		mu.Unlock()
		_ = routes[idx].Out.Publish(std, item)
	case RoutingRandom:
		idx := eligible[rand.Intn(len(eligible))]
		_ = routes[idx].Out.Publish(std, item)
	default: // RoutingFirstMatch
		_ = routes[eligible[0]].Out.Publish(std, item)
	}
}
