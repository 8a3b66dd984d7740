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

// Package scheduler wires a validated graph.Graph into running pipes and
// drives every node to completion (§4.4): it instantiates each node,
// connects producer output pipes to consumer input pipes (merging at a
// multi-producer port), starts one driver per node, waits for all of them,
// and aggregates the result into an Outcome.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/graph"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/metrics"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/perrors"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/strategy"
)

// Run instantiates and drives every node of g to completion, or until ctx is
// cancelled. registry resolves item-transform nodes' Spec.Strategy names; a
// nil registry gets strategy.NewRegistry()'s built-in set. parameters
// configure the run's execctx.Context (retry/breaker/parallelism knobs,
// logger, dead-letter sink).
//
// Node driver tasks are instantiated producer-before-consumer: each node's
// constructor (graph.Spec.Source/ItemBody/StreamBody, or a Strategy's Drive)
// takes its already-wired input pipe as an argument, so the upstream pipe
// object must exist first. This differs from the example start-up order in
// §4.4 ("reverse topological, so consumers are ready before producers
// publish"), which that section itself calls an optimisation rather than a
// correctness requirement: a flowpipe.Pipe never drops items published
// before any consumer has subscribed (see flowpipe.broadcastPipe), so
// publishing ahead of subscription is always safe here.
func Run(ctx context.Context, g *graph.Graph, registry *strategy.Registry, parameters ...execctx.Option) (*Outcome, error) {
	if g == nil {
		return nil, errors.New("scheduler: nil graph")
	}
	if registry == nil {
		registry = strategy.NewRegistry()
	}

	reg := metrics.NewRegistry()
	runID := uuid.NewString()
	ec := execctx.New(ctx, runID, append(append([]execctx.Option(nil), parameters...), execctx.WithMetrics(reg))...)

	forward := make([]string, len(g.Topo))
	for i, id := range g.Topo {
		forward[len(g.Topo)-1-i] = id
	}

	outputs := make(map[string]flowpipe.Pipe[any], len(forward))

	var resultsMu sync.Mutex
	results := make(map[string]NodeResult, len(forward))
	setResult := func(id string, res NodeResult) {
		resultsMu.Lock()
		results[id] = res
		resultsMu.Unlock()
	}

	var grp errgroup.Group
	var buildErr error

	for _, id := range forward {
		id := id
		spec := g.Nodes[id]

		if buildErr != nil {
			setResult(id, NodeResult{Status: StatusCancelled})
			continue
		}

		in := inputFor(ec, g, id, outputs)
		if in != nil {
			in = wrapIn(in, reg.For(id))
		}

		switch {
		case spec.Kind == graph.KindSource:
			fn, _ := spec.Source()
			out, err := fn(ec)
			if err != nil {
				buildErr = err
				setResult(id, NodeResult{Status: StatusFailed, Err: err})
				ec.Cancel()
				continue
			}
			outputs[id] = wrapOut(out, reg.For(id))
			cur := outputs[id].Subscribe()
			grp.Go(func() error { return monitor(ec, id, spec, cur, reg.For(id), setResult) })

		case spec.Kind == graph.KindTransform && spec.Shape == graph.ShapeItem:
			body, _ := spec.ItemBody()
			strat := registry.Resolve(spec.Strategy)
			out := strat.Drive(ec, id, in, body)
			outputs[id] = wrapOut(out, reg.For(id))
			cur := outputs[id].Subscribe()
			grp.Go(func() error { return monitor(ec, id, spec, cur, reg.For(id), setResult) })

		case spec.Kind == graph.KindTransform && spec.Shape == graph.ShapeStream:
			fn, _ := spec.StreamBody()
			out, err := fn(ec, in)
			if err != nil {
				buildErr = err
				setResult(id, NodeResult{Status: StatusFailed, Err: err})
				ec.Cancel()
				continue
			}
			outputs[id] = wrapOut(out, reg.For(id))
			cur := outputs[id].Subscribe()
			grp.Go(func() error { return monitor(ec, id, spec, cur, reg.For(id), setResult) })

		case spec.Kind == graph.KindSink:
			sinkFn, _ := spec.Sink()
			grp.Go(func() error {
				err := sinkFn(ec, in)
				spec.Dispose(ec)
				switch {
				case err != nil && errors.Is(err, perrors.ErrCancelled):
					setResult(id, NodeResult{Status: StatusCancelled, Err: err})
					return nil
				case err != nil:
					setResult(id, NodeResult{Status: StatusFailed, Err: err})
					ec.Cancel()
					return err
				default:
					setResult(id, NodeResult{Status: StatusSucceeded})
					return nil
				}
			})
		}
	}

	runErr := grp.Wait()
	if buildErr != nil && runErr == nil {
		runErr = buildErr
	}

	snap := reg.Snapshot()
	outcome := &Outcome{RunID: runID, Err: runErr}
	if runErr != nil {
		outcome.Status = StatusFailed
	} else {
		outcome.Status = StatusSucceeded
	}
	outcome.Nodes = make(map[string]NodeResult, len(results))
	for id, res := range results {
		res.Counters = snap[id]
		outcome.Nodes[id] = res
	}
	return outcome, nil
}

// monitor drains cur, a cursor on id's own output pipe subscribed before any
// downstream consumer (fan-out makes this a zero-cost additional consumer,
// §4.2). It counts every item it reads as the node's items-out, records the
// NodeResult matching the pipe's terminal state, then runs the node's
// dispose hook.
func monitor(ec *execctx.Context, id string, spec *graph.Spec, cur flowpipe.Cursor[any], counters *metrics.Counters, setResult func(string, NodeResult)) error {
	defer cur.Close()
	defer spec.Dispose(ec)

	for {
		_, state, err := cur.Next(ec.Std())
		switch state {
		case flowpipe.StateOpen:
			counters.ItemsOut.Add(1)
			continue
		case flowpipe.StateCompleted:
			setResult(id, NodeResult{Status: StatusSucceeded})
			return nil
		case flowpipe.StateFaulted:
			setResult(id, NodeResult{Status: StatusFailed, Err: err})
			ec.Cancel()
			return err
		case flowpipe.StateCancelled:
			setResult(id, NodeResult{Status: StatusCancelled, Err: err})
			return nil
		}
	}
}

// inputFor resolves id's input pipe: nil for a node with no inbound edge,
// the sole producer's pipe for a single-producer port, or a flowpipe.Merge
// of every producer for a declared merge port (§4.2). Timestamp-ordered
// merging needs a per-item timestamp extractor that a type-erased edge
// cannot carry; merge ports configured with flowpipe.MergeOrderedByTimestamp
// fall back to arrival order here — an embedder needing true timestamp
// merge composes a dedicated graph.AddStreamTransform node that calls
// flowpipe.Merge directly with its own extractor.
func inputFor(ec *execctx.Context, g *graph.Graph, id string, outputs map[string]flowpipe.Pipe[any]) flowpipe.Pipe[any] {
	edges := g.InEdges(id)
	if len(edges) == 0 {
		return nil
	}

	producers := make([]flowpipe.Pipe[any], 0, len(edges))
	for _, e := range edges {
		if p, ok := outputs[e.From]; ok && p != nil {
			producers = append(producers, p)
		}
	}
	if len(producers) == 0 {
		return nil
	}
	if len(producers) == 1 {
		return producers[0]
	}

	e0 := edges[0]
	mode := e0.MergeMode
	if mode == flowpipe.MergeOrderedByTimestamp {
		mode = flowpipe.MergeOrderedByArrival
	}
	result := flowpipe.Merge[any](ec.Std(), mode, e0.Capacity, e0.Policy, producers,
		func(any) time.Time { return time.Time{} }, 0)
	return result.Pipe
}
