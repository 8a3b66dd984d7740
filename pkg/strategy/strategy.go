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

// Package strategy implements the execution strategies an item-transform
// node is driven by (§4.3): Sequential, Parallel, and Resilient. Batching
// and Unbatching are stream-transform helpers (see batch.go) rather than
// Strategy implementations, since they change cardinality instead of
// driving a per-item body.
package strategy

import (
	"runtime/debug"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/perrors"
)

// Well-known context parameter keys (§6).
const (
	ParamParallelDegree        = "parallel.degree"
	ParamParallelPreserveOrder = "parallel.preserve_order"
	ParamRetryMaxAttempts      = "retry.max_attempts"
	ParamRetryOverallTimeout   = "retry.overall_timeout"
	ParamRetryBackoff          = "retry.backoff"
	ParamRetryJitter           = "retry.jitter"
	ParamBreakerFailThreshold  = "breaker.failure_threshold"
	ParamBreakerOpenDuration   = "breaker.open_duration"
	ParamBreakerProbeCount     = "breaker.probe_count"
	ParamPerAttemptTimeout     = "resilient.per_attempt_timeout"
	ParamMaxMaterializedItems  = "resilient.max_materialized_items"
)

// ItemBody is the type-erased form of a Transform's item body, as stored in
// graph.Spec and produced by graph.AddTransform.
type ItemBody func(ctx *execctx.Context, item any) (any, error)

// Strategy drives an item-transform node: it owns the loop that pulls from
// in, invokes body, and publishes to the returned pipe.
type Strategy interface {
	Drive(ctx *execctx.Context, nodeID string, in flowpipe.Pipe[any], body ItemBody) flowpipe.Pipe[any]
}

// Registry resolves a node's configured strategy name (graph.Spec.Strategy)
// to an implementation. "sequential" is always present; embedders can
// register custom strategies via Register (§6 Strategy SPI).
type Registry struct {
	named map[string]Strategy
}

// NewRegistry creates a Registry pre-populated with the four built-in
// strategies.
func NewRegistry() *Registry {
	r := &Registry{named: map[string]Strategy{}}
	r.Register("sequential", Sequential{})
	r.Register("parallel", Parallel{})
	r.Register("resilient", Resilient{Inner: Sequential{}})
	r.Register("resilient-parallel", Resilient{Inner: Parallel{}})
	return r
}

// Register adds or replaces the strategy under name.
func (r *Registry) Register(name string, s Strategy) { r.named[name] = s }

// Resolve looks up a strategy by name, defaulting to Sequential when name is
// empty or unknown.
func (r *Registry) Resolve(name string) Strategy {
	if name == "" {
		return Sequential{}
	}
	if s, ok := r.named[name]; ok {
		return s
	}
	return Sequential{}
}

// runBody invokes body, wrapping a returned error in ErrTransformFailure and
// recovering any panic and converting it into an ErrTransformFailure (§1c)
// rather than letting it escape the driver goroutine.
func runBody(ctx *execctx.Context, body ItemBody, item any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perrors.FromPanic(r)
			ctx.Faults().Store(r, debug.Stack())
		}
	}()
	result, err = body(ctx, item)
	if err != nil {
		err = perrors.Wrap(perrors.ErrTransformFailure, err)
	}
	return result, err
}
