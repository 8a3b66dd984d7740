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
	"fmt"

	"github.com/google/uuid"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// Edge connects one producer port to one consumer port.
type Edge struct {
	From, To         string
	FromPort, ToPort string
	Capacity         int
	Policy           flowpipe.BackpressurePolicy
	// Merge marks ToPort as an explicitly declared merge port, distinct from
	// MergeMode's zero value (MergeOrderedByArrival is itself a valid,
	// explicitly selectable mode, so it cannot double as "unset").
	Merge     bool
	MergeMode flowpipe.MergeMode
}

// Builder assembles a Graph incrementally. Go methods cannot carry their own
// type parameters, so the typed constructors (AddSource, AddTransform, ...)
// are package-level generic functions taking *Builder as their first
// argument rather than Builder methods; Connect and the capacity/policy
// knobs are ordinary methods since they operate only on already-erased ids.
type Builder struct {
	nodes           map[string]*Spec
	order           []string
	edges           []Edge
	defaultCapacity int
	defaultPolicy   flowpipe.BackpressurePolicy
	buildErr        error
}

// NewBuilder creates an empty Builder. Default pipe capacity is 64 with a
// waiting backpressure policy; override with WithDefaultCapacity /
// WithDefaultPolicy.
func NewBuilder() *Builder {
	return &Builder{
		nodes:           map[string]*Spec{},
		defaultCapacity: 64,
		defaultPolicy:   flowpipe.PolicyWait,
	}
}

// WithDefaultCapacity sets the pipe buffer capacity used for edges that
// don't specify one via ConnectWithOptions.
func (b *Builder) WithDefaultCapacity(n int) *Builder {
	b.defaultCapacity = n
	return b
}

// WithDefaultPolicy sets the backpressure policy used for edges that don't
// specify one.
func (b *Builder) WithDefaultPolicy(p flowpipe.BackpressurePolicy) *Builder {
	b.defaultPolicy = p
	return b
}

func (b *Builder) addNode(spec *Spec) {
	if b.buildErr != nil {
		return
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if _, exists := b.nodes[spec.ID]; exists {
		b.buildErr = fmt.Errorf("%w: duplicate node id %q", ErrDuplicateID, spec.ID)
		return
	}
	b.nodes[spec.ID] = spec
	b.order = append(b.order, spec.ID)
}

// AddSource registers a Source node producing items of type T.
func AddSource[T any](b *Builder, id string, fn func(ctx *execctx.Context) (flowpipe.Pipe[T], error), opts ...NodeOption) *Builder {
	spec := &Spec{
		ID:         id,
		Kind:       KindSource,
		OutputType: typeOf[T](),
		source: func(ctx *execctx.Context) (flowpipe.Pipe[any], error) {
			p, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return flowpipe.Erase[T](p), nil
		},
	}
	for _, opt := range opts {
		opt(spec)
	}
	b.addNode(spec)
	return b
}

// AddTransform registers an item-transform node: one input item of type In
// in, one output item of type Out out, driven by an execution strategy
// (sequential by default; see WithStrategy).
func AddTransform[In, Out any](b *Builder, id string, fn func(ctx *execctx.Context, item In) (Out, error), opts ...NodeOption) *Builder {
	spec := &Spec{
		ID:         id,
		Kind:       KindTransform,
		Shape:      ShapeItem,
		InputType:  typeOf[In](),
		OutputType: typeOf[Out](),
		Strategy:   "sequential",
		itemBody: func(ctx *execctx.Context, item any) (any, error) {
			typed, _ := item.(In)
			out, err := fn(ctx, typed)
			return out, err
		},
	}
	for _, opt := range opts {
		opt(spec)
	}
	b.addNode(spec)
	return b
}

// AddStreamTransform registers a stream-transform node: the body owns the
// whole input/output pipe (batch, unbatch, join, branch).
func AddStreamTransform[In, Out any](b *Builder, id string, fn func(ctx *execctx.Context, in flowpipe.Pipe[In]) (flowpipe.Pipe[Out], error), opts ...NodeOption) *Builder {
	spec := &Spec{
		ID:         id,
		Kind:       KindTransform,
		Shape:      ShapeStream,
		InputType:  typeOf[In](),
		OutputType: typeOf[Out](),
		streamBody: func(ctx *execctx.Context, in flowpipe.Pipe[any]) (flowpipe.Pipe[any], error) {
			out, err := fn(ctx, flowpipe.Assert[In](in))
			if err != nil {
				return nil, err
			}
			return flowpipe.Erase[Out](out), nil
		},
	}
	for _, opt := range opts {
		opt(spec)
	}
	b.addNode(spec)
	return b
}

// AddSink registers a Sink node consuming items of type In to exhaustion.
func AddSink[In any](b *Builder, id string, fn func(ctx *execctx.Context, in flowpipe.Pipe[In]) error, opts ...NodeOption) *Builder {
	spec := &Spec{
		ID:        id,
		Kind:      KindSink,
		InputType: typeOf[In](),
		sink: func(ctx *execctx.Context, in flowpipe.Pipe[any]) error {
			return fn(ctx, flowpipe.Assert[In](in))
		},
	}
	for _, opt := range opts {
		opt(spec)
	}
	b.addNode(spec)
	return b
}

// EdgeOption configures a single Connect call.
type EdgeOption func(*Edge)

// WithCapacity overrides the edge's pipe buffer capacity.
func WithCapacity(n int) EdgeOption { return func(e *Edge) { e.Capacity = n } }

// WithPolicy overrides the edge's backpressure policy.
func WithPolicy(p flowpipe.BackpressurePolicy) EdgeOption { return func(e *Edge) { e.Policy = p } }

// WithPorts names the producer/consumer ports for a branch or merge edge
// (default port is "").
func WithPorts(fromPort, toPort string) EdgeOption {
	return func(e *Edge) { e.FromPort, e.ToPort = fromPort, toPort }
}

// WithMergeMode marks the consumer port as a merge port combined with the
// given mode (§4.2); required when more than one edge targets the same
// (to, toPort).
func WithMergeMode(mode flowpipe.MergeMode) EdgeOption {
	return func(e *Edge) { e.Merge = true; e.MergeMode = mode }
}

// Connect wires the default output port of from to the default input port
// of to.
func (b *Builder) Connect(from, to string) *Builder {
	return b.ConnectWithOptions(from, to)
}

// ConnectWithOptions wires from to to, applying the given EdgeOptions.
func (b *Builder) ConnectWithOptions(from, to string, opts ...EdgeOption) *Builder {
	if b.buildErr != nil {
		return b
	}
	e := Edge{From: from, To: to, Capacity: b.defaultCapacity, Policy: b.defaultPolicy}
	for _, opt := range opts {
		opt(&e)
	}
	b.edges = append(b.edges, e)
	return b
}

// Build validates the accumulated nodes and edges and returns a frozen
// Graph, or the first GraphError encountered.
func (b *Builder) Build() (*Graph, error) {
	if b.buildErr != nil {
		return nil, b.buildErr
	}
	g := &Graph{
		Nodes: b.nodes,
		Edges: append([]Edge(nil), b.edges...),
		order: append([]string(nil), b.order...),
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	topo, err := topologicalOrder(g)
	if err != nil {
		return nil, err
	}
	g.Topo = topo
	return g, nil
}
