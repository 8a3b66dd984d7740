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

// Package graph models the pipeline as a typed directed acyclic graph: nodes
// with declared input/output types, connected by typed edges, validated for
// well-formedness at build time.
//
// The graph is heterogeneous: a Source emitting int and a Transform over
// string coexist in the same Graph. Go generics are resolved at the call
// site of AddSource/AddTransform/AddSink (where the embedder knows the
// concrete types); internally every node body is stored type-erased as a
// closure over flowpipe.Pipe[any], bridged back to the embedder's concrete
// types via flowpipe.Erase/flowpipe.Assert. The builder's validator is what
// guarantees those erased closures never see a mismatched element type.
package graph

import (
	"reflect"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// Kind identifies the role a Node plays in the graph.
type Kind int

const (
	// KindSource has no input; it produces items.
	KindSource Kind = iota
	// KindTransform has exactly one input and one output.
	KindTransform
	// KindSink has no output; it consumes items to exhaustion.
	KindSink
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTransform:
		return "transform"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Shape distinguishes the two Transform subvariants (§4.1).
type Shape int

const (
	// ShapeItem is an item-transform: one input item in, one output item
	// out, driven by an execution strategy.
	ShapeItem Shape = iota
	// ShapeStream is a stream-transform: owns the whole input/output pipe,
	// used when cardinality changes (batch, unbatch, join, branch).
	ShapeStream
)

type erasedSourceFn func(ctx *execctx.Context) (flowpipe.Pipe[any], error)
type erasedItemFn func(ctx *execctx.Context, item any) (any, error)
type erasedStreamFn func(ctx *execctx.Context, in flowpipe.Pipe[any]) (flowpipe.Pipe[any], error)
type erasedSinkFn func(ctx *execctx.Context, in flowpipe.Pipe[any]) error
type erasedDisposeFn func(ctx *execctx.Context)

// Spec is a fully type-erased node descriptor held by the Graph. Embedders
// never construct one directly; AddSource / AddTransform / AddStreamTransform
// / AddSink build one from a generic, fully typed body.
type Spec struct {
	ID         string
	Kind       Kind
	Shape      Shape
	InputType  reflect.Type // nil for Source
	OutputType reflect.Type // nil for Sink

	// Strategy names the execution strategy to drive this node (for
	// item-transforms): "sequential" (default), "parallel", "resilient".
	// Stream-transforms ignore Strategy; they drive themselves.
	Strategy string

	source     erasedSourceFn
	itemBody   erasedItemFn
	streamBody erasedStreamFn
	sink       erasedSinkFn
	dispose    erasedDisposeFn
}

// Source returns the node's erased source body, and ok=false if this is not
// a Source node.
func (s *Spec) Source() (erasedSourceFn, bool) { return s.source, s.source != nil }

// ItemBody returns the node's erased item body, and ok=false if this node is
// not an item-shaped Transform.
func (s *Spec) ItemBody() (erasedItemFn, bool) { return s.itemBody, s.itemBody != nil }

// StreamBody returns the node's erased stream body, and ok=false if this
// node is not a stream-shaped Transform.
func (s *Spec) StreamBody() (erasedStreamFn, bool) { return s.streamBody, s.streamBody != nil }

// Sink returns the node's erased sink body, and ok=false if this is not a
// Sink node.
func (s *Spec) Sink() (erasedSinkFn, bool) { return s.sink, s.sink != nil }

// Dispose runs the node's optional cleanup hook, if one was registered.
func (s *Spec) Dispose(ctx *execctx.Context) {
	if s.dispose != nil {
		s.dispose(ctx)
	}
}

// NodeOption configures optional node behavior at Add time.
type NodeOption func(*Spec)

// WithStrategy selects the execution strategy driving an item-transform.
func WithStrategy(name string) NodeOption {
	return func(s *Spec) { s.Strategy = name }
}

// WithDispose attaches a cleanup hook invoked after the node's driver
// terminates, for any reason.
func WithDispose(fn func(ctx *execctx.Context)) NodeOption {
	return func(s *Spec) { s.dispose = fn }
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
