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
	"errors"
	"fmt"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/perrors"
)

// Violation classes returned by Build, wrapped with perrors.ErrValidation.
var (
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrUnknownID    = errors.New("unknown node id")
	ErrTypeMismatch = errors.New("edge type mismatch")
	ErrCycle        = errors.New("cycle detected")
	ErrOrphanNode   = errors.New("orphan node")
	ErrMultiProducer = errors.New("multiple producers on a non-merge input port")
)

// GraphError reports exactly one violation class, per §6.
type GraphError struct {
	Class error
	Msg   string
}

func (e *GraphError) Error() string { return e.Msg }
func (e *GraphError) Unwrap() error { return perrors.Wrap(perrors.ErrValidation, e.Class) }

func violation(class error, format string, args ...any) error {
	return &GraphError{Class: class, Msg: fmt.Sprintf(format, args...)}
}

func validate(g *Graph) error {
	if err := validateEndpoints(g); err != nil {
		return err
	}
	if err := validateTypes(g); err != nil {
		return err
	}
	if err := validateMultiProducer(g); err != nil {
		return err
	}
	if err := validateOrphans(g); err != nil {
		return err
	}
	return nil
}

func validateEndpoints(g *Graph) error {
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			return violation(ErrUnknownID, "edge references unknown source node %q", e.From)
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return violation(ErrUnknownID, "edge references unknown target node %q", e.To)
		}
	}
	return nil
}

func validateTypes(g *Graph) error {
	for _, e := range g.Edges {
		from := g.Nodes[e.From]
		to := g.Nodes[e.To]
		if from.OutputType == nil || to.InputType == nil {
			continue
		}
		if from.OutputType != to.InputType {
			return violation(ErrTypeMismatch, "edge %s->%s: producer output type %s does not match consumer input type %s",
				e.From, e.To, from.OutputType, to.InputType)
		}
	}
	return nil
}

func validateMultiProducer(g *Graph) error {
	seen := map[string]int{}
	for _, e := range g.Edges {
		key := e.To + "\x00" + e.ToPort
		seen[key]++
		if seen[key] > 1 && !isMergePort(g, e.To, e.ToPort) {
			return violation(ErrMultiProducer, "node %q input port %q has multiple producers but is not declared as a merge port", e.To, e.ToPort)
		}
	}
	return nil
}

// isMergePort reports whether any edge targeting (id, port) explicitly
// opted in as a merge port via WithMergeMode.
func isMergePort(g *Graph, id, port string) bool {
	for _, e := range g.Edges {
		if e.To == id && e.ToPort == port && e.Merge {
			return true
		}
	}
	return false
}

func validateOrphans(g *Graph) error {
	hasIn := map[string]bool{}
	hasOut := map[string]bool{}
	for _, e := range g.Edges {
		hasOut[e.From] = true
		hasIn[e.To] = true
	}
	for id, spec := range g.Nodes {
		switch spec.Kind {
		case KindSource:
			if !hasOut[id] {
				return violation(ErrOrphanNode, "source %q has no outgoing edge", id)
			}
		case KindSink:
			if !hasIn[id] {
				return violation(ErrOrphanNode, "sink %q has no incoming edge", id)
			}
		case KindTransform:
			if !hasIn[id] {
				return violation(ErrOrphanNode, "transform %q has no incoming edge", id)
			}
			if !hasOut[id] {
				return violation(ErrOrphanNode, "transform %q has no outgoing edge", id)
			}
		}
	}
	return nil
}

// topologicalOrder runs Kahn's algorithm and returns node ids in REVERSE
// topological order (sinks/consumers first), the start-up order §4.4
// illustrates; scheduler.Run reverses it and starts producers first. A
// remaining in-degree after the algorithm drains means a cycle.
func topologicalOrder(g *Graph) ([]string, error) {
	inDegree := map[string]int{}
	adj := map[string][]string{}
	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		inDegree[e.To]++
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var forward []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		forward = append(forward, id)
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(forward) != len(g.Nodes) {
		return nil, violation(ErrCycle, "graph contains a cycle")
	}

	reverse := make([]string, len(forward))
	for i, id := range forward {
		reverse[len(forward)-1-i] = id
	}
	return reverse, nil
}
