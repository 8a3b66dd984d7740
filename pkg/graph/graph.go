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

// Graph is a validated, frozen DAG, ready to be handed to a scheduler. It is
// only ever produced by Builder.Build.
type Graph struct {
	Nodes map[string]*Spec
	Edges []Edge
	// Topo holds node ids in reverse topological order (consumers before
	// producers); the scheduler reverses it and starts producers first.
	Topo  []string
	order []string // insertion order, used for a deterministic topological order
}

// InEdges returns every edge whose To matches id.
func (g *Graph) InEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns every edge whose From matches id.
func (g *Graph) OutEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}
