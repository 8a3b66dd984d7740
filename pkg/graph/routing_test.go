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

package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/graph"
)

func collectAll(t *testing.T, p flowpipe.Pipe[int]) []int {
	t.Helper()
	cur := p.Subscribe()
	defer cur.Close()
	var got []int
	for {
		item, state, _ := cur.Next(context.Background())
		if state != flowpipe.StateOpen {
			return got
		}
		got = append(got, item)
	}
}

func TestBranchFirstMatchSendsToFirstEligibleOnly(t *testing.T) {
	even := flowpipe.New[int](8, flowpipe.PolicyWait)
	odd := flowpipe.New[int](8, flowpipe.PolicyWait)

	routes := []graph.Route[int]{
		{Predicate: func(_ *execctx.Context, item int) bool { return item%2 == 0 }, Out: even},
		{Predicate: nil, Out: odd},
	}

	body := graph.Branch[int](graph.RoutingFirstMatch, routes)
	ec := execctx.New(context.Background(), "run-1")

	in := flowpipe.New[int](8, flowpipe.PolicyWait)
	done, err := body(ec, in)
	assert.NoError(t, err)

	go func() {
		for i := 0; i < 4; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	evenGot := collectAll(t, even)
	oddGot := collectAll(t, odd)
	doneCur := done.Subscribe()
	defer doneCur.Close()
	_, doneState, _ := doneCur.Next(context.Background())
	assert.Equal(t, flowpipe.StateCompleted, doneState)

	assert.Equal(t, []int{0, 2}, evenGot)
	assert.Equal(t, []int{1, 3}, oddGot)
}

func TestBranchBroadcastSendsToEveryEligibleRoute(t *testing.T) {
	a := flowpipe.New[int](8, flowpipe.PolicyWait)
	b := flowpipe.New[int](8, flowpipe.PolicyWait)
	routes := []graph.Route[int]{{Out: a}, {Out: b}}

	body := graph.Branch[int](graph.RoutingBroadcast, routes)
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[int](8, flowpipe.PolicyWait)
	_, err := body(ec, in)
	assert.NoError(t, err)

	go func() {
		_ = in.Publish(context.Background(), 42)
		in.Complete()
	}()

	assert.Equal(t, []int{42}, collectAll(t, a))
	assert.Equal(t, []int{42}, collectAll(t, b))
}

func TestBranchRoundRobinAlternatesRoutes(t *testing.T) {
	a := flowpipe.New[int](8, flowpipe.PolicyWait)
	b := flowpipe.New[int](8, flowpipe.PolicyWait)
	routes := []graph.Route[int]{{Out: a}, {Out: b}}

	body := graph.Branch[int](graph.RoutingRoundRobin, routes)
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[int](8, flowpipe.PolicyWait)
	_, err := body(ec, in)
	assert.NoError(t, err)

	go func() {
		for i := 0; i < 4; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	assert.Equal(t, []int{0, 2}, collectAll(t, a))
	assert.Equal(t, []int{1, 3}, collectAll(t, b))
}
