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

package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/strategy"
)

func TestBatchFlushesOnSize(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[int](8, flowpipe.PolicyWait)

	fn := strategy.Batch[int](3, 0)
	out, err := fn(ec, in)
	assert.NoError(t, err)

	go func() {
		for i := 1; i <= 7; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	cur := out.Subscribe()
	defer cur.Close()
	var batches [][]int
	for {
		group, state, _ := cur.Next(context.Background())
		if state != flowpipe.StateOpen {
			break
		}
		batches = append(batches, group)
	}
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, batches)
}

func TestBatchFlushesOnTimeout(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[int](8, flowpipe.PolicyWait)

	fn := strategy.Batch[int](10, 30*time.Millisecond)
	out, err := fn(ec, in)
	assert.NoError(t, err)

	go func() {
		_ = in.Publish(context.Background(), 1)
		_ = in.Publish(context.Background(), 2)
		time.Sleep(100 * time.Millisecond)
		in.Complete()
	}()

	cur := out.Subscribe()
	defer cur.Close()
	group, state, _ := cur.Next(context.Background())
	assert.Equal(t, flowpipe.StateOpen, state)
	assert.Equal(t, []int{1, 2}, group)

	_, state, _ = cur.Next(context.Background())
	assert.Equal(t, flowpipe.StateCompleted, state)
}

func TestUnbatchEmitsEachElement(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[[]int](8, flowpipe.PolicyWait)

	fn := strategy.Unbatch[int]()
	out, err := fn(ec, in)
	assert.NoError(t, err)

	go func() {
		_ = in.Publish(context.Background(), []int{1, 2, 3})
		_ = in.Publish(context.Background(), []int{4})
		in.Complete()
	}()

	cur := out.Subscribe()
	defer cur.Close()
	var got []int
	for {
		item, state, _ := cur.Next(context.Background())
		if state != flowpipe.StateOpen {
			break
		}
		got = append(got, item)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestBatchFlushesRemainderOnFault(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[int](8, flowpipe.PolicyWait)

	fn := strategy.Batch[int](10, 0)
	out, err := fn(ec, in)
	assert.NoError(t, err)

	go func() {
		_ = in.Publish(context.Background(), 1)
		in.Fail(assertError)
	}()

	cur := out.Subscribe()
	defer cur.Close()
	group, state, _ := cur.Next(context.Background())
	assert.Equal(t, flowpipe.StateOpen, state)
	assert.Equal(t, []int{1}, group)

	_, state, err = cur.Next(context.Background())
	assert.Equal(t, flowpipe.StateFaulted, state)
	assert.ErrorIs(t, err, assertError)
}
