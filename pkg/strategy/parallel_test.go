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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/strategy"
)

func TestParallelProcessesEveryItem(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", execctx.WithNodeParam("node", strategy.ParamParallelDegree, 3))
	in := flowpipe.New[any](16, flowpipe.PolicyWait)

	body := func(_ *execctx.Context, item any) (any, error) {
		time.Sleep(time.Millisecond)
		return item.(int) * 2, nil
	}
	out := strategy.Parallel{}.Drive(ec, "node", in, body)

	go func() {
		for i := 1; i <= 10; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	got, state, _ := collectAny(t, out)
	assert.Equal(t, flowpipe.StateCompleted, state)
	assert.Len(t, got, 10)

	ints := make([]int, len(got))
	for i, v := range got {
		ints[i] = v.(int)
	}
	sort.Ints(ints)
	assert.Equal(t, []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}, ints)
}

func TestParallelPreserveOrderReassemblesInputOrder(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1",
		execctx.WithNodeParam("node", strategy.ParamParallelDegree, 4),
		execctx.WithNodeParam("node", strategy.ParamParallelPreserveOrder, true),
	)
	in := flowpipe.New[any](16, flowpipe.PolicyWait)

	body := func(_ *execctx.Context, item any) (any, error) {
		n := item.(int)
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n, nil
	}
	out := strategy.Parallel{}.Drive(ec, "node", in, body)

	go func() {
		for i := 1; i <= 6; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	got, state, _ := collectAny(t, out)
	assert.Equal(t, flowpipe.StateCompleted, state)
	want := []any{1, 2, 3, 4, 5, 6}
	assert.Equal(t, want, got)
}

func TestParallelFaultsOnBodyError(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1", execctx.WithNodeParam("node", strategy.ParamParallelDegree, 2))
	in := flowpipe.New[any](16, flowpipe.PolicyWait)

	body := func(_ *execctx.Context, item any) (any, error) {
		if item.(int) == 3 {
			return nil, assertError
		}
		return item, nil
	}
	out := strategy.Parallel{}.Drive(ec, "node", in, body)

	go func() {
		for i := 1; i <= 5; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	_, state, err := collectAny(t, out)
	assert.Equal(t, flowpipe.StateFaulted, state)
	assert.ErrorIs(t, err, assertError)
}

var assertError = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
