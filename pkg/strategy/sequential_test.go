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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/metrics"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/strategy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func doubleBody(_ *execctx.Context, item any) (any, error) {
	return item.(int) * 2, nil
}

func collectAny(t *testing.T, p flowpipe.Pipe[any]) ([]any, flowpipe.State, error) {
	t.Helper()
	cur := p.Subscribe()
	defer cur.Close()
	var got []any
	for {
		item, state, err := cur.Next(context.Background())
		if state != flowpipe.StateOpen {
			return got, state, err
		}
		got = append(got, item)
	}
}

func TestSequentialPreservesOrder(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[any](8, flowpipe.PolicyWait)
	out := strategy.Sequential{}.Drive(ec, "node", in, doubleBody)

	go func() {
		for i := 1; i <= 5; i++ {
			_ = in.Publish(context.Background(), i)
		}
		in.Complete()
	}()

	got, state, err := collectAny(t, out)
	assert.Equal(t, flowpipe.StateCompleted, state)
	assert.NoError(t, err)
	assert.Equal(t, []any{2, 4, 6, 8, 10}, got)
}

func TestSequentialFaultsOutputOnBodyError(t *testing.T) {
	reg := metrics.NewRegistry()
	ec := execctx.New(context.Background(), "run-1", execctx.WithMetrics(reg))
	in := flowpipe.New[any](8, flowpipe.PolicyWait)
	cause := errors.New("bad item")
	body := func(_ *execctx.Context, item any) (any, error) {
		if item.(int) == 2 {
			return nil, cause
		}
		return item, nil
	}
	out := strategy.Sequential{}.Drive(ec, "node", in, body)

	go func() {
		_ = in.Publish(context.Background(), 1)
		_ = in.Publish(context.Background(), 2)
		in.Complete()
	}()

	got, state, err := collectAny(t, out)
	assert.Equal(t, []any{1}, got)
	assert.Equal(t, flowpipe.StateFaulted, state)
	assert.ErrorIs(t, err, cause)
	assert.EqualValues(t, 1, reg.For("node").Failures.Load())
}

func TestSequentialRecoversFromPanic(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	in := flowpipe.New[any](8, flowpipe.PolicyWait)
	body := func(*execctx.Context, any) (any, error) { panic("kaboom") }
	out := strategy.Sequential{}.Drive(ec, "node", in, body)

	go func() {
		_ = in.Publish(context.Background(), 1)
		in.Complete()
	}()

	_, state, err := collectAny(t, out)
	assert.Equal(t, flowpipe.StateFaulted, state)
	assert.Error(t, err)

	info, ok := ec.Faults().Load()
	assert.True(t, ok)
	assert.Equal(t, "kaboom", info.Value)
}
