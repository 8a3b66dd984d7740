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

package execctx_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParamPrecedenceNodeOverridesDefault(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1",
		execctx.WithParam("retry.max_attempts", 3),
		execctx.WithNodeParam("node-a", "retry.max_attempts", 7),
	)

	assert.Equal(t, 7, ec.IntParam("node-a", "retry.max_attempts", 1))
	assert.Equal(t, 3, ec.IntParam("node-b", "retry.max_attempts", 1))
	assert.Equal(t, 1, ec.IntParam("node-c", "unknown.key", 1))
}

func TestDurationAndBoolParam(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1",
		execctx.WithParam("timeout", 50*time.Millisecond),
		execctx.WithNodeParam("n", "preserve", true),
	)
	assert.Equal(t, 50*time.Millisecond, ec.DurationParam("x", "timeout", time.Second))
	assert.Equal(t, time.Second, ec.DurationParam("x", "missing", time.Second))
	assert.True(t, ec.BoolParam("n", "preserve", false))
	assert.False(t, ec.BoolParam("other", "preserve", false))
}

func TestMetricsDefaultsToNil(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	assert.Nil(t, ec.Metrics())
}

func TestMetricsAttached(t *testing.T) {
	reg := metrics.NewRegistry()
	ec := execctx.New(context.Background(), "run-1", execctx.WithMetrics(reg))
	assert.Same(t, reg, ec.Metrics())
}

func TestAttemptSharesStateButBoundsDeadline(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	ec.Shared().Store("k", "v")

	attemptCtx, cancel := ec.Attempt(10 * time.Millisecond)
	defer cancel()

	v, ok := attemptCtx.Shared().Load("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, ec.RunID(), attemptCtx.RunID())

	select {
	case <-attemptCtx.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("attempt context should have expired")
	}
	assert.Nil(t, ec.Err())
}

func TestAttemptZeroDurationReturnsSameContext(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	attemptCtx, cancel := ec.Attempt(0)
	defer cancel()
	assert.Same(t, ec, attemptCtx)
}

func TestCancelPropagatesToDone(t *testing.T) {
	ec := execctx.New(context.Background(), "run-1")
	ec.Cancel()
	select {
	case <-ec.Done():
	default:
		t.Fatal("expected Done to be closed after Cancel")
	}
}
