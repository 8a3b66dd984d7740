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

package strategy

import (
	"context"
	"time"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/breaker"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/perrors"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/retry"
)

// Resilient wraps an item body with retry, circuit breaking, a per-attempt
// timeout, and dead-letter routing (§4.5). Inner documents which cardinality
// model the wrapped body follows; the current implementation always drives
// one item at a time (retrying it to a decision before advancing), which is
// sufficient for every documented scenario — Inner is an extension point for
// a future concurrent-resilient driver rather than something the default
// Drive dispatches on.
type Resilient struct {
	Inner Strategy
}

// Drive implements Strategy.
func (r Resilient) Drive(ctx *execctx.Context, nodeID string, in flowpipe.Pipe[any], body ItemBody) flowpipe.Pipe[any] {
	out := flowpipe.New[any](defaultCapacity, flowpipe.PolicyWait)

	cfg := retry.Config{
		MaxAttempts:    ctx.IntParam(nodeID, ParamRetryMaxAttempts, 1),
		Backoff:        backoffParam(ctx, nodeID),
		Jitter:         jitterParam(ctx, nodeID),
		OverallTimeout: ctx.DurationParam(nodeID, ParamRetryOverallTimeout, 0),
		ShouldRetry:    func(err error, _ int) bool { return perrors.Retriable(err) },
		OnRetry: func(int) {
			if m := ctx.Metrics(); m != nil {
				m.For(nodeID).Retries.Add(1)
			}
		},
	}
	cb := breaker.New(breaker.Config{
		FailureThreshold: ctx.IntParam(nodeID, ParamBreakerFailThreshold, 5),
		OpenDuration:     ctx.DurationParam(nodeID, ParamBreakerOpenDuration, 0),
		ProbeCount:       ctx.IntParam(nodeID, ParamBreakerProbeCount, 1),
		OnTrip: func() {
			if m := ctx.Metrics(); m != nil {
				m.For(nodeID).BreakerTrips.Add(1)
			}
		},
	})
	perAttemptTimeout := ctx.DurationParam(nodeID, ParamPerAttemptTimeout, 0)

	go func() {
		cur := in.Subscribe()
		defer cur.Close()
		for {
			item, state, err := cur.Next(ctx.Std())
			switch state {
			case flowpipe.StateOpen:
				if aborted := r.handleItem(ctx, nodeID, item, body, cfg, cb, perAttemptTimeout, out); aborted {
					return
				}
			case flowpipe.StateCompleted:
				out.Complete()
				return
			case flowpipe.StateFaulted:
				out.Fail(err)
				return
			case flowpipe.StateCancelled:
				out.Cancel()
				return
			}
		}
	}()

	return out
}

// handleItem processes one item through breaker + retry + dead-letter
// routing. It returns true when the node's driver must stop (a terminal
// failure with no dead-letter sink configured faulted the output pipe).
func (r Resilient) handleItem(ctx *execctx.Context, nodeID string, item any, body ItemBody, cfg retry.Config, cb *breaker.Breaker, perAttemptTimeout time.Duration, out flowpipe.Pipe[any]) bool {
	if !cb.Allow() {
		return r.deadLetterOrFault(ctx, nodeID, item, perrors.ErrCircuitOpen, out)
	}

	result, err := retry.Do(ctx.Std(), cfg, func(_ context.Context, attempt int) (any, error) {
		attemptCtx, cancel := ctx.Attempt(perAttemptTimeout)
		defer cancel()
		res, bodyErr := runBody(attemptCtx, body, item)
		if bodyErr != nil {
			cb.RecordFailure()
			return nil, bodyErr
		}
		cb.RecordSuccess()
		return res, nil
	})

	if err != nil {
		return r.deadLetterOrFault(ctx, nodeID, item, classifyRetryErr(err), out)
	}
	if pubErr := out.Publish(ctx.Std(), result); pubErr != nil {
		return true
	}
	return false
}

// backoffParam resolves the node's configured retry.Backoff (§6
// "retry.backoff"), falling back to fixed(0) when unset — the same default
// retry.Config.withDefaults applies, made explicit here since a caller may
// also set ParamRetryJitter without a corresponding backoff.
func backoffParam(ctx *execctx.Context, nodeID string) retry.Backoff {
	if v, ok := ctx.Param(nodeID, ParamRetryBackoff); ok {
		if b, ok := v.(retry.Backoff); ok {
			return b
		}
	}
	return retry.Fixed(0)
}

// jitterParam resolves the node's configured retry.Jitter (§6
// "retry.jitter"), falling back to no jitter when unset.
func jitterParam(ctx *execctx.Context, nodeID string) retry.Jitter {
	if v, ok := ctx.Param(nodeID, ParamRetryJitter); ok {
		if j, ok := v.(retry.Jitter); ok {
			return j
		}
	}
	return retry.NoJitter()
}

func classifyRetryErr(err error) error {
	switch err.(type) {
	case *retry.ErrAttemptsExhausted, *retry.ErrBudgetExceeded:
		return perrors.Wrap(perrors.ErrRetryBudgetExhausted, err)
	default:
		return err
	}
}

func (r Resilient) deadLetterOrFault(ctx *execctx.Context, nodeID string, item any, cause error, out flowpipe.Pipe[any]) bool {
	recordFailure(ctx, nodeID)
	if sink := ctx.DeadLetter(); sink != nil {
		sink.Publish(ctx.Std(), nodeID, item, cause)
		return false
	}
	out.Fail(cause)
	return true
}
