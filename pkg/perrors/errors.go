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

// Package perrors defines the engine's error taxonomy.
//
// Failures the engine classifies wrap one of the sentinels below, using
// fmt.Errorf("...: %w", sentinel). Context errors and errors returned by a
// source, sink or stream-transform body are passed through unwrapped. Callers are expected to
// use errors.Is / errors.As, never type switches.
package perrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a graph invariant violated at build time. Never retried.
	ErrValidation = errors.New("validation")
	// ErrCancelled marks a cooperative abort in response to context cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrTimeout marks a per-attempt deadline exceeded.
	ErrTimeout = errors.New("timeout")
	// ErrTransformFailure wraps an error raised (or panic recovered) from a node body.
	ErrTransformFailure = errors.New("transform failure")
	// ErrCircuitOpen marks a call rejected by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrRetryBudgetExhausted marks a retry loop that ran out of attempts or
	// exceeded its overall timeout.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	// ErrDataflowFault marks a pipe mechanics failure: a dropped item under a
	// reject backpressure policy, a merge lateness violation, or a contract
	// violation between producer and consumer.
	ErrDataflowFault = errors.New("dataflow fault")
	// ErrExternalFault marks a failure reported by a source or sink's external
	// collaborator.
	ErrExternalFault = errors.New("external fault")
)

// Wrap associates cause with kind, producing an error that satisfies
// errors.Is(result, kind) and errors.Is(result, cause) (and, when cause
// itself wraps further, errors.Is for everything cause wraps).
func Wrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// FromPanic converts a recovered panic value into an ErrTransformFailure.
func FromPanic(r any) error {
	if err, ok := r.(error); ok {
		return Wrap(ErrTransformFailure, err)
	}
	return Wrap(ErrTransformFailure, fmt.Errorf("%v", r))
}

// Retriable reports whether err should be retried under the default policy:
// everything except Cancelled, Validation and CircuitOpen.
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, ErrValidation) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return true
}
