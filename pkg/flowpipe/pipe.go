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

// Package flowpipe implements the back-pressured transport that connects one
// producer to one or more consumers in the pipeline graph.
//
// A Pipe[T] carries a monotonically ordered sequence of items of a fixed
// element type, terminated by exactly one of Completed, Faulted, or
// Cancelled. It has exactly one producer and may have one or many
// independent consumers (fan-out): with fan-out, every consumer observes the
// full producer sequence, each through its own Cursor.
package flowpipe

import "context"

// State is the lifecycle state of a Pipe or of a single Cursor's view of it.
type State int

const (
	// StateOpen means the pipe may still receive published items.
	StateOpen State = iota
	// StateCompleted means the producer signalled normal end-of-stream.
	StateCompleted
	// StateFaulted means the producer signalled a terminal error.
	StateFaulted
	// StateCancelled means the run's cancellation signal closed the pipe.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// BackpressurePolicy decides what Publish does when a pipe's buffer is full
// relative to its slowest cursor.
type BackpressurePolicy int

const (
	// PolicyWait suspends the publisher until space is available (the
	// default). This is the only policy that never loses an item.
	PolicyWait BackpressurePolicy = iota
	// PolicyDropNewest discards the item being published.
	PolicyDropNewest
	// PolicyDropOldest discards the oldest buffered item to make room.
	PolicyDropOldest
	// PolicyReject fails Publish immediately with ErrDataflowFault.
	PolicyReject
)

// Pipe is the producer-facing side of the transport.
type Pipe[T any] interface {
	// Subscribe registers a new consumer and returns a Cursor with its own
	// independent read position. Subscribe must be called before the
	// producer starts publishing (or at least before it catches up);
	// subscribing after items have already been trimmed from the buffer is
	// not supported.
	Subscribe() Cursor[T]

	// Publish appends an item to the stream. It blocks, drops, or fails
	// according to the pipe's BackpressurePolicy when the buffer is full
	// relative to the slowest cursor. Publish after Complete/Fail returns an
	// error.
	Publish(ctx context.Context, item T) error

	// Complete signals normal end-of-stream. Idempotent: only the first call
	// has an effect.
	Complete()

	// Fail signals a terminal error. Idempotent: only the first call
	// (whether Complete or Fail) has an effect.
	Fail(err error)

	// Cancel force-terminates the pipe in response to run cancellation.
	// Idempotent.
	Cancel()

	// State reports the pipe's current lifecycle state.
	State() State

	// Err returns the fault reason, if State() == StateFaulted.
	Err() error

	// Drops returns the number of items discarded by a non-wait
	// backpressure policy.
	Drops() uint64
}

// Cursor is one consumer's independent view of a Pipe's sequence.
type Cursor[T any] interface {
	// Next blocks until an item is available, the stream terminates, or ctx
	// is done. On termination it returns the zero value and the terminal
	// State (StateCompleted, StateFaulted, or StateCancelled); err is set
	// only for StateFaulted or when ctx.Err() fired.
	Next(ctx context.Context) (item T, state State, err error)

	// Close releases this cursor's hold on the pipe's buffer. A consumer
	// that stops before end-of-stream must call Close so the producer can
	// trim items the cursor will never read.
	Close()
}
