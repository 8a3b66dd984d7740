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

package flowpipe

import "context"

// Erase and Assert let the scheduler wire a heterogeneous graph of typed
// Pipe[T] values through a single uniform Pipe[any] runtime layer, while
// every node body the embedder writes stays fully typed (graph.AddTransform
// and friends are the generic call sites; the scheduler only ever sees
// Pipe[any]). The graph builder's validator already guarantees element-type
// agreement across an edge, so the assertions inside Assert's Cursor.Next
// never fail in a correctly validated graph.

type erasedPipe[T any] struct{ inner Pipe[T] }

// Erase adapts a Pipe[T] to Pipe[any].
func Erase[T any](p Pipe[T]) Pipe[any] { return erasedPipe[T]{inner: p} }

func (e erasedPipe[T]) Subscribe() Cursor[any] { return erasedCursor[T]{inner: e.inner.Subscribe()} }
func (e erasedPipe[T]) Publish(ctx context.Context, item any) error {
	v, _ := item.(T)
	return e.inner.Publish(ctx, v)
}
func (e erasedPipe[T]) Complete()       { e.inner.Complete() }
func (e erasedPipe[T]) Fail(err error)  { e.inner.Fail(err) }
func (e erasedPipe[T]) Cancel()         { e.inner.Cancel() }
func (e erasedPipe[T]) State() State    { return e.inner.State() }
func (e erasedPipe[T]) Err() error      { return e.inner.Err() }
func (e erasedPipe[T]) Drops() uint64   { return e.inner.Drops() }

type erasedCursor[T any] struct{ inner Cursor[T] }

func (c erasedCursor[T]) Next(ctx context.Context) (any, State, error) {
	v, st, err := c.inner.Next(ctx)
	return v, st, err
}
func (c erasedCursor[T]) Close() { c.inner.Close() }

type typedPipe[T any] struct{ inner Pipe[any] }

// Assert adapts a Pipe[any] back to Pipe[T]. In a graph validated by the
// builder, the element type always matches and the assertion is safe.
func Assert[T any](p Pipe[any]) Pipe[T] { return typedPipe[T]{inner: p} }

func (t typedPipe[T]) Subscribe() Cursor[T] { return typedCursor[T]{inner: t.inner.Subscribe()} }
func (t typedPipe[T]) Publish(ctx context.Context, item T) error {
	return t.inner.Publish(ctx, item)
}
func (t typedPipe[T]) Complete()      { t.inner.Complete() }
func (t typedPipe[T]) Fail(err error) { t.inner.Fail(err) }
func (t typedPipe[T]) Cancel()        { t.inner.Cancel() }
func (t typedPipe[T]) State() State   { return t.inner.State() }
func (t typedPipe[T]) Err() error     { return t.inner.Err() }
func (t typedPipe[T]) Drops() uint64  { return t.inner.Drops() }

type typedCursor[T any] struct{ inner Cursor[any] }

func (c typedCursor[T]) Next(ctx context.Context) (T, State, error) {
	v, st, err := c.inner.Next(ctx)
	typed, _ := v.(T)
	return typed, st, err
}
func (c typedCursor[T]) Close() { c.inner.Close() }
