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
	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
	"github.com/benoit-pereira-da-silva/flowengine/pkg/flowpipe"
)

// Sequential drives a node one item at a time, preserving input order. It
// is the default strategy for item-transforms. A body failure faults the
// node's output pipe (propagating downstream); wrap the node in Resilient
// to recover locally instead.
type Sequential struct{}

// Drive implements Strategy.
func (Sequential) Drive(ctx *execctx.Context, nodeID string, in flowpipe.Pipe[any], body ItemBody) flowpipe.Pipe[any] {
	out := flowpipe.New[any](defaultCapacity, flowpipe.PolicyWait)
	go func() {
		cur := in.Subscribe()
		defer cur.Close()
		for {
			item, state, err := cur.Next(ctx.Std())
			switch state {
			case flowpipe.StateOpen:
				result, bodyErr := runBody(ctx, body, item)
				if bodyErr != nil {
					ctx.Logger().Error("sequential: body failed", "node", nodeID, "err", bodyErr)
					recordFailure(ctx, nodeID)
					out.Fail(bodyErr)
					return
				}
				if pubErr := out.Publish(ctx.Std(), result); pubErr != nil {
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
