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

import "github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"

// defaultCapacity is the buffer capacity given to a strategy's own output
// pipe when the embedder has not overridden it at the graph edge.
const defaultCapacity = 64

// recordFailure increments nodeID's failures counter, if a metrics registry
// is attached to ctx.
func recordFailure(ctx *execctx.Context, nodeID string) {
	if m := ctx.Metrics(); m != nil {
		m.For(nodeID).Failures.Add(1)
	}
}
