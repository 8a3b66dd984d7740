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

package scheduler

import "github.com/benoit-pereira-da-silva/flowengine/pkg/metrics"

// Status is the terminal state of one node's driver, or of the run as a
// whole.
type Status int

const (
	// StatusSucceeded means the driver's output pipe completed normally (or,
	// for a sink, its consuming call returned nil).
	StatusSucceeded Status = iota
	// StatusFailed means the driver's output pipe faulted, or its
	// construction/consuming call returned a non-cancellation error.
	StatusFailed
	// StatusCancelled means the run's cancellation signal terminated the
	// driver before it reached a normal or faulted end-of-stream.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// NodeResult is one node's contribution to an Outcome.
type NodeResult struct {
	Status   Status
	Err      error
	Counters metrics.Snapshot
}

// Outcome is what Run returns (§6): aggregate status, per-node status and
// counters, and, on failure, the first terminal error observed across every
// node.
type Outcome struct {
	RunID  string
	Status Status
	Err    error
	Nodes  map[string]NodeResult
}

// Failed reports whether the run ended with a pipeline failure.
func (o *Outcome) Failed() bool { return o.Status == StatusFailed }
