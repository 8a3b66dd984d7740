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

package execctx

import "sync"

// FaultInfo holds details about a recovered panic: the panic value and the
// stack at the point of recovery. The strategies store every panic they
// recover from a node body here, in addition to converting it into a
// TransformFailure.
type FaultInfo struct {
	Value any
	Stack []byte
}

// FaultStore is a write-once holder for the first panic recovered during a
// run. Pipeline code treats per-item errors as data (see strategy and dlq);
// FaultStore keeps the value and stack of the first recovered panic for
// diagnostics. Storing a fault does not by itself abort the run.
//
// Store is write-once: the first call wins, later calls are ignored. Load is
// safe to call concurrently with Store.
type FaultStore struct {
	once sync.Once
	mu   sync.Mutex
	info FaultInfo
	set  bool
}

// Store records the first fault. If fs is nil, Store is a no-op.
func (fs *FaultStore) Store(value any, stack []byte) {
	if fs == nil {
		return
	}
	fs.once.Do(func() {
		var stackCopy []byte
		if len(stack) > 0 {
			stackCopy = make([]byte, len(stack))
			copy(stackCopy, stack)
		}
		fs.mu.Lock()
		fs.info = FaultInfo{Value: value, Stack: stackCopy}
		fs.set = true
		fs.mu.Unlock()
	})
}

// Load retrieves the stored fault, if any.
func (fs *FaultStore) Load() (FaultInfo, bool) {
	if fs == nil {
		return FaultInfo{}, false
	}
	fs.mu.Lock()
	info := fs.info
	ok := fs.set
	fs.mu.Unlock()
	return info, ok
}
