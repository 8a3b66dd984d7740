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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/execctx"
)

func TestFaultStoreWriteOnce(t *testing.T) {
	fs := &execctx.FaultStore{}
	fs.Store("first", []byte("stack-1"))
	fs.Store("second", []byte("stack-2"))

	info, ok := fs.Load()
	assert.True(t, ok)
	assert.Equal(t, "first", info.Value)
	assert.Equal(t, []byte("stack-1"), info.Stack)
}

func TestFaultStoreEmpty(t *testing.T) {
	fs := &execctx.FaultStore{}
	_, ok := fs.Load()
	assert.False(t, ok)
}

func TestNilFaultStoreIsNoOp(t *testing.T) {
	var fs *execctx.FaultStore
	assert.NotPanics(t, func() { fs.Store("x", nil) })
	_, ok := fs.Load()
	assert.False(t, ok)
}
