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

package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/strategy"
)

func TestRegistryResolvesBuiltins(t *testing.T) {
	reg := strategy.NewRegistry()

	assert.IsType(t, strategy.Sequential{}, reg.Resolve("sequential"))
	assert.IsType(t, strategy.Parallel{}, reg.Resolve("parallel"))
	assert.IsType(t, strategy.Resilient{}, reg.Resolve("resilient"))
	assert.IsType(t, strategy.Resilient{}, reg.Resolve("resilient-parallel"))
}

func TestRegistryDefaultsToSequential(t *testing.T) {
	reg := strategy.NewRegistry()
	assert.IsType(t, strategy.Sequential{}, reg.Resolve(""))
	assert.IsType(t, strategy.Sequential{}, reg.Resolve("does-not-exist"))
}

type customStrategy struct{ strategy.Sequential }

func TestRegistryRegisterCustomStrategy(t *testing.T) {
	reg := strategy.NewRegistry()
	reg.Register("custom", customStrategy{})
	assert.IsType(t, customStrategy{}, reg.Resolve("custom"))
}
