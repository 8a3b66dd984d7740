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

package breaker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/benoit-pereira-da-silva/flowengine/pkg/breaker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClosedAdmitsUntilThreshold(t *testing.T) {
	b := breaker.New(breaker.Config{FailureThreshold: 3})
	assert.Equal(t, breaker.Closed, b.State())

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, breaker.Closed, b.State())

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, breaker.Open, b.State())
}

func TestTripCallsOnTrip(t *testing.T) {
	trips := 0
	b := breaker.New(breaker.Config{FailureThreshold: 1, OnTrip: func() { trips++ }})
	b.Allow()
	b.RecordFailure()
	assert.Equal(t, breaker.Open, b.State())
	assert.Equal(t, 1, trips)
}

func TestOpenRejectsUntilDuration(t *testing.T) {
	b := breaker.New(breaker.Config{FailureThreshold: 1, OpenDuration: 20 * time.Millisecond})
	b.Allow()
	b.RecordFailure()
	assert.Equal(t, breaker.Open, b.State())
	assert.False(t, b.Allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, breaker.HalfOpen, b.State())
}

func TestHalfOpenClosesAfterSuccessfulProbes(t *testing.T) {
	b := breaker.New(breaker.Config{FailureThreshold: 1, OpenDuration: time.Millisecond, ProbeCount: 2})
	b.Allow()
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.Equal(t, breaker.HalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, breaker.HalfOpen, b.State())

	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, breaker.Closed, b.State())
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	b := breaker.New(breaker.Config{FailureThreshold: 1, OpenDuration: time.Millisecond})
	b.Allow()
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.Equal(t, breaker.HalfOpen, b.State())
	b.RecordFailure()
	assert.Equal(t, breaker.Open, b.State())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	b := breaker.New(breaker.Config{FailureThreshold: 1, OpenDuration: time.Millisecond, ProbeCount: 1})
	b.Allow()
	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}
