// Copyright 2026 Fairgate Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProviderDown = errors.New("provider down")

func failingCall() error { return errProviderDown }

func succeedingCall() error { return nil }

func TestBreakerOpensAtThreshold(t *testing.T) {
	breaker := NewBreaker(WithFailureThreshold(5))
	for i := 0; i < 4; i++ {
		err := breaker.Execute(failingCall)
		require.ErrorIs(t, err, errProviderDown)
		assert.Equal(t, StateClosed, breaker.State())
	}
	err := breaker.Execute(failingCall)
	require.ErrorIs(t, err, errProviderDown)
	assert.Equal(t, StateOpen, breaker.State())
	// Open breaker rejects without invoking the call
	called := false
	err = breaker.Execute(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	breaker := NewBreaker(WithFailureThreshold(3))
	require.Error(t, breaker.Execute(failingCall))
	require.Error(t, breaker.Execute(failingCall))
	require.NoError(t, breaker.Execute(succeedingCall))
	// Two more failures should not open: the count was reset
	require.Error(t, breaker.Execute(failingCall))
	require.Error(t, breaker.Execute(failingCall))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Now()
	breaker := NewBreaker(
		WithFailureThreshold(2),
		WithCooldown(time.Minute),
		WithBreakerClock(func() time.Time { return now }),
	)
	require.Error(t, breaker.Execute(failingCall))
	require.Error(t, breaker.Execute(failingCall))
	require.Equal(t, StateOpen, breaker.State())
	// Still inside the cooldown window
	now = now.Add(30 * time.Second)
	require.ErrorIs(t, breaker.Execute(succeedingCall), ErrCircuitOpen)
	// Past the cooldown the probe is admitted and closes the circuit
	now = now.Add(31 * time.Second)
	require.NoError(t, breaker.Execute(succeedingCall))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	breaker := NewBreaker(
		WithFailureThreshold(2),
		WithCooldown(time.Minute),
		WithBreakerClock(func() time.Time { return now }),
	)
	require.Error(t, breaker.Execute(failingCall))
	require.Error(t, breaker.Execute(failingCall))
	now = now.Add(61 * time.Second)
	require.ErrorIs(t, breaker.Execute(failingCall), errProviderDown)
	assert.Equal(t, StateOpen, breaker.State())
	// The failed probe starts a fresh cooldown
	now = now.Add(30 * time.Second)
	require.ErrorIs(t, breaker.Execute(succeedingCall), ErrCircuitOpen)
	now = now.Add(31 * time.Second)
	require.NoError(t, breaker.Execute(succeedingCall))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHealthy(t *testing.T) {
	breaker := NewBreaker(WithFailureThreshold(1))
	assert.True(t, breaker.Healthy())
	require.Error(t, breaker.Execute(failingCall))
	assert.False(t, breaker.Healthy())
}
