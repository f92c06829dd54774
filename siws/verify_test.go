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

package siws

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memNonceStore is a mutex-guarded in-memory NonceStore for tests
type memNonceStore struct {
	mu     sync.Mutex
	nonces map[string]string
}

func newMemNonceStore() *memNonceStore {
	return &memNonceStore{nonces: make(map[string]string)}
}

func (s *memNonceStore) NonceExists(nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nonces[nonce]
	return ok, nil
}

func (s *memNonceStore) InsertNonce(nonce, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nonces[nonce]; ok {
		return ErrNonceReplayed
	}
	s.nonces[nonce] = participantID
	return nil
}

func testKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub), priv
}

func testMessage(nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"example.com wants you to sign in with your wallet\n\n"+
			"URI: https://example.com/login\n"+
			"Version: 1\n"+
			"Chain ID: mainnet\n"+
			"Nonce: %s\n"+
			"Issued At: %s\n",
		nonce,
		issuedAt.UTC().Format(time.RFC3339),
	)
}

func TestVerifyValidMessage(t *testing.T) {
	pubKey, privKey := testKeypair(t)
	store := newMemNonceStore()
	v := NewVerifier(store, nil)

	msg := testMessage("nonce-1", time.Now())
	sig := ed25519.Sign(privKey, []byte(msg))

	err := v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	assert.NoError(t, err)

	exists, err := store.NonceExists("nonce-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVerifyReplayedNonce(t *testing.T) {
	pubKey, privKey := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	msg := testMessage("nonce-replay", time.Now())
	sig := ed25519.Sign(privKey, []byte(msg))

	// First use succeeds, second fails as replay
	err := v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	require.NoError(t, err)
	err = v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	assert.ErrorIs(t, err, ErrNonceReplayed)
}

// racingNonceStore reports every nonce as absent but conflicts on
// insert, simulating losing the check-then-insert race to a concurrent
// request carrying the same nonce.
type racingNonceStore struct{}

func (racingNonceStore) NonceExists(string) (bool, error) { return false, nil }

func (racingNonceStore) InsertNonce(string, string) error {
	return ErrNonceReplayed
}

func TestVerifyInsertConflictTreatedAsReplay(t *testing.T) {
	pubKey, privKey := testKeypair(t)
	v := NewVerifier(racingNonceStore{}, nil)

	msg := testMessage("nonce-race", time.Now())
	sig := ed25519.Sign(privKey, []byte(msg))

	err := v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	assert.ErrorIs(t, err, ErrNonceReplayed)
}

func TestVerifyExpiredMessage(t *testing.T) {
	pubKey, privKey := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	tests := []struct {
		name     string
		issuedAt time.Time
	}{
		{"past", time.Now().Add(-11 * time.Minute)},
		{"future", time.Now().Add(11 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := testMessage("nonce-"+tt.name, tt.issuedAt)
			sig := ed25519.Sign(privKey, []byte(msg))
			err := v.Verify(
				context.Background(),
				pubKey,
				msg,
				sig,
				"participant-1",
			)
			assert.ErrorIs(t, err, ErrMessageExpired)
		})
	}
}

func TestVerifyFreshnessBeforeSignature(t *testing.T) {
	// An expired message is rejected regardless of signature validity
	pubKey, _ := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	msg := testMessage("nonce-x", time.Now().Add(-time.Hour))
	err := v.Verify(
		context.Background(),
		pubKey,
		msg,
		make([]byte, ed25519.SignatureSize),
		"participant-1",
	)
	assert.ErrorIs(t, err, ErrMessageExpired)
}

func TestVerifyMissingFields(t *testing.T) {
	pubKey, _ := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	tests := []struct {
		name string
		msg  string
	}{
		{"no nonce", "Issued At: 2026-08-30T12:00:00Z\n"},
		{"no issued-at", "Nonce: abc\n"},
		{"bad issued-at", "Nonce: abc\nIssued At: garbage\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(
				context.Background(),
				pubKey,
				tt.msg,
				make([]byte, ed25519.SignatureSize),
				"participant-1",
			)
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestVerifyBadSignature(t *testing.T) {
	pubKey, _ := testKeypair(t)
	_, otherPriv := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	msg := testMessage("nonce-sig", time.Now())

	// Signed by a different key
	sig := ed25519.Sign(otherPriv, []byte(msg))
	err := v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	assert.ErrorIs(t, err, ErrBadSignature)

	// Wrong signature length
	err = v.Verify(
		context.Background(),
		pubKey,
		msg,
		[]byte{0x01, 0x02},
		"participant-1",
	)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyBadPublicKey(t *testing.T) {
	_, privKey := testKeypair(t)
	v := NewVerifier(newMemNonceStore(), nil)

	msg := testMessage("nonce-pk", time.Now())
	sig := ed25519.Sign(privKey, []byte(msg))

	err := v.Verify(
		context.Background(),
		"not-a-valid-key",
		msg,
		sig,
		"participant-1",
	)
	assert.ErrorIs(t, err, ErrBadPublicKey)
}

func TestVerifyNonceNotStoredOnFailure(t *testing.T) {
	pubKey, _ := testKeypair(t)
	store := newMemNonceStore()
	v := NewVerifier(store, nil)

	msg := testMessage("nonce-fail", time.Now())
	err := v.Verify(
		context.Background(),
		pubKey,
		msg,
		make([]byte, ed25519.SignatureSize),
		"participant-1",
	)
	assert.ErrorIs(t, err, ErrBadSignature)

	exists, err := store.NonceExists("nonce-fail")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVerifyWithClock(t *testing.T) {
	pubKey, privKey := testKeypair(t)
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v := NewVerifier(
		newMemNonceStore(),
		nil,
		WithClock(func() time.Time { return fixed }),
	)

	msg := testMessage("nonce-clock", fixed.Add(-9*time.Minute))
	sig := ed25519.Sign(privKey, []byte(msg))
	err := v.Verify(context.Background(), pubKey, msg, sig, "participant-1")
	assert.NoError(t, err)
}
