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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// FreshnessWindow bounds how far a message's issued-at timestamp may
// drift from the current time in either direction. It limits the replay
// window independent of nonce storage and protects against clock-skew
// abuse.
const FreshnessWindow = 10 * time.Minute

var (
	ErrMalformedMessage = errors.New("invalid message format")
	ErrMessageExpired   = errors.New("message expired")
	ErrNonceReplayed    = errors.New("nonce already used")
	ErrBadPublicKey     = errors.New("malformed public key")
	ErrBadSignature     = errors.New("invalid signature")
)

// NonceStore is the persistence contract for single-use nonces.
// InsertIfAbsent must fail with an error matching ErrNonceReplayed
// (via errors.Is) when the nonce was already recorded; that uniqueness
// constraint is the authoritative replay defense.
type NonceStore interface {
	NonceExists(nonce string) (bool, error)
	InsertNonce(nonce string, participantID string) error
}

// Verifier validates signed sign-in messages: field parsing, freshness,
// replay protection, and Ed25519 signature verification.
type Verifier struct {
	nonces NonceStore
	logger *slog.Logger
	now    func() time.Time
	window time.Duration
}

// VerifierOptionFunc is a function that modifies a Verifier
type VerifierOptionFunc func(*Verifier)

// WithClock overrides the wall clock used for freshness checks. This is
// mostly useful for testing.
func WithClock(now func() time.Time) VerifierOptionFunc {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithFreshnessWindow overrides the maximum allowed issued-at drift.
func WithFreshnessWindow(window time.Duration) VerifierOptionFunc {
	return func(v *Verifier) {
		if window > 0 {
			v.window = window
		}
	}
}

// NewVerifier creates a Verifier backed by the given nonce store.
func NewVerifier(
	nonces NonceStore,
	logger *slog.Logger,
	opts ...VerifierOptionFunc,
) *Verifier {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	v := &Verifier{
		nonces: nonces,
		logger: logger,
		now:    time.Now,
		window: FreshnessWindow,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks a signed sign-in message end to end and records its
// nonce on success. The returned error is one of the package sentinel
// errors (possibly wrapped) so callers can surface a distinct reason.
//
// The nonce lookup before the insert is advisory only: two concurrent
// requests carrying the same nonce can both pass it. The insert's
// uniqueness constraint is the single source of truth, and a conflict
// there is reported as a replay even though the lookup passed.
func (v *Verifier) Verify(
	ctx context.Context,
	publicKey string,
	rawMessage string,
	signature []byte,
	participantID string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := ParseMessage(rawMessage)
	if msg.Nonce == "" || msg.IssuedAt == "" {
		v.logger.Warn(
			"sign-in message missing required fields",
			"component", "siws",
			"participant", participantID,
		)
		return ErrMalformedMessage
	}
	issuedAt, err := msg.IssuedAtTime()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	drift := v.now().Sub(issuedAt).Abs()
	if drift > v.window {
		v.logger.Warn(
			"sign-in message outside freshness window",
			"component", "siws",
			"participant", participantID,
			"drift", drift.String(),
		)
		return ErrMessageExpired
	}
	// Advisory early exit; the insert below is the authoritative check
	exists, err := v.nonces.NonceExists(msg.Nonce)
	if err != nil {
		return fmt.Errorf("checking nonce: %w", err)
	}
	if exists {
		v.logger.Warn(
			"nonce reuse detected",
			"component", "siws",
			"participant", participantID,
		)
		return ErrNonceReplayed
	}
	pubKeyBytes := base58.Decode(publicKey)
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return ErrBadPublicKey
	}
	if len(signature) != ed25519.SignatureSize {
		return ErrBadSignature
	}
	if !ed25519.Verify(pubKeyBytes, []byte(rawMessage), signature) {
		v.logger.Warn(
			"signature verification failed",
			"component", "siws",
			"participant", participantID,
		)
		return ErrBadSignature
	}
	if err := v.nonces.InsertNonce(msg.Nonce, participantID); err != nil {
		if errors.Is(err, ErrNonceReplayed) {
			// Lost the race against a concurrent request using the
			// same nonce
			v.logger.Warn(
				"nonce insert conflict",
				"component", "siws",
				"participant", participantID,
			)
			return ErrNonceReplayed
		}
		return fmt.Errorf("recording nonce: %w", err)
	}
	v.logger.Info(
		"sign-in verification successful",
		"component", "siws",
		"participant", participantID,
	)
	return nil
}
