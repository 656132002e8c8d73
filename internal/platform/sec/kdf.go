// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec isolates the security-sensitive primitives of the vault.

It owns every piece of code that touches key material so the domain packages
only ever see opaque byte slices and tokens.

Building blocks:

  - KDF: per-user AES keys derived from the master secret (PBKDF2-HMAC-SHA256).
  - Cipher: AES-256-GCM sealing with a random nonce prefix.
  - Envelope: signed, expiring bearer tokens that carry a wrapped report key.
  - Codes: OTP generation and at-rest digests.

Nothing in this package logs or returns key material inside an error.
*/
package sec

import (
	"context"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/semaphore"
)

// KDF parameters. Changing any of these invalidates every issued ciphertext.
const (
	KDFIterations = 100_000
	KeySize       = 32
)

// DeriveKey returns the 32-byte AES key for userID.
//
// The salt is deploymentSalt || ":" || userID, so two users never share a key
// and the same user always gets the same one.
func DeriveKey(masterSecret, deploymentSalt []byte, userID string) []byte {
	salt := make([]byte, 0, len(deploymentSalt)+1+len(userID))
	salt = append(salt, deploymentSalt...)
	salt = append(salt, ':')
	salt = append(salt, userID...)

	return pbkdf2.Key(masterSecret, salt, KDFIterations, KeySize, sha256.New)
}

// KeyDeriver runs [DeriveKey] with a bound on concurrent derivations.
//
// PBKDF2 at this iteration count costs tens of milliseconds of CPU; without a
// bound a burst of report requests would starve every other handler.
type KeyDeriver struct {
	masterSecret   []byte
	deploymentSalt []byte
	slots          *semaphore.Weighted
}

// NewKeyDeriver creates a [KeyDeriver] that allows at most concurrency parallel derivations.
func NewKeyDeriver(masterSecret, deploymentSalt string, concurrency int64) *KeyDeriver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &KeyDeriver{
		masterSecret:   []byte(masterSecret),
		deploymentSalt: []byte(deploymentSalt),
		slots:          semaphore.NewWeighted(concurrency),
	}
}

// Derive waits for a free slot and derives the key for userID.
// It returns the context error if ctx ends while waiting.
func (deriver *KeyDeriver) Derive(ctx context.Context, userID string) ([]byte, error) {
	if err := deriver.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("sec: waiting for kdf slot: %w", err)
	}
	defer deriver.slots.Release(1)

	return DeriveKey(deriver.masterSecret, deriver.deploymentSalt, userID), nil
}
