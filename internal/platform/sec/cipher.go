// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrDecryptionFailed is the only error [Decrypt] returns.
// Short input, a wrong key and a tampered ciphertext must look the same to callers.
var ErrDecryptionFailed = errors.New("sec: decryption failed")

// Encrypt seals plaintext with AES-256-GCM and returns nonce || ciphertext || tag.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sec: generating nonce: %w", err)
	}

	// Seal appends to nonce, yielding the nonce-prefixed layout in one allocation.
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by [Encrypt].
func Decrypt(key, payload []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	nonceSize := aead.NonceSize()
	if len(payload) < nonceSize+aead.Overhead() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sec: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sec: creating cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sec: creating gcm: %w", err)
	}
	return aead, nil
}
