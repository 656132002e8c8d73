// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// OTPDigits is the length of every one-time passcode.
const OTPDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random 6-digit numeric code, zero-padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("sec: generating code: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// HashCode returns the hex SHA-256 digest stored in place of a raw code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeMatches compares a submitted code against a stored digest in constant time.
func CodeMatches(code, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(digest)) == 1
}
