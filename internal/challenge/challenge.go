// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package challenge implements one-time passcode (OTP) challenges.

A challenge proves that the caller controls an email address or phone number
right now. It is issued for one purpose, lives for a short TTL, tolerates a
bounded number of wrong guesses and can be redeemed exactly once.

Architecture:

  - Service: Issue and Verify, the only entry points used by the report flow.
  - Repository: Durable challenge records with atomic attempt and verify updates.
  - Throttle: Caps how often codes are issued per identifier.
  - Sender: Hands the raw code to a delivery channel.

Raw codes exist only in memory between generation and delivery; the store
keeps a SHA-256 digest.
*/
package challenge

import (
	"time"

	"github.com/taibuivan/vitalis/pkg/ident"
)

// # Domain Entities

// Purpose distinguishes the two gates of the report flow.
type Purpose string

const (
	PurposeAccess   Purpose = "access"
	PurposeDownload Purpose = "download"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeAccess || p == PurposeDownload
}

// Challenge is a single issued passcode.
type Challenge struct {
	ID             string     `json:"id"`
	Identifier     string     `json:"identifier"`
	IdentifierType ident.Type `json:"identifier_type"`
	CodeHash       string     `json:"-"`
	Purpose        Purpose    `json:"purpose"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Verified       bool       `json:"verified"`
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	Superseded     bool       `json:"superseded"`
}

// Expired reports whether now is past the challenge's expiry.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Issued is what the caller learns about a freshly issued challenge.
type Issued struct {
	ChallengeID string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`

	// Code is only populated when code exposure is enabled (development and tests).
	Code string `json:"code,omitempty"`
}
