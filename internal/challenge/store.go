// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"time"
)

// # Challenge Data Access

// Repository defines the data access contract for OTP challenges.
//
// Implementations must make Create, Attempt and MarkVerified individually
// atomic: concurrent verifications of the same challenge are serialized by
// the store, not by the caller.
type Repository interface {

	/*
		Create supersedes every live challenge for the same identifier and purpose,
		then persists challenge, in one operation.

		Parameters:
		  - context: context.Context
		  - challenge: *Challenge

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, challenge *Challenge) error

	/*
		Attempt increments the attempt counter of the latest non-superseded
		challenge and returns the updated record.

		Parameters:
		  - context: context.Context
		  - identifier: string (normalized)
		  - purpose: Purpose

		Returns:
		  - *Challenge: Record after the increment
		  - error: ErrNotFound when no challenge exists, or storage failures
	*/
	Attempt(context context.Context, identifier string, purpose Purpose) (*Challenge, error)

	/*
		MarkVerified flips verified from false to true.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - bool: false when the challenge was already verified (lost the race)
		  - error: Storage failures
	*/
	MarkVerified(context context.Context, id string) (bool, error)
}

// # Issuance Throttling

// Throttle counts events per key inside a fixed window.
type Throttle interface {

	/*
		Allow records one event for key and reports whether the count is still within limit.

		Parameters:
		  - context: context.Context
		  - key: string
		  - limit: int64
		  - window: time.Duration (starts at the first event)

		Returns:
		  - bool: true while the window holds at most limit events
		  - error: Backend failures
	*/
	Allow(context context.Context, key string, limit int64, window time.Duration) (bool, error)
}
