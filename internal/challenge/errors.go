// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"net/http"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
)

// Verification outcomes. Compare with errors.Is.
var (
	ErrNotFound         = apperr.New(apperr.CodeChallengeNotFound, "No pending code for this identifier", http.StatusNotFound)
	ErrExpired          = apperr.New(apperr.CodeChallengeExpired, "Code has expired", http.StatusGone)
	ErrAttemptsExceeded = apperr.New(apperr.CodeChallengeAttemptsExceeded, "Too many attempts", http.StatusTooManyRequests)
	ErrAlreadyUsed      = apperr.New(apperr.CodeChallengeAlreadyUsed, "Code has already been used", http.StatusConflict)
	ErrMismatch         = apperr.New(apperr.CodeChallengeMismatch, "Invalid code", http.StatusUnauthorized)
)
