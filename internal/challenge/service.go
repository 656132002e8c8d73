// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/internal/platform/constants"
	"github.com/taibuivan/vitalis/internal/platform/sec"
	"github.com/taibuivan/vitalis/pkg/ident"
	"github.com/taibuivan/vitalis/pkg/uuid"
)

// # Contracts & Types

// Settings holds the tunables of the challenge lifecycle.
type Settings struct {
	AccessTTL    time.Duration
	DownloadTTL  time.Duration
	MaxAttempts  int
	IssueLimit   int64
	IssueWindow  time.Duration
	StoreTimeout time.Duration

	// ExposeCode returns raw codes from Issue. Never enabled in production.
	ExposeCode bool
}

// ttl returns the lifetime of a challenge issued for purpose.
func (settings Settings) ttl(purpose Purpose) time.Duration {
	if purpose == PurposeDownload {
		return settings.DownloadTTL
	}
	return settings.AccessTTL
}

// Service issues and verifies challenges.
//
// # Review Process
//
// Verification order is part of the API contract: clients rely on seeing
// CHALLENGE_ALREADY_USED before CHALLENGE_EXPIRED for a redeemed code.
type Service struct {
	repository Repository
	throttle   Throttle
	sender     Sender
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(repository Repository, throttle Throttle, sender Sender, settings Settings, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		throttle:   throttle,
		sender:     sender,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for expiry decisions.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Issuance

/*
Issue generates a new code for identifier, supersedes older ones for the same
purpose, persists it and hands it to the Sender.

Description: Delivery failures are logged and do not fail issuance; the code
remains valid so the user can request delivery again or use an exposed code.

Parameters:
  - context: context.Context
  - identifier: string (normalized)
  - identifierType: ident.Type
  - purpose: Purpose

Returns:
  - *Issued: Expiry (and the raw code when exposure is enabled)
  - error: RATE_LIMITED, or storage failures
*/
func (service *Service) Issue(context context.Context, identifier string, identifierType ident.Type, purpose Purpose) (*Issued, error) {

	// Cap issuance per identifier before touching the store
	throttleKey := constants.RedisPrefixOTPThrottle + string(purpose) + ":" + identifier
	allowed, err := service.throttle.Allow(context, throttleKey, service.settings.IssueLimit, service.settings.IssueWindow)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Code issuance is temporarily unavailable", err)
	}
	if !allowed {
		return nil, apperr.RateLimited(int(service.settings.IssueWindow.Seconds()))
	}

	code, err := sec.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("challenge_service_generate_failed: %w", err)
	}

	now := service.now()
	challenge := &Challenge{
		ID:             uuid.New(),
		Identifier:     identifier,
		IdentifierType: identifierType,
		CodeHash:       sec.HashCode(code),
		Purpose:        purpose,
		CreatedAt:      now,
		ExpiresAt:      now.Add(service.settings.ttl(purpose)),
		MaxAttempts:    service.settings.MaxAttempts,
	}

	storeCtx, cancel := service.storeContext(context)
	defer cancel()

	if err := service.repository.Create(storeCtx, challenge); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "otp_issued",
		slog.String("challenge_id", challenge.ID),
		slog.String("purpose", string(purpose)),
		slog.Time("expires_at", challenge.ExpiresAt),
	)

	if err := service.sender.Send(context, identifier, identifierType, code); err != nil {
		service.logger.WarnContext(context, "otp_delivery_failed",
			slog.String("challenge_id", challenge.ID),
			slog.Any("error", err),
		)
	}

	issued := &Issued{ChallengeID: challenge.ID, ExpiresAt: challenge.ExpiresAt}
	if service.settings.ExposeCode {
		issued.Code = code
	}
	return issued, nil
}

// # Verification

/*
Verify redeems code against the latest live challenge for identifier and purpose.

Description: The attempt is counted before any check so a guess always costs
budget. Checks run in a fixed order: not found, already used, expired,
attempts exceeded, mismatch. Success is committed by a compare-and-swap so
two concurrent correct submissions yield one success and one ErrAlreadyUsed.

Parameters:
  - context: context.Context
  - identifier: string (normalized)
  - purpose: Purpose
  - code: string

Returns:
  - error: One of the challenge sentinels, or storage failures
*/
func (service *Service) Verify(context context.Context, identifier string, purpose Purpose, code string) error {
	storeCtx, cancel := service.storeContext(context)
	defer cancel()

	challenge, err := service.repository.Attempt(storeCtx, identifier, purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch {
	case challenge.Verified:
		return ErrAlreadyUsed
	case challenge.Expired(service.now()):
		return ErrExpired
	case challenge.Attempts > challenge.MaxAttempts:
		return ErrAttemptsExceeded
	case !sec.CodeMatches(code, challenge.CodeHash):
		service.logger.InfoContext(context, "otp_mismatch",
			slog.String("challenge_id", challenge.ID),
			slog.Int("attempts", challenge.Attempts),
		)
		return ErrMismatch
	}

	swapped, err := service.repository.MarkVerified(storeCtx, challenge.ID)
	if err != nil {
		return err
	}
	if !swapped {
		return ErrAlreadyUsed
	}

	service.logger.InfoContext(context, "otp_verified",
		slog.String("challenge_id", challenge.ID),
		slog.String("purpose", string(purpose)),
	)
	return nil
}

func (service *Service) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if service.settings.StoreTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, service.settings.StoreTimeout)
}
