// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/vitalis/internal/challenge"
	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/internal/platform/sec"
	"github.com/taibuivan/vitalis/internal/records"
	"github.com/taibuivan/vitalis/pkg/ident"
	"github.com/taibuivan/vitalis/pkg/uuid"
)

// # Contracts & Types

// Challenges issues and verifies one-time passcodes.
type Challenges interface {
	Issue(ctx context.Context, identifier string, identifierType ident.Type, purpose challenge.Purpose) (*challenge.Issued, error)
	Verify(ctx context.Context, identifier string, purpose challenge.Purpose, code string) error
}

// KeyDeriver returns the report key for a user.
type KeyDeriver interface {
	Derive(ctx context.Context, userID string) ([]byte, error)
}

// TokenIssuer seals report keys into bearer tokens and opens them again.
type TokenIssuer interface {
	Issue(reportKey []byte, reportID string, timeToLive time.Duration) (string, error)
	Open(token string) ([]byte, string, error)
}

// Dependencies wires a [Service]. Archive is optional.
type Dependencies struct {
	Challenges Challenges
	Flows      FlowStore
	Directory  records.Directory
	Aggregator *Aggregator
	Keys       KeyDeriver
	Tokens     TokenIssuer
	Archive    Archive
}

// Settings holds the flow policy.
type Settings struct {
	// SingleStep lets Decrypt run straight after GenerateReport without a download code.
	SingleStep bool

	// AllowPartial lets callers opt into reports with unavailable sections.
	AllowPartial bool

	TokenTTL     time.Duration
	StoreTimeout time.Duration
}

// GenerateInput is the validated body of a generate request.
type GenerateInput struct {
	Identifier string
	ReportType Type
	Window     Window
	Partial    bool
}

// Service runs the report state machine.
//
// # Review Process
//
// Every transition is a compare-and-swap on the flow revision read at the start
// of the call. A failed step returns before the swap, so the state never moves
// on an error.
type Service struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies, settings Settings, logger *slog.Logger) *Service {
	return &Service{deps: deps, settings: settings, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for flow timestamps.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Access Gate

/*
RequestAccess (re)starts the flow for identifier and issues an access code.

Description: Allowed from any state. The flow is only reset once the code was
issued, so a throttled request leaves an in-progress flow untouched.

Parameters:
  - context: context.Context
  - identifier: string (raw user input)
  - identifierType: ident.Type

Returns:
  - *challenge.Issued: Expiry (and code when exposed)
  - error: VALIDATION_ERROR, RATE_LIMITED, or storage failures
*/
func (service *Service) RequestAccess(context context.Context, identifier string, identifierType ident.Type) (*challenge.Issued, error) {
	normalized, err := ident.Normalize(identifierType, identifier)
	if err != nil {
		return nil, invalidIdentifier()
	}

	issued, err := service.deps.Challenges.Issue(context, normalized, identifierType, challenge.PurposeAccess)
	if err != nil {
		return nil, err
	}

	flow := &Flow{
		Identifier:     normalized,
		IdentifierType: identifierType,
		State:          StatePendingAccessOTP,
		Revision:       uuid.New(),
		UpdatedAt:      service.now().UTC(),
	}

	storeCtx, cancel := service.storeContext(context)
	defer cancel()

	if err := service.deps.Flows.Put(storeCtx, flow); err != nil {
		return nil, storeFailure(err)
	}

	return issued, nil
}

// ConfirmAccess redeems the access code and unlocks report generation.
func (service *Service) ConfirmAccess(context context.Context, identifier, code string) error {
	_, err := service.advance(context, identifier,
		[]State{StatePendingAccessOTP}, "Request an access code first",
		func(flow *Flow) error {
			if err := service.deps.Challenges.Verify(context, flow.Identifier, challenge.PurposeAccess, code); err != nil {
				return err
			}
			flow.State = StateAccessVerified
			return nil
		})
	return err
}

// # Generation

/*
GenerateReport aggregates, encrypts and tokenizes a report for the verified identifier.

Description: The owning account is resolved through the directory, never taken
from the request. The plaintext is sealed under the key derived for that
account; the token carries the same key wrapped under a server secret.

Parameters:
  - context: context.Context
  - input: GenerateInput

Returns:
  - *EncryptedReport: Ciphertext, token and metadata
  - error: STATE_CONFLICT, DATA_SOURCE_UNAVAILABLE, or storage failures
*/
func (service *Service) GenerateReport(context context.Context, input GenerateInput) (*EncryptedReport, error) {
	var encrypted *EncryptedReport

	_, err := service.advance(context, input.Identifier,
		[]State{StateAccessVerified}, "Confirm the access code before generating a report",
		func(flow *Flow) error {
			result, err := service.generate(context, flow, input)
			if err != nil {
				return err
			}

			encrypted = result
			flow.State = StateGenerated
			flow.UserID = result.UserID
			flow.ReportID = result.ReportID
			return nil
		})
	if err != nil {
		return nil, err
	}

	return encrypted, nil
}

func (service *Service) generate(ctx context.Context, flow *Flow, input GenerateInput) (*EncryptedReport, error) {
	storeCtx, cancel := service.storeContext(ctx)
	userID, err := service.deps.Directory.ResolveUser(storeCtx, flow.Identifier, flow.IdentifierType)
	cancel()
	if err != nil {
		return nil, storeFailure(err)
	}

	partial := input.Partial && service.settings.AllowPartial
	aggregated, err := service.deps.Aggregator.Aggregate(ctx, userID, input.ReportType, input.Window, partial)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(aggregated)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("report_service_marshal_failed: %w", err))
	}

	key, err := service.deriveKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := sec.Encrypt(key, plaintext)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("report_service_encrypt_failed: %w", err))
	}

	reportID := uuid.New()
	token, err := service.deps.Tokens.Issue(key, reportID, service.settings.TokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("report_service_token_failed: %w", err))
	}

	encrypted := &EncryptedReport{
		ReportID:            reportID,
		Ciphertext:          base64.StdEncoding.EncodeToString(ciphertext),
		DecryptionToken:     token,
		TokenExpiresAt:      aggregated.GeneratedAt.Add(service.settings.TokenTTL),
		UserID:              userID,
		ReportType:          aggregated.ReportType,
		GeneratedAt:         aggregated.GeneratedAt,
		PeriodDays:          aggregated.PeriodDays,
		StartDate:           aggregated.StartDate,
		EndDate:             aggregated.EndDate,
		UnavailableSections: aggregated.UnavailableSections,
	}

	// The archive is a convenience copy; losing it must not lose the report.
	if service.deps.Archive != nil {
		url, err := service.deps.Archive.Store(ctx, userID, reportID, ciphertext)
		if err != nil {
			service.logger.WarnContext(ctx, "report_archive_failed",
				slog.String("report_id", reportID),
				slog.Any("error", err),
			)
		} else {
			encrypted.ArchiveURL = url
		}
	}

	service.logger.InfoContext(ctx, "report_generated",
		slog.String("report_id", reportID),
		slog.String("report_type", string(aggregated.ReportType)),
		slog.Int("period_days", aggregated.PeriodDays),
		slog.Int("unavailable_sections", len(aggregated.UnavailableSections)),
	)

	return encrypted, nil
}

// # Download Gate

// RequestDownload issues a download code once a report exists.
func (service *Service) RequestDownload(context context.Context, identifier string) (*challenge.Issued, error) {
	var issued *challenge.Issued

	_, err := service.advance(context, identifier,
		[]State{StateGenerated, StatePendingDownloadOTP}, "Generate a report before requesting a download code",
		func(flow *Flow) error {
			result, err := service.deps.Challenges.Issue(context, flow.Identifier, flow.IdentifierType, challenge.PurposeDownload)
			if err != nil {
				return err
			}
			issued = result
			flow.State = StatePendingDownloadOTP
			return nil
		})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// ConfirmDownload redeems the download code and unlocks decryption.
func (service *Service) ConfirmDownload(context context.Context, identifier, code string) error {
	_, err := service.advance(context, identifier,
		[]State{StatePendingDownloadOTP}, "Request a download code first",
		func(flow *Flow) error {
			if err := service.deps.Challenges.Verify(context, flow.Identifier, challenge.PurposeDownload, code); err != nil {
				return err
			}
			flow.State = StateDownloadVerified
			return nil
		})
	return err
}

// # Decryption

/*
Decrypt re-derives the key for userID and opens ciphertext.

Description: userID must be the account the flow generated its report for.
Every failure, including a foreign userID, is reported as DECRYPTION_FAILED.

Parameters:
  - context: context.Context
  - identifier: string
  - ciphertext: string (base64)
  - userID: string

Returns:
  - []byte: The exact plaintext JSON that was encrypted
  - error: STATE_CONFLICT or DECRYPTION_FAILED
*/
func (service *Service) Decrypt(context context.Context, identifier, ciphertext, userID string) ([]byte, error) {
	var plaintext []byte

	_, err := service.advance(context, identifier, service.decryptStates(), service.decryptConflict(),
		func(flow *Flow) error {
			if userID != flow.UserID {
				return apperr.DecryptionFailed(errors.New("user id does not own this flow"))
			}

			key, err := service.deriveKey(context, userID)
			if err != nil {
				return err
			}

			result, err := open(key, ciphertext)
			if err != nil {
				return err
			}

			plaintext = result
			flow.State = StateDecrypted
			return nil
		})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "report_decrypted", slog.String("path", "user_id"))
	return plaintext, nil
}

// DecryptWithToken opens ciphertext with the key carried by a decryption token.
// The caller does not need to know the user id.
func (service *Service) DecryptWithToken(context context.Context, identifier, ciphertext, token string) ([]byte, error) {
	var plaintext []byte

	_, err := service.advance(context, identifier, service.decryptStates(), service.decryptConflict(),
		func(flow *Flow) error {
			key, _, err := service.deps.Tokens.Open(token)
			if err != nil {
				return apperr.DecryptionFailed(err)
			}

			result, err := open(key, ciphertext)
			if err != nil {
				return err
			}

			plaintext = result
			flow.State = StateDecrypted
			return nil
		})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "report_decrypted", slog.String("path", "token"))
	return plaintext, nil
}

func (service *Service) decryptStates() []State {
	if service.settings.SingleStep {
		return []State{StateGenerated, StatePendingDownloadOTP, StateDownloadVerified, StateDecrypted}
	}
	return []State{StateDownloadVerified, StateDecrypted}
}

func (service *Service) decryptConflict() string {
	if service.settings.SingleStep {
		return "Generate a report before decrypting"
	}
	return "Confirm the download code before decrypting"
}

// # Flow Mechanics

// advance loads the flow, checks it is in one of allowed, runs step on a copy
// and commits the copy with a compare-and-swap.
func (service *Service) advance(ctx context.Context, identifier string, allowed []State, conflict string, step func(flow *Flow) error) (*Flow, error) {
	normalized, _, err := ident.Canonical(identifier)
	if err != nil {
		return nil, invalidIdentifier()
	}

	storeCtx, cancel := service.storeContext(ctx)
	current, err := service.deps.Flows.Get(storeCtx, normalized)
	cancel()
	if err != nil {
		if errors.Is(err, ErrFlowNotFound) {
			return nil, apperr.StateConflict(conflict)
		}
		return nil, storeFailure(err)
	}

	if !current.In(allowed...) {
		return nil, apperr.StateConflict(conflict)
	}

	next := *current
	if err := step(&next); err != nil {
		return nil, err
	}

	next.Revision = uuid.New()
	next.UpdatedAt = service.now().UTC()

	storeCtx, cancel = service.storeContext(ctx)
	defer cancel()

	swapped, err := service.deps.Flows.CompareAndSwap(storeCtx, &next, current.Revision)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !swapped {
		return nil, apperr.StateConflict("The report flow changed or expired; start again")
	}

	return &next, nil
}

func (service *Service) deriveKey(ctx context.Context, userID string) ([]byte, error) {
	key, err := service.deps.Keys.Derive(ctx, userID)
	if err != nil {
		return nil, apperr.ServiceUnavailable("Key derivation is busy, retry shortly", err)
	}
	return key, nil
}

func (service *Service) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if service.settings.StoreTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, service.settings.StoreTimeout)
}

// open decodes and decrypts a base64 ciphertext. All failures look the same.
func open(key []byte, ciphertext string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, apperr.DecryptionFailed(err)
	}

	plaintext, err := sec.Decrypt(key, payload)
	if err != nil {
		return nil, apperr.DecryptionFailed(err)
	}
	return plaintext, nil
}

// storeFailure passes typed errors through and turns raw backend errors into a retryable 503.
func storeFailure(err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	return apperr.ServiceUnavailable("Storage is temporarily unavailable", err)
}

func invalidIdentifier() error {
	return apperr.ValidationError("Invalid identifier", apperr.FieldError{
		Field:   "identifier",
		Message: "must be an email address or an E.164 phone number",
	})
}
