// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vitalis/internal/challenge"
	requestutil "github.com/taibuivan/vitalis/internal/platform/request"
	"github.com/taibuivan/vitalis/internal/platform/respond"
	"github.com/taibuivan/vitalis/internal/platform/sec"
	"github.com/taibuivan/vitalis/internal/platform/validate"
	"github.com/taibuivan/vitalis/pkg/ident"
	"github.com/taibuivan/vitalis/pkg/pointer"
)

// # Field Identifiers

const (
	FieldIdentifier      = "identifier"
	FieldIdentifierType  = "identifier_type"
	FieldCode            = "code"
	FieldReportType      = "report_type"
	FieldDays            = "days"
	FieldStartDate       = "start_date"
	FieldEndDate         = "end_date"
	FieldCiphertext      = "ciphertext"
	FieldUserID          = "user_id"
	FieldDecryptionToken = "decryption_token"
)

// MaxIdentifierLength bounds raw identifiers before normalization.
const MaxIdentifierLength = 320

// DefaultPeriodDays applies when a generate request names neither days nor a date range.
const DefaultPeriodDays = 30

// # Definitions & Constructors

// Handler exposes the report flow over HTTP.
//
// # Scope
//
// Transport only: decoding, validation and status codes. Every decision about
// state, codes and keys is made by [Service].
type Handler struct {
	reportService *Service
	now           func() time.Time
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{reportService: service, now: time.Now}
}

// WithClock replaces the time source used to resolve relative windows.
func (handler *Handler) WithClock(now func() time.Time) *Handler {
	handler.now = now
	return handler
}

// Routes returns a [chi.Router] with the report flow endpoints.
//
// # Endpoints
//   - POST /access/otp        : Starts a flow and issues an access code.
//   - POST /access/confirm    : Redeems the access code.
//   - POST /generate          : Builds and encrypts the report.
//   - POST /download/otp      : Issues a download code.
//   - POST /download/confirm  : Redeems the download code.
//   - POST /decrypt           : Decrypts by user id.
//   - POST /decrypt/token     : Decrypts by bearer token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/access", func(r chi.Router) {
		r.Post("/otp", handler.requestAccess)
		r.Post("/confirm", handler.confirmAccess)
	})

	router.Post("/generate", handler.generate)

	router.Route("/download", func(r chi.Router) {
		r.Post("/otp", handler.requestDownload)
		r.Post("/confirm", handler.confirmDownload)
	})

	router.Route("/decrypt", func(r chi.Router) {
		r.Post("/", handler.decrypt)
		r.Post("/token", handler.decryptWithToken)
	})

	return router
}

// # Request Payloads

type accessOTPRequest struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifier_type"`
}

type confirmRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

type generateRequest struct {
	Identifier string `json:"identifier"`
	ReportType string `json:"report_type"`
	Days       *int   `json:"days"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Partial    bool   `json:"partial"`
}

type downloadOTPRequest struct {
	Identifier string `json:"identifier"`
}

type decryptRequest struct {
	Identifier string `json:"identifier"`
	Ciphertext string `json:"ciphertext"`
	UserID     string `json:"user_id"`
}

type decryptTokenRequest struct {
	Identifier      string `json:"identifier"`
	Ciphertext      string `json:"ciphertext"`
	DecryptionToken string `json:"decryption_token"`
}

// # Response Payloads

type issuedResponse struct {
	Issued    bool      `json:"issued"`
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}

type verifiedResponse struct {
	Verified bool `json:"verified"`
}

func newIssuedResponse(issued *challenge.Issued) issuedResponse {
	return issuedResponse{Issued: true, ExpiresAt: issued.ExpiresAt, Code: issued.Code}
}

/*
requestAccess starts (or restarts) a report flow.

POST /api/v1/reports/access/otp

Request:
  - Body: accessOTPRequest (Identifier, IdentifierType)

Response:
  - 200: issuedResponse
  - 400: VALIDATION_ERROR
  - 429: RATE_LIMITED
*/
func (handler *Handler) requestAccess(writer http.ResponseWriter, request *http.Request) {
	var input accessOTPRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		MaxLen(FieldIdentifier, input.Identifier, MaxIdentifierLength).
		OneOf(FieldIdentifierType, input.IdentifierType, string(ident.Email), string(ident.Phone))
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.reportService.RequestAccess(request.Context(), input.Identifier, ident.Type(input.IdentifierType))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newIssuedResponse(issued))
}

/*
confirmAccess redeems an access code.

POST /api/v1/reports/access/confirm

Response:
  - 200: verifiedResponse
  - 401/404/409/410/429: CHALLENGE_* errors
  - 409: STATE_CONFLICT
*/
func (handler *Handler) confirmAccess(writer http.ResponseWriter, request *http.Request) {
	input, ok := decodeConfirm(writer, request)
	if !ok {
		return
	}

	if err := handler.reportService.ConfirmAccess(request.Context(), input.Identifier, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, verifiedResponse{Verified: true})
}

/*
generate builds, encrypts and tokenizes a report.

POST /api/v1/reports/generate

Description: The window is either the last `days` days or the whole-day range
start_date..end_date. Naming both is rejected; naming neither means 30 days.

Response:
  - 201: EncryptedReport
  - 400: VALIDATION_ERROR
  - 409: STATE_CONFLICT
  - 503: DATA_SOURCE_UNAVAILABLE
*/
func (handler *Handler) generate(writer http.ResponseWriter, request *http.Request) {
	var input generateRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.ReportType == "" {
		input.ReportType = string(TypeAll)
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		OneOf(FieldReportType, input.ReportType, Types...)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	window, err := handler.resolveWindow(input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	encrypted, err := handler.reportService.GenerateReport(request.Context(), GenerateInput{
		Identifier: input.Identifier,
		ReportType: Type(input.ReportType),
		Window:     window,
		Partial:    input.Partial,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, encrypted)
}

func (handler *Handler) resolveWindow(input generateRequest) (Window, error) {
	hasRange := input.StartDate != "" || input.EndDate != ""

	if input.Days != nil && hasRange {
		return Window{}, validate.RequiredError(FieldDays, "Use either days or start_date/end_date, not both")
	}

	if !hasRange {
		days := pointer.Fallback(input.Days, DefaultPeriodDays)

		validator := &validate.Validator{}
		validator.Range(FieldDays, days, 1, MaxPeriodDays)
		if err := validator.Err(); err != nil {
			return Window{}, err
		}
		return LastDays(handler.now().UTC(), days), nil
	}

	validator := &validate.Validator{}
	validator.Required(FieldStartDate, input.StartDate).
		Required(FieldEndDate, input.EndDate)
	if input.StartDate != "" {
		validator.Date(FieldStartDate, input.StartDate)
	}
	if input.EndDate != "" {
		validator.Date(FieldEndDate, input.EndDate)
	}
	if err := validator.Err(); err != nil {
		return Window{}, err
	}

	start, _ := time.Parse(time.DateOnly, input.StartDate)
	end, _ := time.Parse(time.DateOnly, input.EndDate)

	window := DateRange(start, end)
	validator.Custom(FieldEndDate, end.Before(start), "Must not be before start_date").
		Custom(FieldEndDate, !end.Before(start) && window.Days > MaxRangeDays, "Range must not exceed 366 days")
	if err := validator.Err(); err != nil {
		return Window{}, err
	}

	return window, nil
}

/*
requestDownload issues a download code for a generated report.

POST /api/v1/reports/download/otp

Response:
  - 200: issuedResponse
  - 409: STATE_CONFLICT
  - 429: RATE_LIMITED
*/
func (handler *Handler) requestDownload(writer http.ResponseWriter, request *http.Request) {
	var input downloadOTPRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := (&validate.Validator{}).Required(FieldIdentifier, input.Identifier).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	issued, err := handler.reportService.RequestDownload(request.Context(), input.Identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, newIssuedResponse(issued))
}

// confirmDownload redeems a download code. POST /api/v1/reports/download/confirm
func (handler *Handler) confirmDownload(writer http.ResponseWriter, request *http.Request) {
	input, ok := decodeConfirm(writer, request)
	if !ok {
		return
	}

	if err := handler.reportService.ConfirmDownload(request.Context(), input.Identifier, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, verifiedResponse{Verified: true})
}

/*
decrypt returns the plaintext report by re-deriving the user's key.

POST /api/v1/reports/decrypt

Response:
  - 200: AggregatedReport (exact decrypted bytes under "data")
  - 401: DECRYPTION_FAILED
  - 409: STATE_CONFLICT
*/
func (handler *Handler) decrypt(writer http.ResponseWriter, request *http.Request) {
	var input decryptRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		Required(FieldCiphertext, input.Ciphertext).
		Required(FieldUserID, input.UserID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	plaintext, err := handler.reportService.Decrypt(request.Context(), input.Identifier, input.Ciphertext, input.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Raw(writer, plaintext)
}

// decryptWithToken returns the plaintext report using a decryption token. POST /api/v1/reports/decrypt/token
func (handler *Handler) decryptWithToken(writer http.ResponseWriter, request *http.Request) {
	var input decryptTokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		Required(FieldCiphertext, input.Ciphertext).
		Required(FieldDecryptionToken, input.DecryptionToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	plaintext, err := handler.reportService.DecryptWithToken(request.Context(), input.Identifier, input.Ciphertext, input.DecryptionToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Raw(writer, plaintext)
}

func decodeConfirm(writer http.ResponseWriter, request *http.Request) (confirmRequest, bool) {
	var input confirmRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return input, false
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		Digits(FieldCode, input.Code, sec.OTPDigits)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return input, false
	}

	return input, true
}
