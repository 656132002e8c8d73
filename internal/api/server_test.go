// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vitalis/internal/api"
	"github.com/taibuivan/vitalis/internal/challenge"
	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/internal/platform/constants"
	"github.com/taibuivan/vitalis/internal/platform/sec"
	"github.com/taibuivan/vitalis/internal/records"
	"github.com/taibuivan/vitalis/internal/report"
	"github.com/taibuivan/vitalis/pkg/ident"
)

const (
	testEmail  = "carol@example.com"
	testUserID = "user-carol"
)

type corsPolicy struct{}

func (corsPolicy) IsDevelopment() bool            { return false }
func (corsPolicy) AllowsOrigin(origin string) bool { return origin == "https://app.vitalis.app" }

type envelope struct {
	Data    json.RawMessage     `json:"data"`
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details"`
}

func newTestServer(t *testing.T, health api.HealthDependencies) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now().UTC()

	challenges := challenge.NewService(
		challenge.NewMemoryRepository(),
		challenge.NewMemoryThrottle(),
		challenge.NewLogSender(logger),
		challenge.Settings{
			AccessTTL:    10 * time.Minute,
			DownloadTTL:  15 * time.Minute,
			MaxAttempts:  5,
			IssueLimit:   100,
			IssueWindow:  15 * time.Minute,
			StoreTimeout: time.Second,
			ExposeCode:   true,
		},
		logger,
	)

	directory := records.NewMemoryDirectory()
	directory.Register(testEmail, ident.Email, testUserID)

	diet := records.NewMemoryDietSource()
	diet.Add(testUserID, records.Meal{ID: "m1", Name: "porridge", Calories: 420, EatenAt: now.Add(-2 * time.Hour)})
	fitness := records.NewMemoryFitnessSource()
	fitness.Add(testUserID, records.Workout{ID: "w1", Activity: "swim", DurationMinutes: 45, CaloriesBurned: 500, PerformedAt: now.Add(-26 * time.Hour)})
	mental := records.NewMemoryMentalHealthSource()
	mental.Add(testUserID, records.MoodEntry{ID: "e1", Score: 7, RecordedAt: now.Add(-3 * time.Hour)})

	tokens, err := sec.NewTokenService("http-test-token-secret")
	require.NoError(t, err)

	service := report.NewService(report.Dependencies{
		Challenges: challenges,
		Flows:      report.NewMemoryFlowStore(30 * time.Minute),
		Directory:  directory,
		Aggregator: report.NewAggregator(report.Sources{Diet: diet, Fitness: fitness, MentalHealth: mental}, time.Second),
		Keys:       sec.NewKeyDeriver("http-test-master-secret", "salt", 2),
		Tokens:     tokens,
	}, report.Settings{TokenTTL: time.Hour, StoreTimeout: time.Second}, logger)

	liveness, readiness := api.NewHealthHandlers(health, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := api.NewServer(ctx, api.Options{
		Port:      "0",
		CORS:      corsPolicy{},
		RateRPS:   1000,
		RateBurst: 1000,
	}, logger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Report:    report.NewHandler(service),
	})
	return server.Handler()
}

func post(t *testing.T, handler http.Handler, path string, body any) (int, envelope) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/reports"+path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	var decoded envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded), recorder.Body.String())
	return recorder.Code, decoded
}

func dataField(t *testing.T, response envelope, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(response.Data, target))
}

func TestReportFlowOverHTTP(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	// 1. Access code
	status, response := post(t, handler, "/access/otp", map[string]string{"identifier": testEmail, "identifier_type": "email"})
	require.Equal(t, http.StatusOK, status, response.Error)
	var issued struct {
		Issued    bool      `json:"issued"`
		ExpiresAt time.Time `json:"expires_at"`
		Code      string    `json:"code"`
	}
	dataField(t, response, &issued)
	assert.True(t, issued.Issued)
	assert.Len(t, issued.Code, 6)

	status, _ = post(t, handler, "/access/confirm", map[string]string{"identifier": testEmail, "code": issued.Code})
	require.Equal(t, http.StatusOK, status)

	// 2. Generate
	status, response = post(t, handler, "/generate", map[string]any{"identifier": testEmail, "days": 7})
	require.Equal(t, http.StatusCreated, status, response.Error)
	var encrypted report.EncryptedReport
	dataField(t, response, &encrypted)
	assert.Equal(t, testUserID, encrypted.UserID)
	assert.Equal(t, report.TypeAll, encrypted.ReportType)
	assert.Equal(t, 7, encrypted.PeriodDays)
	assert.NotContains(t, encrypted.Ciphertext, "porridge")

	// 3. Download code
	status, response = post(t, handler, "/download/otp", map[string]string{"identifier": testEmail})
	require.Equal(t, http.StatusOK, status, response.Error)
	dataField(t, response, &issued)

	status, _ = post(t, handler, "/download/confirm", map[string]string{"identifier": testEmail, "code": issued.Code})
	require.Equal(t, http.StatusOK, status)

	// 4. Decrypt both ways
	status, byUser := post(t, handler, "/decrypt", map[string]string{
		"identifier": testEmail, "ciphertext": encrypted.Ciphertext, "user_id": testUserID,
	})
	require.Equal(t, http.StatusOK, status, byUser.Error)

	status, byToken := post(t, handler, "/decrypt/token", map[string]string{
		"identifier": testEmail, "ciphertext": encrypted.Ciphertext, "decryption_token": encrypted.DecryptionToken,
	})
	require.Equal(t, http.StatusOK, status, byToken.Error)
	assert.JSONEq(t, string(byUser.Data), string(byToken.Data))

	var aggregated report.AggregatedReport
	dataField(t, byUser, &aggregated)
	require.NotNil(t, aggregated.Diet)
	assert.Equal(t, "porridge", aggregated.Diet.Meals[0].Name)
	require.NotNil(t, aggregated.Fitness)
	assert.Equal(t, 45, aggregated.Fitness.TotalMinutes)

	// 5. Wrong user id on an unlocked flow
	status, response = post(t, handler, "/decrypt", map[string]string{
		"identifier": testEmail, "ciphertext": encrypted.Ciphertext, "user_id": "someone-else",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperr.CodeDecryptionFailed, response.Code)
}

func TestReportHTTPValidation(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "unknown identifier type",
			path:   "/access/otp",
			body:   map[string]string{"identifier": testEmail, "identifier_type": "fax"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "unknown field",
			path:   "/access/otp",
			body:   map[string]string{"identifier": testEmail, "identifier_type": "email", "extra": "x"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "code must be six digits",
			path:   "/access/confirm",
			body:   map[string]string{"identifier": testEmail, "code": "12ab"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "days and range together",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail, "days": 7, "start_date": "2026-01-01", "end_date": "2026-01-31"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "days out of range",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail, "days": 400},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "range longer than a year",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail, "start_date": "2024-01-01", "end_date": "2025-06-01"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "end before start",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail, "start_date": "2026-02-01", "end_date": "2026-01-01"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "unknown report type",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail, "report_type": "sleep"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
		{
			name:   "generate without a verified flow",
			path:   "/generate",
			body:   map[string]any{"identifier": testEmail},
			status: http.StatusConflict,
			code:   apperr.CodeStateConflict,
		},
		{
			name:   "token decrypt requires a token",
			path:   "/decrypt/token",
			body:   map[string]string{"identifier": testEmail, "ciphertext": "abc"},
			status: http.StatusBadRequest,
			code:   apperr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, response := post(t, handler, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, response.Code)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		health     api.HealthDependencies
		wantStatus int
		wantState  string
	}{
		{
			name:       "all checks pass",
			health:     api.HealthDependencies{CheckDatabase: func(context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
		{
			name: "a failing dependency degrades readiness",
			health: api.HealthDependencies{
				CheckDatabase: func(context.Context) error { return nil },
				CheckCache:    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, tt.health)

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, recorder.Code)

			var response envelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			var data map[string]any
			dataField(t, response, &data)
			assert.Equal(t, tt.wantState, data[constants.FieldStatus])

			recorder = httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
		})
	}
}

func TestCORS(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{name: "allowed origin", origin: "https://app.vitalis.app", allowed: true},
		{name: "foreign origin", origin: "https://evil.example", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/generate", nil)
			request.Header.Set(constants.HeaderOrigin, tt.origin)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusNoContent, recorder.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
