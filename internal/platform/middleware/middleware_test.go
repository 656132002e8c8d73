// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/vitalis/internal/platform/constants"
	"github.com/taibuivan/vitalis/internal/platform/ctxutil"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	t.Run("keeps a client supplied id", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(constants.HeaderXRequestID, "abc-123")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", recorder.Header().Get(constants.HeaderXRequestID))
	})

	t.Run("generates one when missing", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))
	})
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "x-real-ip wins", headers: map[string]string{constants.HeaderXRealIP: "10.0.0.1", constants.HeaderXForwardedFor: "10.0.0.2"}, remote: "192.0.2.1:80", want: "10.0.0.1"},
		{name: "first forwarded hop", headers: map[string]string{constants.HeaderXForwardedFor: " 10.0.0.2 , 10.0.0.3"}, remote: "192.0.2.1:80", want: "10.0.0.2"},
		{name: "remote address", remote: "192.0.2.1:80", want: "192.0.2.1"},
		{name: "remote address without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remote
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}
			assert.Equal(t, tt.want, RealIP(request))
		})
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimit(ctx, 1, 2)(okHandler)

	call := func(ip string) int {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = ip + ":1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, call("192.0.2.1"))
	assert.Equal(t, http.StatusOK, call("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("192.0.2.1"))
	assert.Equal(t, http.StatusOK, call("192.0.2.2"), "buckets are per client")
}

func TestIPLimiterSweep(t *testing.T) {
	limiter := &ipLimiter{clients: make(map[string]*rateLimitClient), rps: 1, burst: 1}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	limiter.allow("192.0.2.1", now)
	limiter.allow("192.0.2.2", now.Add(constants.RateLimitClientTTL))

	limiter.sweep(now.Add(constants.RateLimitClientTTL + time.Second))

	assert.NotContains(t, limiter.clients, "192.0.2.1")
	assert.Contains(t, limiter.clients, "192.0.2.2")
}

func TestPanicRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}

func TestStructuredLogger_InjectsLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	var injected *slog.Logger
	handler := StructuredLogger(base)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		injected = ctxutil.GetLogger(request.Context())
		writer.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.NotNil(t, injected)
	assert.NotSame(t, base, injected)
}
