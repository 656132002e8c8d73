// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"no rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"deadline", context.DeadlineExceeded, apperr.CodeServiceUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, apperr.CodeServiceUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, apperr.CodeServiceUnavailable},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperr.CodeInternal},
		{"unknown", errors.New("boom"), apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apperr.As(Wrap(tt.err, "test"))
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.wantCode, got.Code)
			}
		})
	}

	assert.NoError(t, Wrap(nil, "test"))
}
