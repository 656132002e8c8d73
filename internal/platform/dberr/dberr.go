// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
)

// SQLSTATE classes that mean the database cannot serve the request right now.
const (
	sqlStateConnectionClass = "08"
	sqlStateResourcesClass  = "53"
	sqlStateOperatorClass   = "57"
)

// ErrNotFound is returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// Timeouts, cancellations and connection-class SQLSTATEs become SERVICE_UNAVAILABLE
// so callers can retry; anything else is INTERNAL_ERROR.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	cause := fmt.Errorf("%s: %w", action, err)

	// 2. Deadlines and unreachable servers are retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.ServiceUnavailable("Storage is temporarily unavailable", cause)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case sqlStateConnectionClass, sqlStateResourcesClass, sqlStateOperatorClass:
			return apperr.ServiceUnavailable("Storage is temporarily unavailable", cause)
		}
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return apperr.ServiceUnavailable("Storage is temporarily unavailable", cause)
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(cause)
}
