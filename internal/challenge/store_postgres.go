// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/vitalis/internal/platform/dberr"
)

// PostgresRepository implements [Repository] on the vault.otp_challenge table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const challengeColumns = `
	id, identifier, identifiertype, codehash, purpose, createdat, expiresat,
	verified, attempts, maxattempts, superseded`

/*
Create supersedes older challenges and inserts the new one in a single transaction.

Parameters:
  - context: context.Context
  - challenge: *Challenge

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, challenge *Challenge) error {
	const supersedeQuery = `
		UPDATE vault.otp_challenge
		SET superseded = TRUE
		WHERE identifier = $1 AND purpose = $2 AND superseded = FALSE`

	const insertQuery = `
		INSERT INTO vault.otp_challenge (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	err := pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(context, supersedeQuery, challenge.Identifier, challenge.Purpose); err != nil {
			return fmt.Errorf("supersede: %w", err)
		}

		_, err := tx.Exec(context, insertQuery,
			challenge.ID,
			challenge.Identifier,
			challenge.IdentifierType,
			challenge.CodeHash,
			challenge.Purpose,
			challenge.CreatedAt,
			challenge.ExpiresAt,
			challenge.Verified,
			challenge.Attempts,
			challenge.MaxAttempts,
			challenge.Superseded,
		)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})

	return dberr.Wrap(err, "postgres_challenge_create_failed")
}

/*
Attempt locks the latest live challenge, increments its attempt counter and
returns the row as updated.

Parameters:
  - context: context.Context
  - identifier: string
  - purpose: Purpose

Returns:
  - *Challenge: Updated record
  - error: ErrNotFound or connectivity errors
*/
func (repository *PostgresRepository) Attempt(context context.Context, identifier string, purpose Purpose) (*Challenge, error) {
	const query = `
		UPDATE vault.otp_challenge
		SET attempts = attempts + 1
		WHERE id = (
			SELECT id FROM vault.otp_challenge
			WHERE identifier = $1 AND purpose = $2 AND superseded = FALSE
			ORDER BY createdat DESC, id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING ` + challengeColumns

	challenge := &Challenge{}
	err := repository.pool.QueryRow(context, query, identifier, purpose).Scan(
		&challenge.ID,
		&challenge.Identifier,
		&challenge.IdentifierType,
		&challenge.CodeHash,
		&challenge.Purpose,
		&challenge.CreatedAt,
		&challenge.ExpiresAt,
		&challenge.Verified,
		&challenge.Attempts,
		&challenge.MaxAttempts,
		&challenge.Superseded,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dberr.Wrap(err, "postgres_challenge_attempt_failed")
	}

	return challenge, nil
}

/*
MarkVerified performs the verified false-to-true compare-and-swap.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - bool: true when this call performed the transition
  - error: Connectivity errors
*/
func (repository *PostgresRepository) MarkVerified(context context.Context, id string) (bool, error) {
	const query = `
		UPDATE vault.otp_challenge
		SET verified = TRUE, verifiedat = NOW()
		WHERE id = $1 AND verified = FALSE`

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return false, dberr.Wrap(err, "postgres_challenge_mark_verified_failed")
	}

	return tag.RowsAffected() == 1, nil
}
