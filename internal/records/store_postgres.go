// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/vitalis/internal/platform/database/schema"
	"github.com/taibuivan/vitalis/internal/platform/dberr"
	"github.com/taibuivan/vitalis/pkg/ident"
)

// # Directory

// PostgresDirectory resolves identifiers against users.account.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgreSQL implementation of the Directory.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

/*
ResolveUser returns the id of the active account owning identifier.

Parameters:
  - context: context.Context
  - identifier: string (normalized)
  - identifierType: ident.Type

Returns:
  - string: Account ID
  - error: ErrUnknownIdentifier or connectivity errors
*/
func (directory *PostgresDirectory) ResolveUser(context context.Context, identifier string, identifierType ident.Type) (string, error) {
	column := schema.UserAccount.Email
	if identifierType == ident.Phone {
		column = schema.UserAccount.Phone
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE lower(%s) = $1 AND %s IS NULL
		LIMIT 1`,
		schema.UserAccount.ID, schema.UserAccount.Table,
		column, schema.UserAccount.DeletedAt,
	)

	var userID string
	if err := directory.pool.QueryRow(context, query, identifier).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUnknownIdentifier
		}
		return "", dberr.Wrap(err, "resolve_user")
	}

	return userID, nil
}

// # Diet

// PostgresDietSource reads diet.meal.
type PostgresDietSource struct {
	pool *pgxpool.Pool
}

// NewPostgresDietSource creates a DietSource backed by PostgreSQL.
func NewPostgresDietSource(pool *pgxpool.Pool) *PostgresDietSource {
	return &PostgresDietSource{pool: pool}
}

// FetchRecords returns the user's meals eaten inside the window.
func (source *PostgresDietSource) FetchRecords(context context.Context, userID string, start, end time.Time) ([]Meal, error) {
	table := schema.DietMeal
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s BETWEEN $2 AND $3
		ORDER BY %s`,
		table.ID, table.Name, table.Calories, table.ProteinGrams, table.CarbsGrams, table.FatGrams, table.EatenAt,
		table.Table,
		table.UserID, table.EatenAt,
		table.EatenAt,
	)

	rows, err := source.pool.Query(context, query, userID, start, end)
	if err != nil {
		return nil, dberr.Wrap(err, "list_meals")
	}
	defer rows.Close()

	meals := []Meal{}
	for rows.Next() {
		var m Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.Calories, &m.ProteinGrams, &m.CarbsGrams, &m.FatGrams, &m.EatenAt); err != nil {
			return nil, dberr.Wrap(err, "scan_meal")
		}
		meals = append(meals, m)
	}

	return meals, dberr.Wrap(rows.Err(), "list_meals")
}

// # Fitness

// PostgresFitnessSource reads fitness.workout.
type PostgresFitnessSource struct {
	pool *pgxpool.Pool
}

// NewPostgresFitnessSource creates a FitnessSource backed by PostgreSQL.
func NewPostgresFitnessSource(pool *pgxpool.Pool) *PostgresFitnessSource {
	return &PostgresFitnessSource{pool: pool}
}

// FetchRecords returns the user's workouts performed inside the window.
func (source *PostgresFitnessSource) FetchRecords(context context.Context, userID string, start, end time.Time) ([]Workout, error) {
	table := schema.FitnessWorkout
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s BETWEEN $2 AND $3
		ORDER BY %s`,
		table.ID, table.Activity, table.DurationMinutes, table.CaloriesBurned, table.PerformedAt,
		table.Table,
		table.UserID, table.PerformedAt,
		table.PerformedAt,
	)

	rows, err := source.pool.Query(context, query, userID, start, end)
	if err != nil {
		return nil, dberr.Wrap(err, "list_workouts")
	}
	defer rows.Close()

	workouts := []Workout{}
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.Activity, &w.DurationMinutes, &w.CaloriesBurned, &w.PerformedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_workout")
		}
		workouts = append(workouts, w)
	}

	return workouts, dberr.Wrap(rows.Err(), "list_workouts")
}

// # Mental Health

// PostgresMentalHealthSource reads mental.moodentry.
type PostgresMentalHealthSource struct {
	pool *pgxpool.Pool
}

// NewPostgresMentalHealthSource creates a MentalHealthSource backed by PostgreSQL.
func NewPostgresMentalHealthSource(pool *pgxpool.Pool) *PostgresMentalHealthSource {
	return &PostgresMentalHealthSource{pool: pool}
}

// FetchRecords returns the user's mood entries recorded inside the window.
func (source *PostgresMentalHealthSource) FetchRecords(context context.Context, userID string, start, end time.Time) ([]MoodEntry, error) {
	table := schema.MentalMoodEntry
	query := fmt.Sprintf(`
		SELECT %s, %s, COALESCE(%s, ''), %s
		FROM %s
		WHERE %s = $1 AND %s BETWEEN $2 AND $3
		ORDER BY %s`,
		table.ID, table.Score, table.Note, table.RecordedAt,
		table.Table,
		table.UserID, table.RecordedAt,
		table.RecordedAt,
	)

	rows, err := source.pool.Query(context, query, userID, start, end)
	if err != nil {
		return nil, dberr.Wrap(err, "list_mood_entries")
	}
	defer rows.Close()

	entries := []MoodEntry{}
	for rows.Next() {
		var e MoodEntry
		if err := rows.Scan(&e.ID, &e.Score, &e.Note, &e.RecordedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_mood_entry")
		}
		entries = append(entries, e)
	}

	return entries, dberr.Wrap(rows.Err(), "list_mood_entries")
}
