// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package records is the read-only view of the other agents' data.

The diet, fitness and mental-health agents own their tables; the vault only
reads from them through the Source interfaces below, and resolves verified
identifiers to account ids through the Directory.

Every Source returns records inside [start, end], oldest first.
*/
package records

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/pkg/ident"
)

// # Agent Records

// Meal is one logged meal from the diet agent.
type Meal struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Calories     int       `json:"calories"`
	ProteinGrams float64   `json:"protein_g"`
	CarbsGrams   float64   `json:"carbs_g"`
	FatGrams     float64   `json:"fat_g"`
	EatenAt      time.Time `json:"eaten_at"`
}

// Workout is one completed session from the fitness agent.
type Workout struct {
	ID              string    `json:"id"`
	Activity        string    `json:"activity"`
	DurationMinutes int       `json:"duration_minutes"`
	CaloriesBurned  int       `json:"calories_burned"`
	PerformedAt     time.Time `json:"performed_at"`
}

// MoodEntry is one check-in from the mental-health agent. Score is 1 (worst) to 10 (best).
type MoodEntry struct {
	ID         string    `json:"id"`
	Score      int       `json:"score"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// # Collaborator Contracts

// DietSource reads meals for a user.
type DietSource interface {
	FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]Meal, error)
}

// FitnessSource reads workouts for a user.
type FitnessSource interface {
	FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]Workout, error)
}

// MentalHealthSource reads mood entries for a user.
type MentalHealthSource interface {
	FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]MoodEntry, error)
}

// Directory maps a verified identifier to the owning account.
type Directory interface {
	ResolveUser(ctx context.Context, identifier string, identifierType ident.Type) (string, error)
}

// ErrUnknownIdentifier is returned when no active account owns the identifier.
var ErrUnknownIdentifier = apperr.New(apperr.CodeNotFound, "No account is registered for this identifier", http.StatusNotFound)
