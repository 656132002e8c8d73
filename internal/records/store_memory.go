// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/vitalis/pkg/ident"
)

// memorySource keeps records per user and filters them by timestamp.
type memorySource[T any] struct {
	mu     sync.RWMutex
	byUser map[string][]T
	at     func(T) time.Time
}

func (source *memorySource[T]) setup(at func(T) time.Time) {
	source.byUser = make(map[string][]T)
	source.at = at
}

func (source *memorySource[T]) add(userID string, items ...T) {
	source.mu.Lock()
	defer source.mu.Unlock()

	merged := append(source.byUser[userID], items...)
	slices.SortStableFunc(merged, func(a, b T) int { return source.at(a).Compare(source.at(b)) })
	source.byUser[userID] = merged
}

func (source *memorySource[T]) fetch(ctx context.Context, userID string, start, end time.Time) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source.mu.RLock()
	defer source.mu.RUnlock()

	out := []T{}
	for _, item := range source.byUser[userID] {
		at := source.at(item)
		if at.Before(start) || at.After(end) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// MemoryDietSource is an in-process [DietSource].
type MemoryDietSource struct{ memorySource[Meal] }

// NewMemoryDietSource creates an empty diet source.
func NewMemoryDietSource() *MemoryDietSource {
	source := &MemoryDietSource{}
	source.setup(func(m Meal) time.Time { return m.EatenAt })
	return source
}

// Add stores meals for userID.
func (source *MemoryDietSource) Add(userID string, meals ...Meal) { source.add(userID, meals...) }

// FetchRecords implements [DietSource].
func (source *MemoryDietSource) FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]Meal, error) {
	return source.fetch(ctx, userID, start, end)
}

// MemoryFitnessSource is an in-process [FitnessSource].
type MemoryFitnessSource struct{ memorySource[Workout] }

// NewMemoryFitnessSource creates an empty fitness source.
func NewMemoryFitnessSource() *MemoryFitnessSource {
	source := &MemoryFitnessSource{}
	source.setup(func(w Workout) time.Time { return w.PerformedAt })
	return source
}

// Add stores workouts for userID.
func (source *MemoryFitnessSource) Add(userID string, workouts ...Workout) {
	source.add(userID, workouts...)
}

// FetchRecords implements [FitnessSource].
func (source *MemoryFitnessSource) FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]Workout, error) {
	return source.fetch(ctx, userID, start, end)
}

// MemoryMentalHealthSource is an in-process [MentalHealthSource].
type MemoryMentalHealthSource struct{ memorySource[MoodEntry] }

// NewMemoryMentalHealthSource creates an empty mental-health source.
func NewMemoryMentalHealthSource() *MemoryMentalHealthSource {
	source := &MemoryMentalHealthSource{}
	source.setup(func(e MoodEntry) time.Time { return e.RecordedAt })
	return source
}

// Add stores mood entries for userID.
func (source *MemoryMentalHealthSource) Add(userID string, entries ...MoodEntry) {
	source.add(userID, entries...)
}

// FetchRecords implements [MentalHealthSource].
func (source *MemoryMentalHealthSource) FetchRecords(ctx context.Context, userID string, start, end time.Time) ([]MoodEntry, error) {
	return source.fetch(ctx, userID, start, end)
}

// # Directory

// MemoryDirectory is an in-process [Directory].
type MemoryDirectory struct {
	mu      sync.RWMutex
	byIdent map[string]string
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{byIdent: make(map[string]string)}
}

// Register maps a normalized identifier to userID.
func (directory *MemoryDirectory) Register(identifier string, identifierType ident.Type, userID string) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	directory.byIdent[string(identifierType)+":"+identifier] = userID
}

// ResolveUser implements [Directory].
func (directory *MemoryDirectory) ResolveUser(_ context.Context, identifier string, identifierType ident.Type) (string, error) {
	directory.mu.RLock()
	defer directory.mu.RUnlock()

	userID, found := directory.byIdent[string(identifierType)+":"+identifier]
	if !found {
		return "", ErrUnknownIdentifier
	}
	return userID, nil
}
