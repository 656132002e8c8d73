// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a process-local [Repository] used by tests and by
// single-instance development servers.
type MemoryRepository struct {
	mu         sync.Mutex
	challenges []*Challenge
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create supersedes live challenges for the same identifier and purpose and stores a copy.
func (repository *MemoryRepository) Create(_ context.Context, challenge *Challenge) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.challenges {
		if existing.Identifier == challenge.Identifier && existing.Purpose == challenge.Purpose {
			existing.Superseded = true
		}
	}

	stored := *challenge
	repository.challenges = append(repository.challenges, &stored)
	return nil
}

// Attempt increments the latest live challenge and returns a copy of it.
func (repository *MemoryRepository) Attempt(_ context.Context, identifier string, purpose Purpose) (*Challenge, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	// Newest entries are at the end.
	for i := len(repository.challenges) - 1; i >= 0; i-- {
		existing := repository.challenges[i]
		if existing.Identifier != identifier || existing.Purpose != purpose || existing.Superseded {
			continue
		}

		existing.Attempts++
		snapshot := *existing
		return &snapshot, nil
	}

	return nil, ErrNotFound
}

// MarkVerified flips verified if it is still false.
func (repository *MemoryRepository) MarkVerified(_ context.Context, id string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.challenges {
		if existing.ID != id {
			continue
		}
		if existing.Verified {
			return false, nil
		}
		existing.Verified = true
		return true, nil
	}

	return false, ErrNotFound
}

// # In-Memory Throttle

type throttleWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryThrottle is a process-local fixed-window [Throttle].
type MemoryThrottle struct {
	mu      sync.Mutex
	windows map[string]*throttleWindow
	now     func() time.Time
}

// NewMemoryThrottle creates an empty throttle using the wall clock.
func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{
		windows: make(map[string]*throttleWindow),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (throttle *MemoryThrottle) WithClock(now func() time.Time) *MemoryThrottle {
	throttle.now = now
	return throttle
}

// Allow counts one event for key.
func (throttle *MemoryThrottle) Allow(_ context.Context, key string, limit int64, window time.Duration) (bool, error) {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	now := throttle.now()

	// Drop expired windows while we hold the lock so the map cannot grow without bound.
	for existingKey, existing := range throttle.windows {
		if !now.Before(existing.resetAt) {
			delete(throttle.windows, existingKey)
		}
	}

	current, found := throttle.windows[key]
	if !found {
		current = &throttleWindow{resetAt: now.Add(window)}
		throttle.windows[key] = current
	}

	current.count++
	return current.count <= limit, nil
}
