// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := &Challenge{ID: "c1", Identifier: "bob@example.com", Purpose: PurposeAccess, CreatedAt: now, ExpiresAt: now.Add(time.Minute), MaxAttempts: 5}
	second := &Challenge{ID: "c2", Identifier: "bob@example.com", Purpose: PurposeAccess, CreatedAt: now, ExpiresAt: now.Add(time.Minute), MaxAttempts: 5}

	require.NoError(t, repository.Create(ctx, first))
	require.NoError(t, repository.Create(ctx, second))

	t.Run("attempt targets the newest live challenge", func(t *testing.T) {
		got, err := repository.Attempt(ctx, "bob@example.com", PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, "c2", got.ID)
		assert.Equal(t, 1, got.Attempts)

		got, err = repository.Attempt(ctx, "bob@example.com", PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
	})

	t.Run("caller copies are detached", func(t *testing.T) {
		assert.Equal(t, 0, first.Attempts)
		assert.False(t, first.Superseded)
	})

	t.Run("mark verified is a compare-and-swap", func(t *testing.T) {
		swapped, err := repository.MarkVerified(ctx, "c2")
		require.NoError(t, err)
		assert.True(t, swapped)

		swapped, err = repository.MarkVerified(ctx, "c2")
		require.NoError(t, err)
		assert.False(t, swapped)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := repository.Attempt(ctx, "carol@example.com", PurposeAccess)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryThrottle(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	throttle := NewMemoryThrottle().WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		allowed, err := throttle.Allow(context.Background(), "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, _ := throttle.Allow(context.Background(), "k", 3, time.Minute)
	assert.False(t, allowed)

	now = now.Add(time.Minute)
	allowed, _ = throttle.Allow(context.Background(), "k", 3, time.Minute)
	assert.True(t, allowed)
}
