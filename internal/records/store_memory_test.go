// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vitalis/internal/records"
	"github.com/taibuivan/vitalis/pkg/ident"
)

func TestMemoryDietSource(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source := records.NewMemoryDietSource()
	source.Add("u1",
		records.Meal{ID: "late", EatenAt: day.Add(48 * time.Hour)},
		records.Meal{ID: "early", EatenAt: day},
		records.Meal{ID: "outside", EatenAt: day.Add(-time.Hour)},
	)
	source.Add("u2", records.Meal{ID: "other-user", EatenAt: day})

	meals, err := source.FetchRecords(context.Background(), "u1", day, day.Add(48*time.Hour))
	require.NoError(t, err)

	ids := []string{}
	for _, meal := range meals {
		ids = append(ids, meal.ID)
	}
	assert.Equal(t, []string{"early", "late"}, ids)

	t.Run("empty window is an empty slice", func(t *testing.T) {
		meals, err := source.FetchRecords(context.Background(), "nobody", day, day)
		require.NoError(t, err)
		assert.NotNil(t, meals)
		assert.Empty(t, meals)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := source.FetchRecords(ctx, "u1", day, day)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryDirectory(t *testing.T) {
	directory := records.NewMemoryDirectory()
	directory.Register("alice@example.com", ident.Email, "u1")

	userID, err := directory.ResolveUser(context.Background(), "alice@example.com", ident.Email)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = directory.ResolveUser(context.Background(), "alice@example.com", ident.Phone)
	assert.ErrorIs(t, err, records.ErrUnknownIdentifier)
}
