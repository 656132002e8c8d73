// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vitalis/internal/challenge"
	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/pkg/ident"
)

const testIdentifier = "alice@example.com"

type captureSender struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (sender *captureSender) Send(_ context.Context, _ string, _ ident.Type, code string) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.codes = append(sender.codes, code)
	return sender.err
}

func (sender *captureSender) last() string {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return sender.codes[len(sender.codes)-1]
}

type fixture struct {
	service *challenge.Service
	sender  *captureSender
	now     time.Time
}

func newFixture(t *testing.T, mutate func(*challenge.Settings)) *fixture {
	t.Helper()

	settings := challenge.Settings{
		AccessTTL:    10 * time.Minute,
		DownloadTTL:  15 * time.Minute,
		MaxAttempts:  5,
		IssueLimit:   100,
		IssueWindow:  15 * time.Minute,
		StoreTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&settings)
	}

	f := &fixture{
		sender: &captureSender{},
		now:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	throttle := challenge.NewMemoryThrottle().WithClock(clock)
	f.service = challenge.NewService(challenge.NewMemoryRepository(), throttle, f.sender, settings, logger).WithClock(clock)
	return f
}

func (f *fixture) issue(t *testing.T, purpose challenge.Purpose) string {
	t.Helper()
	_, err := f.service.Issue(context.Background(), testIdentifier, ident.Email, purpose)
	require.NoError(t, err)
	return f.sender.last()
}

func wrong(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestIssue(t *testing.T) {
	t.Run("expiry follows purpose", func(t *testing.T) {
		f := newFixture(t, nil)

		access, err := f.service.Issue(context.Background(), testIdentifier, ident.Email, challenge.PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(10*time.Minute), access.ExpiresAt)

		download, err := f.service.Issue(context.Background(), testIdentifier, ident.Email, challenge.PurposeDownload)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(15*time.Minute), download.ExpiresAt)
	})

	t.Run("code hidden unless exposed", func(t *testing.T) {
		f := newFixture(t, nil)
		issued, err := f.service.Issue(context.Background(), testIdentifier, ident.Email, challenge.PurposeAccess)
		require.NoError(t, err)
		assert.Empty(t, issued.Code)

		exposed := newFixture(t, func(s *challenge.Settings) { s.ExposeCode = true })
		issued, err = exposed.service.Issue(context.Background(), testIdentifier, ident.Email, challenge.PurposeAccess)
		require.NoError(t, err)
		assert.Equal(t, exposed.sender.last(), issued.Code)
	})

	t.Run("delivery failure does not fail issuance", func(t *testing.T) {
		f := newFixture(t, nil)
		f.sender.err = errors.New("smtp down")

		code := f.issue(t, challenge.PurposeAccess)
		assert.NoError(t, f.service.Verify(context.Background(), testIdentifier, challenge.PurposeAccess, code))
	})

	t.Run("issuance throttle", func(t *testing.T) {
		f := newFixture(t, func(s *challenge.Settings) { s.IssueLimit = 2 })

		f.issue(t, challenge.PurposeAccess)
		f.issue(t, challenge.PurposeAccess)

		_, err := f.service.Issue(context.Background(), testIdentifier, ident.Email, challenge.PurposeAccess)
		assert.Equal(t, apperr.CodeRateLimited, apperr.As(err).Code)

		// Other purposes have their own budget.
		f.issue(t, challenge.PurposeDownload)

		// The window resets.
		f.now = f.now.Add(16 * time.Minute)
		f.issue(t, challenge.PurposeAccess)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("no challenge", func(t *testing.T) {
		f := newFixture(t, nil)
		err := f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, "123456")
		assert.ErrorIs(t, err, challenge.ErrNotFound)
	})

	t.Run("single use", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		require.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code))
		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code), challenge.ErrAlreadyUsed)
	})

	t.Run("already used wins over expired", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)
		require.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code))

		f.now = f.now.Add(time.Hour)
		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code), challenge.ErrAlreadyUsed)
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		f.now = f.now.Add(10*time.Minute + time.Second)
		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code), challenge.ErrExpired)
	})

	t.Run("valid at the expiry instant", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		f.now = f.now.Add(10 * time.Minute)
		assert.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code))
	})

	t.Run("wrong then right", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, wrong(code)), challenge.ErrMismatch)
		assert.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code))
	})

	t.Run("attempt exhaustion", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		for i := 0; i < 5; i++ {
			require.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, wrong(code)), challenge.ErrMismatch)
		}

		// The correct code no longer helps once the budget is spent.
		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code), challenge.ErrAttemptsExceeded)
	})

	t.Run("last attempt may succeed", func(t *testing.T) {
		f := newFixture(t, nil)
		code := f.issue(t, challenge.PurposeAccess)

		for i := 0; i < 4; i++ {
			require.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, wrong(code)), challenge.ErrMismatch)
		}
		assert.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code))
	})

	t.Run("new code supersedes the old", func(t *testing.T) {
		f := newFixture(t, nil)
		first := f.issue(t, challenge.PurposeAccess)
		second := f.issue(t, challenge.PurposeAccess)
		if first == second {
			t.Skip("identical random codes")
		}

		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, first), challenge.ErrMismatch)
		assert.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, second))
	})

	t.Run("purposes are independent", func(t *testing.T) {
		f := newFixture(t, nil)
		access := f.issue(t, challenge.PurposeAccess)

		assert.ErrorIs(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeDownload, access), challenge.ErrNotFound)
		assert.NoError(t, f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, access))
	})

	t.Run("concurrent correct submissions succeed once", func(t *testing.T) {
		f := newFixture(t, func(s *challenge.Settings) { s.MaxAttempts = 50 })
		code := f.issue(t, challenge.PurposeAccess)

		var successes, alreadyUsed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := f.service.Verify(ctx, testIdentifier, challenge.PurposeAccess, code)
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, challenge.ErrAlreadyUsed):
					alreadyUsed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(19), alreadyUsed.Load())
	})
}

func TestMask(t *testing.T) {
	assert.Equal(t, "a****@example.com", challenge.Mask("alice@example.com"))
	assert.Equal(t, "*@example.com", challenge.Mask("a@example.com"))
	assert.Equal(t, "+84******567", challenge.Mask("+84901234567"))
}
