// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ident_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/vitalis/pkg/ident"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercases", "Alice@Example.COM", "alice@example.com", false},
		{"trims", "  bob@vitalis.app \n", "bob@vitalis.app", false},
		{"full-width folds", "ｃａｒｏｌ@example.com", "carol@example.com", false},
		{"no at sign", "alice.example.com", "", true},
		{"two at signs", "a@b@example.com", "", true},
		{"no domain dot", "alice@localhost", "", true},
		{"inner space", "al ice@example.com", "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ident.NormalizeEmail(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ident.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already e164", "+84901234567", "+84901234567", false},
		{"formatted", "+1 (415) 555-0100", "+14155550100", false},
		{"double zero prefix", "0044 20 7946 0958", "+442079460958", false},
		{"national number", "0901234567", "", true},
		{"letters", "+1 415 CALL NOW", "", true},
		{"too short", "+1234", "", true},
		{"too long", "+1234567890123456", "", true},
		{"plus in the middle", "12+34567890", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ident.NormalizePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ident.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := ident.Normalize(ident.Email, "Dan@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "dan@example.com", got)

	_, err = ident.Normalize(ident.Type("fax"), "123")
	assert.ErrorIs(t, err, ident.ErrInvalid)

	assert.True(t, ident.Phone.Valid())
	assert.False(t, ident.Type("fax").Valid())
}

func TestCanonical(t *testing.T) {
	got, kind, err := ident.Canonical(" Erin@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "erin@example.com", got)
	assert.Equal(t, ident.Email, kind)

	got, kind, err = ident.Canonical("+44 20 7946 0958")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", got)
	assert.Equal(t, ident.Phone, kind)

	_, _, err = ident.Canonical("nonsense")
	assert.ErrorIs(t, err, ident.ErrInvalid)
}
