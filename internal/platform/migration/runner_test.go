// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"postgres scheme", "postgres://vault:pw@db:5432/vitalis?sslmode=disable", "pgx5://vault:pw@db:5432/vitalis?sslmode=disable"},
		{"postgresql scheme", "postgresql://vault@db/vitalis", "pgx5://vault@db/vitalis"},
		{"already pgx5", "pgx5://vault@db/vitalis", "pgx5://vault@db/vitalis"},
		{"keyword dsn untouched", "host=db user=vault dbname=vitalis", "host=db user=vault dbname=vitalis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertToPgx5DSN(tt.dsn))
		})
	}
}
