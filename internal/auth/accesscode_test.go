// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamiland/mamiland/internal/auth"
)

func TestGenerateCode(t *testing.T) {
	t.Run("produces codes of the right shape", func(t *testing.T) {
		code, err := auth.GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, auth.CodeLength)
		for _, r := range code {
			valid := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, valid, "unexpected character %q in code %q", r, code)
		}
	})

	t.Run("produces distinct codes", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			code, err := auth.GenerateCode()
			require.NoError(t, err)
			assert.False(t, seen[code], "duplicate code %q in 100 draws", code)
			seen[code] = true
		}
	})
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC123", auth.NormalizeCode("abc123"))
	assert.Equal(t, "ABC123", auth.NormalizeCode("  Abc123\n"))
	assert.Equal(t, "", auth.NormalizeCode("   "))
}

func TestAccessCode_IsExpired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	code := auth.AccessCode{ExpiresAt: now.Add(auth.CodeExpiry)}

	assert.False(t, code.IsExpired(now))
	assert.False(t, code.IsExpired(now.Add(auth.CodeExpiry)))
	assert.True(t, code.IsExpired(now.Add(auth.CodeExpiry+time.Second)))
}
