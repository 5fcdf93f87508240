// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamiland/mamiland/internal/config"
	"github.com/mamiland/mamiland/pkg/errutil"
)

// clearEnv unsets every variable Load reads so ambient shell state
// cannot leak into assertions. t.Setenv registers the restore; the
// Unsetenv removes the variable for the test's duration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD",
		"DB_NAME", "DB_CONNECT_TIMEOUT", "DB_MAX_CONNS",
		"TOKEN_SECRET", "MAMILAND_ADMIN_PASSWORD",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply in development", func(t *testing.T) {
		clearEnv(t)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, config.EnvDevelopment, cfg.Env)
		assert.False(t, cfg.IsProduction())
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, 5432, cfg.DBPort)
		assert.Equal(t, 10*time.Second, cfg.DBConnectTimeout)
		assert.Equal(t, int32(10), cfg.DBMaxConns)
		// Development fallbacks kick in for the two secrets.
		assert.NotEmpty(t, cfg.TokenSecret)
		assert.NotEmpty(t, cfg.AdminSeedPassword)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("DB_CONNECT_TIMEOUT", "3s")
		t.Setenv("TOKEN_SECRET", "configured-secret")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "db.internal", cfg.DBHost)
		assert.Equal(t, 5433, cfg.DBPort)
		assert.Equal(t, 3*time.Second, cfg.DBConnectTimeout)
		assert.Equal(t, "configured-secret", cfg.TokenSecret)
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "staging")

		_, err := config.Load()
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("production requires token secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("MAMILAND_ADMIN_PASSWORD", "seed-password")

		_, err := config.Load()
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("production requires admin seed password", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("TOKEN_SECRET", "configured-secret")

		_, err := config.Load()
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("fully configured production loads", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("TOKEN_SECRET", "configured-secret")
		t.Setenv("MAMILAND_ADMIN_PASSWORD", "seed-password")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "configured-secret", cfg.TokenSecret)
		assert.Equal(t, "seed-password", cfg.AdminSeedPassword)
	})
}

func TestConfig_StoreConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "db-password")
	t.Setenv("DB_NAME", "mamiland_prod")

	cfg, err := config.Load()
	require.NoError(t, err)

	sc := cfg.StoreConfig()
	assert.Equal(t, "db.internal", sc.Host)
	assert.Equal(t, 5432, sc.Port)
	assert.Equal(t, "mamiland", sc.User)
	assert.Equal(t, "db-password", sc.Password)
	assert.Equal(t, "mamiland_prod", sc.Database)
	assert.Equal(t, 10*time.Second, sc.ConnectTimeout)
	assert.Equal(t, int32(10), sc.MaxConns)
}
