// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

// Package config loads process configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/store"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Development-only fallbacks. Production must configure real values;
// Load fails closed there instead of silently using these.
const (
	devTokenSecret   = "dev-insecure-token-secret"
	devAdminPassword = "1"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	DBHost           string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort           int           `env:"DB_PORT" envDefault:"5432"`
	DBUser           string        `env:"DB_USER" envDefault:"mamiland"`
	DBPassword       string        `env:"DB_PASSWORD"`
	DBName           string        `env:"DB_NAME" envDefault:"mamiland"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`

	// TokenSecret signs session tokens. Rotating it invalidates all
	// outstanding tokens.
	TokenSecret string `env:"TOKEN_SECRET"`

	// AdminSeedPassword is the credential the bootstrap path seeds the
	// default administrator with.
	AdminSeedPassword string `env:"MAMILAND_ADMIN_PASSWORD"`
}

// Load reads configuration from the environment and applies
// development fallbacks where allowed.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "parse environment").Wrap(err)
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, oops.Code("CONFIG_INVALID").
			With("env", cfg.Env).
			Errorf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction)
	}

	if cfg.TokenSecret == "" {
		if cfg.IsProduction() {
			return Config{}, oops.Code("CONFIG_INVALID").
				Errorf("TOKEN_SECRET is required in production")
		}
		cfg.TokenSecret = devTokenSecret
	}

	if cfg.AdminSeedPassword == "" {
		if cfg.IsProduction() {
			return Config{}, oops.Code("CONFIG_INVALID").
				Errorf("MAMILAND_ADMIN_PASSWORD is required in production")
		}
		cfg.AdminSeedPassword = devAdminPassword
	}

	return cfg, nil
}

// IsProduction returns true for production deployments.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// StoreConfig maps the database settings onto a store.Config.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		Host:           c.DBHost,
		Port:           c.DBPort,
		User:           c.DBUser,
		Password:       c.DBPassword,
		Database:       c.DBName,
		ConnectTimeout: c.DBConnectTimeout,
		MaxConns:       c.DBMaxConns,
	}
}
