// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, vault) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Flow modes accepted by REPORT_FLOW_MODE.
const (
	FlowTwoStep    = "two_step"
	FlowSingleStep = "single_step"
)

// # Configuration Schema

// Config holds all runtime configuration for the Vitalis API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Optional: the report flow falls back to process memory.
	RedisURL string `env:"REDIS_URL"`

	// Vault secrets. MasterSecret and DeploymentSalt feed key derivation;
	// TokenSecret signs and wraps decryption tokens.
	MasterSecret   string `env:"VAULT_MASTER_SECRET,required"`
	DeploymentSalt string `env:"VAULT_DEPLOYMENT_SALT,required"`
	TokenSecret    string `env:"VAULT_TOKEN_SECRET,required"`

	// KDFConcurrency caps simultaneous key derivations.
	KDFConcurrency int64 `env:"VAULT_KDF_CONCURRENCY" envDefault:"4"`

	// One-time passcodes
	AccessOTPTTL   time.Duration `env:"OTP_ACCESS_TTL"    envDefault:"10m"`
	DownloadOTPTTL time.Duration `env:"OTP_DOWNLOAD_TTL"  envDefault:"15m"`
	OTPMaxAttempts int           `env:"OTP_MAX_ATTEMPTS"  envDefault:"5"`
	OTPIssueLimit  int64         `env:"OTP_ISSUE_LIMIT"   envDefault:"5"`
	OTPIssueWindow time.Duration `env:"OTP_ISSUE_WINDOW"  envDefault:"15m"`

	// ExposeOTPCode returns raw codes in API responses. Development and tests only.
	ExposeOTPCode bool `env:"OTP_EXPOSE_CODE" envDefault:"false"`

	// Report pipeline
	FlowMode          string        `env:"REPORT_FLOW_MODE"     envDefault:"two_step"`
	SessionTTL        time.Duration `env:"REPORT_SESSION_TTL"   envDefault:"30m"`
	TokenTTL          time.Duration `env:"REPORT_TOKEN_TTL"     envDefault:"24h"`
	AllowPartial      bool          `env:"REPORT_ALLOW_PARTIAL" envDefault:"false"`
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT"        envDefault:"3s"`
	DataSourceTimeout time.Duration `env:"DATA_SOURCE_TIMEOUT"  envDefault:"3s"`

	// Object Storage (S3-compatible) for the ciphertext archive. Disabled when S3Bucket is empty.
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"     envDefault:"auto"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"vitalis.app"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.ExposeOTPCode {
		errs = append(errs, errors.New("OTP_EXPOSE_CODE must not be enabled in production"))
	}
	if c.FlowMode != FlowTwoStep && c.FlowMode != FlowSingleStep {
		errs = append(errs, fmt.Errorf("REPORT_FLOW_MODE %q is not one of %s, %s", c.FlowMode, FlowTwoStep, FlowSingleStep))
	}
	if len(c.MasterSecret) < 16 {
		errs = append(errs, errors.New("VAULT_MASTER_SECRET must be at least 16 bytes"))
	}
	if len(c.TokenSecret) < 16 {
		errs = append(errs, errors.New("VAULT_TOKEN_SECRET must be at least 16 bytes"))
	}
	if c.AccessOTPTTL <= 0 || c.DownloadOTPTTL <= 0 {
		errs = append(errs, errors.New("OTP TTLs must be positive"))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if c.KDFConcurrency < 1 {
		errs = append(errs, errors.New("VAULT_KDF_CONCURRENCY must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SingleStepFlow reports whether decryption is allowed without a download OTP.
func (c *Config) SingleStepFlow() bool {
	return c.FlowMode == FlowSingleStep
}

// ArchiveEnabled reports whether encrypted reports are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// AllowsOrigin reports whether a browser origin may call the API outside development.
// The origin host must equal the suffix or be a subdomain of it.
func (c *Config) AllowsOrigin(origin string) bool {
	if c.AllowedOriginSuffix == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	suffix := strings.ToLower(strings.TrimPrefix(c.AllowedOriginSuffix, "."))
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
