// Package config loads process configuration the way the distributed
// prover this was adapted from does it: viper, mapstructure tags, layered
// defaults/file/env, and a fail-fast Validate pass.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the membership-proof core.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	ZKP     ZKPConfig     `mapstructure:"zkp"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level       string `mapstructure:"level"` // e.g., "debug", "info", "warn", "error"
	Development bool   `mapstructure:"development"`
}

// ZKPConfig defines zero-knowledge proof settings and the credential-set
// limits enumerated in the wire spec's configuration table.
type ZKPConfig struct {
	Curve        string `mapstructure:"curve"`         // e.g., "bn254"
	CircuitName  string `mapstructure:"circuit_name"`  // logical circuit identifier
	CircuitsPath string `mapstructure:"circuits_path"` // where artifacts are read from

	ProofExpiryHours     int `mapstructure:"proof_expiry_hours"`
	MaxCredentialsPerSet int `mapstructure:"max_credentials_per_set"`
	MaxMerkleDepth       int `mapstructure:"max_merkle_depth"`

	ProverConcurrency int `mapstructure:"prover_concurrency"` // 0 = runtime.NumCPU()
}

// Load reads configuration from an optional YAML file layered under
// defaults and environment variables. Priority: env vars > config file >
// defaults, the standard 12-factor precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			// File not found is OK - we'll use defaults + env vars.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MEMBERSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults establishes sensible defaults that work out-of-the-box for
// local development and testing.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("zkp.curve", "bn254")
	v.SetDefault("zkp.circuit_name", "credential-membership-v1")
	v.SetDefault("zkp.circuits_path", "./circuits")
	v.SetDefault("zkp.proof_expiry_hours", 24)
	v.SetDefault("zkp.max_credentials_per_set", 1024)
	v.SetDefault("zkp.max_merkle_depth", 20)
	v.SetDefault("zkp.prover_concurrency", 0)
}

// Validate checks configuration invariants at startup so bad config fails
// fast instead of surfacing as a confusing runtime error.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validCurves := map[string]bool{"bn254": true, "bls12-381": true, "bls12-377": true, "bw6-761": true}
	if !validCurves[c.ZKP.Curve] {
		return fmt.Errorf("unsupported curve: %s", c.ZKP.Curve)
	}

	if c.ZKP.CircuitName == "" {
		return fmt.Errorf("zkp.circuit_name must not be empty")
	}

	if c.ZKP.ProofExpiryHours <= 0 {
		return fmt.Errorf("zkp.proof_expiry_hours must be positive")
	}

	if c.ZKP.MaxCredentialsPerSet < 1 || c.ZKP.MaxCredentialsPerSet > 1<<20 {
		return fmt.Errorf("zkp.max_credentials_per_set out of range: %d", c.ZKP.MaxCredentialsPerSet)
	}

	if c.ZKP.MaxMerkleDepth < 1 || c.ZKP.MaxMerkleDepth > 64 {
		return fmt.Errorf("zkp.max_merkle_depth out of range: %d", c.ZKP.MaxMerkleDepth)
	}

	if c.ZKP.ProverConcurrency < 0 {
		return fmt.Errorf("zkp.prover_concurrency must not be negative")
	}

	return nil
}

// IsProduction reports whether the logging configuration indicates a
// production deployment rather than local debugging: the level is not
// "debug" and Development is off.
func (c *Config) IsProduction() bool {
	return c.Logging.Level != "debug" && !c.Logging.Development
}
