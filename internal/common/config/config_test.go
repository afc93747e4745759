package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkcreds/membership/internal/common/config"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "bn254", cfg.ZKP.Curve)
	require.Equal(t, "credential-membership-v1", cfg.ZKP.CircuitName)
	require.Equal(t, 24, cfg.ZKP.ProofExpiryHours)
	require.Equal(t, 1024, cfg.ZKP.MaxCredentialsPerSet)
	require.Equal(t, 20, cfg.ZKP.MaxMerkleDepth)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := []byte("logging:\n  level: debug\nzkp:\n  proof_expiry_hours: 6\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 6, cfg.ZKP.ProofExpiryHours)
	require.Equal(t, "bn254", cfg.ZKP.Curve) // untouched default survives
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("MEMBERSHIP_LOGGING_LEVEL", "warn")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "verbose"},
		ZKP: config.ZKPConfig{
			Curve:                "bn254",
			CircuitName:          "c",
			ProofExpiryHours:     1,
			MaxCredentialsPerSet: 10,
			MaxMerkleDepth:       10,
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnsupportedCurve(t *testing.T) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "info"},
		ZKP: config.ZKPConfig{
			Curve:                "curve25519",
			CircuitName:          "c",
			ProofExpiryHours:     1,
			MaxCredentialsPerSet: 10,
			MaxMerkleDepth:       10,
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeLimits(t *testing.T) {
	base := config.ZKPConfig{
		Curve:                "bn254",
		CircuitName:          "c",
		ProofExpiryHours:     1,
		MaxCredentialsPerSet: 10,
		MaxMerkleDepth:       10,
	}

	withZeroExpiry := base
	withZeroExpiry.ProofExpiryHours = 0
	require.Error(t, (&config.Config{Logging: config.LoggingConfig{Level: "info"}, ZKP: withZeroExpiry}).Validate())

	withHugeDepth := base
	withHugeDepth.MaxMerkleDepth = 128
	require.Error(t, (&config.Config{Logging: config.LoggingConfig{Level: "info"}, ZKP: withHugeDepth}).Validate())

	withNegativeConcurrency := base
	withNegativeConcurrency.ProverConcurrency = -1
	require.Error(t, (&config.Config{Logging: config.LoggingConfig{Level: "info"}, ZKP: withNegativeConcurrency}).Validate())
}

func TestIsProduction(t *testing.T) {
	prod := &config.Config{Logging: config.LoggingConfig{Level: "info", Development: false}}
	require.True(t, prod.IsProduction())

	dev := &config.Config{Logging: config.LoggingConfig{Level: "debug", Development: false}}
	require.False(t, dev.IsProduction())

	explicit := &config.Config{Logging: config.LoggingConfig{Level: "info", Development: true}}
	require.False(t, explicit.IsProduction())
}
