package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Port:                  "8480",
		Env:                   "test",
		JWTSecret:             "test-secret-that-is-long-enough-for-checks",
		DBPassword:            "password",
		ResubmissionLimit:     3,
		MaxSubmissionsPerUser: 20,
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := validTestConfig()
	require.NoError(t, cfg.Validate())

	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.ResubmissionLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionChecks(t *testing.T) {
	cfg := validTestConfig()
	cfg.Env = "production"
	cfg.DBPassword = "s0mething-strong"
	cfg.StorageAccessKey = "ak"
	cfg.StorageSecretKey = "sk"
	require.NoError(t, cfg.Validate())

	cfg.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Env = "production"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate())

	cfg = validTestConfig()
	cfg.Env = "production"
	cfg.DBPassword = "s0mething-strong"
	assert.Error(t, cfg.Validate(), "missing storage credentials should fail in production")
}

func TestAdminEmailSet(t *testing.T) {
	cfg := &Config{AdminEmails: "Admin@Example.com, other@example.com ,,"}
	set := cfg.AdminEmailSet()
	assert.Len(t, set, 2)
	_, ok := set["admin@example.com"]
	assert.True(t, ok)
	_, ok = set["other@example.com"]
	assert.True(t, ok)
}

func TestIsEmailEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.IsEmailEnabled())
	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPFrom = "noreply@example.com"
	assert.True(t, cfg.IsEmailEnabled())
}
