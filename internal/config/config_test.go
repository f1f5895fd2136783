package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:                 "production",
		Port:                "8460",
		JWTSecret:           "a-strong-secret-of-at-least-32-chars",
		DBPassword:          "a-strong-db-password",
		DBSSLMode:           "require",
		AdminEmails:         "ops@senyo.test",
		AdminTokenTTLHours:  12,
		ClientTokenTTLHours: 168,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero admin token TTL", func(c *Config) { c.AdminTokenTTLHours = 0 }, true},
		{"negative client token TTL", func(c *Config) { c.ClientTokenTTLHours = -1 }, true},
		{"default JWT secret in production", func(c *Config) {
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"short JWT secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"default DB password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"no operator allow-list in production", func(c *Config) {
			c.AdminAllowlistFile = ""
			c.AdminEmails = ""
		}, true},
		{"dev operator bootstrap in production", func(c *Config) { c.DevBootstrapOperator = true }, true},
		{"allow-list file alone satisfies production", func(c *Config) {
			c.AdminEmails = ""
			c.AdminAllowlistFile = "/etc/senyo/admins.yml"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_DevelopmentIsLenient(t *testing.T) {
	// Short secrets and missing allow-lists only warn outside production.
	c := &Config{
		Env:                 "development",
		Port:                "8460",
		JWTSecret:           "short",
		AdminTokenTTLHours:  12,
		ClientTokenTTLHours: 168,
	}
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("ADMIN_EMAILS")
	defer os.Unsetenv("ADMIN_TOKEN_TTL_HOURS")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("ADMIN_EMAILS", "ops@senyo.test")
	os.Setenv("ADMIN_TOKEN_TTL_HOURS", "6")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ops@senyo.test", c.AdminEmails)
	assert.Equal(t, 6, c.AdminTokenTTLHours)
	// Untouched keys keep their defaults.
	assert.Equal(t, "8460", c.Port)
	assert.Equal(t, 168, c.ClientTokenTTLHours)
}
