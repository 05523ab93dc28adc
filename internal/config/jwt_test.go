package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-0123")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("JWT_ISSUER", "")

	config, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key-0123", config.Secret)
	assert.Equal(t, 24, config.ExpirationHours)
	assert.Equal(t, DefaultJWTIssuer, config.Issuer)
}

func TestNewJWTConfig_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-0123")
	t.Setenv("JWT_EXPIRATION_HOURS", "72")
	t.Setenv("JWT_ISSUER", "staging")

	config, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 72, config.ExpirationHours)
	assert.Equal(t, "staging", config.Issuer)
}

func TestNewJWTConfig_Errors(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		expiration string
		errMsg     string
	}{
		{"missing secret", "", "24", "JWT_SECRET is required"},
		{"short secret", "short", "24", "at least 16 characters"},
		{"non-numeric expiration", "test-secret-key-0123", "abc", "invalid JWT_EXPIRATION_HOURS"},
		{"zero expiration", "test-secret-key-0123", "0", "at least 1 hour"},
		{"negative expiration", "test-secret-key-0123", "-3", "at least 1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			_, err := NewJWTConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
