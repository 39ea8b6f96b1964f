package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateJWTSecret(t *testing.T) {
	t.Run("InsecureDefaultRejected", func(t *testing.T) {
		assert.Error(t, ValidateJWTSecret("change-me", "development"))
		assert.Error(t, ValidateJWTSecret("SECRET", "production"))
		assert.Error(t, ValidateJWTSecret("", "production"))
	})

	t.Run("ShortSecretInProduction", func(t *testing.T) {
		assert.Error(t, ValidateJWTSecret("short-but-custom", "production"))
		assert.NoError(t, ValidateJWTSecret("short-but-custom", "development"))
	})

	t.Run("LongSecretInProduction", func(t *testing.T) {
		assert.NoError(t, ValidateJWTSecret("0123456789abcdef0123456789abcdef", "production"))
	})
}

func TestGenerateSecureSecret(t *testing.T) {
	a := GenerateSecureSecret()
	b := GenerateSecureSecret()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), MinJWTSecretLength)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LF_BOOL", "yes")
	t.Setenv("LF_BAD_BOOL", "maybe")
	t.Setenv("LF_INT", "50")
	t.Setenv("LF_BAD_INT", "-3")
	t.Setenv("LF_DURATION", "90m")

	assert.True(t, getEnvBool("LF_BOOL", false))
	assert.True(t, getEnvBool("LF_BAD_BOOL", true))
	assert.False(t, getEnvBool("LF_MISSING", false))
	assert.Equal(t, 50, getEnvInt("LF_INT", 20))
	assert.Equal(t, 20, getEnvInt("LF_BAD_INT", 20))
	assert.Equal(t, 90*time.Minute, getEnvDuration("LF_DURATION", time.Hour))
	assert.Equal(t, "fallback", getEnv("LF_MISSING", "fallback"))
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "America/Sao_Paulo"
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}
