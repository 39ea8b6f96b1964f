package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		email    string
		errMsg   string
	}{
		{name: "valid", password: "senha-segura-123"},
		{name: "valid accented", password: "ação-judicial"},
		{name: "too short", password: "abc123", errMsg: "must be at least 8 characters"},
		{name: "too long", password: strings.Repeat("ab", 40), errMsg: "must be at most 72 bytes"},
		{name: "common", password: "Senha123", errMsg: "is too common"},
		{name: "same as email", password: "Ana@Silva.adv.br", email: "ana@silva.adv.br", errMsg: "must differ from the email"},
		{name: "repeated", password: "aaaaaaaaaa", errMsg: "must not repeat a single character"},
		{name: "control character", password: "senha\x00segura", errMsg: "must not contain control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword("password", tt.password, tt.email)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, "password", valErr.Field)
			assert.Equal(t, tt.errMsg, valErr.Message)
		})
	}
}

func TestIsWeakPassword(t *testing.T) {
	assert.True(t, IsWeakPassword("12345678"))
	assert.False(t, IsWeakPassword("longenough"))
}
