package services

import (
	"strings"
	"unicode"
)

// Password requirements
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores anything longer
)

// commonPasswords are rejected regardless of length.
var commonPasswords = map[string]bool{
	"12345678":   true,
	"123456789":  true,
	"1234567890": true,
	"password":   true,
	"password1":  true,
	"senha123":   true,
	"senha1234":  true,
	"qwertyui":   true,
	"abcd1234":   true,
	"advogado":   true,
}

// ValidatePassword checks a new password for field. It must be 8 to 72
// bytes long, not a single repeated character, not a well known password
// and not the account email.
func ValidatePassword(field, password, email string) error {
	if len(password) < MinPasswordLength {
		return invalid(field, "must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return invalid(field, "must be at most 72 bytes")
	}

	lowered := strings.ToLower(password)
	if commonPasswords[lowered] {
		return invalid(field, "is too common")
	}
	if email != "" && lowered == strings.ToLower(strings.TrimSpace(email)) {
		return invalid(field, "must differ from the email")
	}

	first := []rune(password)[0]
	repeated := true
	for _, r := range password {
		if r != first {
			repeated = false
			break
		}
	}
	if repeated {
		return invalid(field, "must not repeat a single character")
	}

	for _, r := range password {
		if unicode.IsControl(r) {
			return invalid(field, "must not contain control characters")
		}
	}
	return nil
}

// IsWeakPassword is a helper to check if a password is weak without returning specific error
func IsWeakPassword(password string) bool {
	return ValidatePassword("password", password, "") != nil
}
