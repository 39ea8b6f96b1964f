package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// sealedPrefix marks values encrypted by SealSecret. Values without it are
// stored plaintext from before a key was configured.
const sealedPrefix = "enc:v1:"

var (
	// ErrEncryptionKeyNotSet indicates a sealed value was read without DATA_ENCRYPTION_KEY
	ErrEncryptionKeyNotSet = errors.New("DATA_ENCRYPTION_KEY is not set")
	// ErrInvalidCiphertext indicates the ciphertext is malformed or too short
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

// ConfigureSecrets installs the AES-256 key used for provider credentials.
// The key is base64 and must decode to 32 bytes. An empty key disables sealing.
func ConfigureSecrets(encoded string) error {
	var key []byte
	if encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode encryption key: %w", err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("encryption key must be 32 bytes (got %d bytes)", len(decoded))
		}
		key = decoded
	}
	secretMu.Lock()
	secretKey = key
	secretMu.Unlock()
	return nil
}

func currentKey() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return secretKey
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SealSecret encrypts plaintext with AES-256-GCM when a key is configured.
// Without a key, and for empty strings, the value is returned unchanged.
func SealSecret(plaintext string) (string, error) {
	key := currentKey()
	if plaintext == "" || key == nil || strings.HasPrefix(plaintext, sealedPrefix) {
		return plaintext, nil
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Nonce is prepended to the ciphertext
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenSecret reverses SealSecret. Unsealed values pass through.
func OpenSecret(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	key := currentKey()
	if key == nil {
		return "", ErrEncryptionKeyNotSet
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, cipherData := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// GenerateEncryptionKey returns a new random 32-byte key, base64 encoded,
// suitable for DATA_ENCRYPTION_KEY.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
