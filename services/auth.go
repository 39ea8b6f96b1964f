package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/config"
	"legalflow/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired and wrong-type tokens
	ErrInvalidToken = errors.New("invalid token")
)

// TokenClaims is the JWT payload
type TokenClaims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"` // access or refresh
	jwt.RegisteredClaims
}

// TokenPair is returned by the token endpoints
type TokenPair struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int64  `json:"expires_in"`
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// Authenticate checks email and password and stamps the last login time.
func Authenticate(database *gorm.DB, email, password string, now time.Time) (*models.User, error) {
	var user models.User
	err := database.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive || !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if err := database.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now
	return &user, nil
}

// IssueTokens signs an access and a refresh token for the user.
func IssueTokens(cfg *config.Config, user *models.User, now time.Time) (*TokenPair, error) {
	access, err := signToken(cfg, user.ID, TokenTypeAccess, now, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(cfg, user.ID, TokenTypeRefresh, now, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		Access:    access,
		Refresh:   refresh,
		ExpiresIn: int64(cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func signToken(cfg *config.Config, userID, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry and token type.
func ParseToken(cfg *config.Config, raw, expectedType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTokens exchanges a refresh token for a new pair.
func RefreshTokens(database *gorm.DB, cfg *config.Config, refresh string, now time.Time) (*TokenPair, error) {
	claims, err := ParseToken(cfg, refresh, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := database.First(&user, "id = ? AND is_active = ?", claims.UserID, true).Error; err != nil {
		return nil, ErrInvalidToken
	}
	return IssueTokens(cfg, &user, now)
}

// ChangePassword replaces the password after checking the current one.
func ChangePassword(database *gorm.DB, user *models.User, current, next string) error {
	if !VerifyPassword(user.Password, current) {
		return invalid("current_password", "does not match")
	}
	if err := ValidatePassword("new_password", next, user.Email); err != nil {
		return err
	}
	hashed, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := database.Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.Password = hashed
	return nil
}
