package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// MinJWTSecretLength is the minimum required length for the signing secret in production
	MinJWTSecretLength = 32

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLibSQL   = "libsql"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string
	LogFormat   string
	Timezone    string
	PageSize    int

	// Database
	DatabaseDriver string
	DatabaseURL    string
	DBAuthToken    string

	// Auth
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent

	AllowedOrigins []string
	AppURL         string

	// R2 / S3 compatible storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	UploadDir         string

	ChromePath string

	// WhatsApp provider gateway
	WhatsAppAPITimeout time.Duration

	// Base64 AES-256 key for provider credentials at rest
	DataEncryptionKey string

	// Observability
	OTELEndpoint    string
	OTELServiceName string

	// Scheduled sweeps
	EnableScheduler       bool
	DeadlineAlertSpec     string
	FinancialReminderSpec string
	OverdueSweepSpec      string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")
	secret := getEnv("JWT_SECRET", "")

	if err := ValidateJWTSecret(secret, environment); err != nil {
		if environment == "production" {
			log.Fatal().Err(err).Msg("Refusing to start with an insecure JWT_SECRET")
		}
		log.Warn().Err(err).Msg("JWT_SECRET is insecure; acceptable only in development")
	}

	if secret == "" && environment != "production" {
		secret = GenerateSecureSecret()
		log.Info().Msg("Generated temporary JWT secret for development. Set JWT_SECRET for persistence.")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: environment,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", defaultLogFormat(environment)),
		Timezone:    getEnv("TIMEZONE", "America/Sao_Paulo"),
		PageSize:    getEnvInt("PAGE_SIZE", 20),

		DatabaseDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DatabaseURL:    getEnv("DATABASE_URL", "db/legalflow.db"),
		DBAuthToken:    getEnv("DB_AUTH_TOKEN", ""),

		JWTSecret:       secret,
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 5*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@legalflow.app"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "LegalFlow"),
		EmailTestMode: getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:         getEnv("APP_URL", "http://localhost:8080"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),

		ChromePath: getEnv("CHROME_PATH", ""),

		WhatsAppAPITimeout: getEnvDuration("WHATSAPP_API_TIMEOUT", 15*time.Second),

		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "legalflow"),

		EnableScheduler:       getEnvBool("ENABLE_SCHEDULER", false),
		DeadlineAlertSpec:     getEnv("DEADLINE_ALERT_SPEC", "0 */6 * * *"),
		FinancialReminderSpec: getEnv("FINANCIAL_REMINDER_SPEC", "0 8 * * *"),
		OverdueSweepSpec:      getEnv("OVERDUE_SWEEP_SPEC", "15 0 * * *"),
	}
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func defaultLogFormat(environment string) string {
	if environment == "production" {
		return "json"
	}
	return "console"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Debug().Str("key", key).Msg("Using default value")
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

// ValidateJWTSecret checks the signing secret against known insecure values.
// In production it must also be at least MinJWTSecretLength characters.
func ValidateJWTSecret(secret string, environment string) error {
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			return fmt.Errorf("JWT_SECRET is set to an insecure default value")
		}
	}

	if environment == "production" && len(secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production (current: %d)", MinJWTSecretLength, len(secret))
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret
// This is used only for development when no secret is provided
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Warn().Err(err).Msg("Failed to generate secure secret")
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
