// Package config loads process configuration from the environment so main
// stays lean. Defaults match the development setup; production overrides
// everything via env vars.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures all knobs the services consume.
type Config struct {
	Addr        string
	Environment string

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// KBA attempt-lockout policy.
	MaxKBAAttempts int
	LockoutWindow  time.Duration

	// ConsentDefaultOptedIn models the opt-out jurisdiction: absence of a
	// consent record means consent is granted. Jurisdictions with opt-in
	// semantics flip this flag.
	ConsentDefaultOptedIn bool

	// AuditStrict makes KBA and consent paths fail when the audit write
	// fails. Default is best-effort: log and continue.
	AuditStrict bool

	TokenExpiration time.Duration
	UseMockNotifier bool

	// VerificationBaseURL is the public URL prefix embedded in
	// verification links.
	VerificationBaseURL string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:        envString("CONSENTD_ADDR", ":8080"),
		Environment: envString("ENVIRONMENT", "development"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),

		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envString("JWT_ISSUER", "consentd"),
		JWTAudience:   envString("JWT_AUDIENCE", "consent-portal"),

		MaxKBAAttempts: envInt("MAX_KBA_ATTEMPTS", 3),
		LockoutWindow:  time.Duration(envInt("KBA_LOCKOUT_MINUTES", 30)) * time.Minute,

		ConsentDefaultOptedIn: envBool("CONSENT_DEFAULT_OPTED_IN", true),
		AuditStrict:           envBool("AUDIT_STRICT", false),

		TokenExpiration: time.Duration(envInt("TOKEN_EXPIRATION_MINUTES", 15)) * time.Minute,
		UseMockNotifier: envBool("USE_MOCK_NOTIFIER", true),

		VerificationBaseURL: envString("VERIFICATION_BASE_URL", "http://localhost:8080"),
	}
}

// Summary returns a config view safe for logging and the health endpoint.
// No secrets, no connection strings.
func (c Config) Summary() map[string]any {
	return map[string]any{
		"environment":          c.Environment,
		"max_kba_attempts":     c.MaxKBAAttempts,
		"lockout_minutes":      int(c.LockoutWindow.Minutes()),
		"consent_default":      c.ConsentDefaultOptedIn,
		"audit_strict":         c.AuditStrict,
		"mock_notifier":        c.UseMockNotifier,
		"postgres_configured":  c.DatabaseURL != "",
		"redis_configured":     c.RedisURL != "",
		"kafka_configured":     c.KafkaBrokers != "",
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
