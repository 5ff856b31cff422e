package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenStoreMemory   = "memory"
	TokenStorePostgres = "postgres"
	TokenStoreFile     = "file"
)

const maxIdentityCallsPerRequest = 4

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	IdentityBaseURL     string
	IdentityTimeout     time.Duration
	IdentityTokenPath   string
	IdentityRefreshPath string
	IdentityMePath      string
	IdentityUsersPath   string

	InstitutionDomains  []string
	ApprovalCheckPolicy string

	TokenStore      string
	TokenFile       string
	TokenPassphrase string
	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	SessionTTL      time.Duration

	CORSOrigins         []string
	RateLimitRPM        int
	AuthRateLimitRPM    int
	SessionCookieSecure bool

	LogLevel slog.Level
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 35*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),

		IdentityBaseURL:     getEnv("IDENTITY_BASE_URL", "http://127.0.0.1:8000"),
		IdentityTimeout:     getDuration("IDENTITY_TIMEOUT", 5*time.Second),
		IdentityTokenPath:   getEnv("IDENTITY_TOKEN_PATH", "/api/auth/jwt/create/"),
		IdentityRefreshPath: getEnv("IDENTITY_REFRESH_PATH", "/api/auth/jwt/refresh/"),
		IdentityMePath:      getEnv("IDENTITY_ME_PATH", "/api/me/"),
		IdentityUsersPath:   getEnv("IDENTITY_USERS_PATH", "/api/auth/users/"),

		InstitutionDomains:  splitCSV(os.Getenv("INSTITUTION_DOMAINS")),
		ApprovalCheckPolicy: getEnv("APPROVAL_CHECK_POLICY", "fail_open"),

		TokenStore:      strings.ToLower(getEnv("TOKEN_STORE", TokenStoreMemory)),
		TokenFile:       getEnv("TOKEN_FILE", defaultTokenFile()),
		TokenPassphrase: os.Getenv("TOKEN_PASSPHRASE"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:      int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:      int32(getInt("DB_MIN_CONNS", 1)),
		SessionTTL:      getDuration("SESSION_TTL", 7*24*time.Hour),

		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:    getInt("AUTH_RATE_LIMIT_RPM", 10),
		SessionCookieSecure: getBool("SESSION_COOKIE_SECURE", false),

		LogLevel: getLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	parsed, err := url.Parse(c.IdentityBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("IDENTITY_BASE_URL must be an absolute URL")
	}

	if c.IdentityTimeout <= 0 {
		return fmt.Errorf("IDENTITY_TIMEOUT must be positive")
	}

	// A login makes up to four identity calls: create, me, refresh, me.
	if c.RequestTimeout <= maxIdentityCallsPerRequest*c.IdentityTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT must exceed %d x IDENTITY_TIMEOUT", maxIdentityCallsPerRequest)
	}

	switch strings.ToLower(strings.TrimSpace(c.ApprovalCheckPolicy)) {
	case "fail_open", "fail_closed":
	default:
		return fmt.Errorf("APPROVAL_CHECK_POLICY must be fail_open or fail_closed")
	}

	switch c.TokenStore {
	case TokenStoreMemory:
	case TokenStoreFile:
		if strings.TrimSpace(c.TokenFile) == "" {
			return fmt.Errorf("TOKEN_FILE cannot be empty when TOKEN_STORE=file")
		}
	case TokenStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TOKEN_STORE=postgres")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be memory, file or postgres")
	}

	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".equipment-portal", "tokens.json")
	}

	return filepath.Join(home, ".equipment-portal", "tokens.json")
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getLevel(key string, fallback slog.Level) slog.Level {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback
	}

	return level
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
