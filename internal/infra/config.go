package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Token backends the service can run against.
const (
	TokenBackendMemory   = "memory"
	TokenBackendPostgres = "postgres"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	AdminAccount     string
	EscrowAccount    string
	TokenBackend     string
	GeoIPDBPath      string
	KeeperInterval   time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISSUER", "escrow"),
		AdminAccount:     strings.TrimSpace(os.Getenv("ADMIN_ACCOUNT")),
		EscrowAccount:    getEnv("ESCROW_ACCOUNT", "escrow"),
		TokenBackend:     strings.ToLower(os.Getenv("TOKEN_BACKEND")),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		KeeperInterval:   time.Second * time.Duration(getEnvInt("KEEPER_INTERVAL_SECONDS", 60)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.AdminAccount == "" {
		return nil, fmt.Errorf("ADMIN_ACCOUNT is required")
	}

	// The event log and the balances it describes live in the same database.
	if cfg.TokenBackend == "" {
		cfg.TokenBackend = TokenBackendMemory
		if cfg.DatabaseURL != "" {
			cfg.TokenBackend = TokenBackendPostgres
		}
	}
	switch cfg.TokenBackend {
	case TokenBackendMemory:
		if cfg.DatabaseURL != "" {
			return nil, fmt.Errorf("TOKEN_BACKEND=%s cannot be used with DATABASE_URL: replayed campaigns would have no escrowed funds", TokenBackendMemory)
		}
	case TokenBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when TOKEN_BACKEND=%s", TokenBackendPostgres)
		}
	default:
		return nil, fmt.Errorf("unknown TOKEN_BACKEND %q", cfg.TokenBackend)
	}

	return cfg, nil
}

// Persistent reports whether the audit trail is stored in Postgres.
func (c *Config) Persistent() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
