package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvPort             = "PORT"
	EnvGinMode          = "GIN_MODE"
	EnvFrontendOrigin   = "FE_ORIGIN"
	EnvJWTSecret        = "JWT_SECRET_KEY"
	EnvSessionTTLMin    = "SESSION_TTL_MIN"
	EnvFeedIntervalMs   = "FEED_INTERVAL_MS"
	EnvStatusIntervalMs = "STATUS_INTERVAL_MS"
	EnvLoginDelayMs     = "LOGIN_DELAY_MS"
	EnvRedirectDelayMs  = "REDIRECT_DELAY_MS"
	EnvPairingDelayMs   = "PAIRING_DELAY_MS"
	EnvArchive          = "ARCHIVE"
	EnvSQLitePath       = "SQLITE_PATH"
	EnvAuthMode         = "AUTH_MODE"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvOperatorAPIKey   = "AUTH_DEFAULT"

	EnvClickHouseHost     = "CLICKHOUSE_HOST"
	EnvClickHousePort     = "CLICKHOUSE_NATIVE_PORT"
	EnvClickHouseDB       = "CLICKHOUSE_DB_NAME"
	EnvClickHouseUsername = "CLICKHOUSE_USERNAME"
	EnvClickHousePassword = "CLICKHOUSE_PASSWORD"

	ArchiveNone       = "none"
	ArchiveSQLite     = "sqlite"
	ArchiveClickHouse = "clickhouse"

	AuthSimulated = "simulated"
	AuthPostgres  = "postgres"
)

type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// Config holds runtime configuration loaded from the environment.
type Config struct {
	Port           string
	ReleaseMode    bool
	FrontendOrigin string
	JWTSecret      string
	SessionTTL     time.Duration

	FeedInterval   time.Duration
	StatusInterval time.Duration
	LoginDelay     time.Duration
	RedirectDelay  time.Duration
	PairingDelay   time.Duration

	Archive     string
	SQLitePath  string
	ClickHouse  ClickHouseConfig
	AuthMode    string
	DatabaseURL string

	OperatorAPIKey string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}
	return LoadFromEnv()
}

// LoadFromEnv loads and validates configuration from environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Port:           envOrDefault(EnvPort, "8080"),
		ReleaseMode:    os.Getenv(EnvGinMode) == "release",
		FrontendOrigin: envOrDefault(EnvFrontendOrigin, "http://localhost:3000"),
		JWTSecret:      strings.TrimSpace(os.Getenv(EnvJWTSecret)),
		SessionTTL:     time.Duration(intEnvOrDefault(EnvSessionTTLMin, 60)) * time.Minute,

		FeedInterval:   msEnvOrDefault(EnvFeedIntervalMs, 5000),
		StatusInterval: msEnvOrDefault(EnvStatusIntervalMs, 10000),
		LoginDelay:     msEnvOrDefault(EnvLoginDelayMs, 1500),
		RedirectDelay:  msEnvOrDefault(EnvRedirectDelayMs, 1000),
		PairingDelay:   msEnvOrDefault(EnvPairingDelayMs, 2000),

		Archive:    strings.ToLower(envOrDefault(EnvArchive, ArchiveNone)),
		SQLitePath: envOrDefault(EnvSQLitePath, "./data/detections.db"),
		ClickHouse: ClickHouseConfig{
			Host:     strings.TrimSpace(os.Getenv(EnvClickHouseHost)),
			Port:     intEnvOrDefault(EnvClickHousePort, 9000),
			Database: strings.TrimSpace(os.Getenv(EnvClickHouseDB)),
			Username: strings.TrimSpace(os.Getenv(EnvClickHouseUsername)),
			Password: os.Getenv(EnvClickHousePassword),
		},
		AuthMode:    strings.ToLower(envOrDefault(EnvAuthMode, AuthSimulated)),
		DatabaseURL: strings.TrimSpace(os.Getenv(EnvDatabaseURL)),

		OperatorAPIKey: strings.TrimSpace(os.Getenv(EnvOperatorAPIKey)),
	}

	if cfg.JWTSecret == "" && !cfg.ReleaseMode {
		log.Printf("%s not set, using a development secret", EnvJWTSecret)
		cfg.JWTSecret = "h2oclear-dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s: must be a port number, got %q", EnvPort, c.Port)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("invalid %s: must not be empty in release mode", EnvJWTSecret)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvSessionTTLMin)
	}
	if c.FeedInterval <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvFeedIntervalMs)
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvStatusIntervalMs)
	}
	switch c.Archive {
	case ArchiveNone:
	case ArchiveSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid %s: required when %s=%s", EnvSQLitePath, EnvArchive, ArchiveSQLite)
		}
	case ArchiveClickHouse:
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("invalid config: %s and %s are required when %s=%s",
				EnvClickHouseHost, EnvClickHouseDB, EnvArchive, ArchiveClickHouse)
		}
	default:
		return fmt.Errorf("invalid %s: must be %q, %q or %q", EnvArchive, ArchiveNone, ArchiveSQLite, ArchiveClickHouse)
	}
	switch c.AuthMode {
	case AuthSimulated:
	case AuthPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid %s: required when %s=%s", EnvDatabaseURL, EnvAuthMode, AuthPostgres)
		}
	default:
		return fmt.Errorf("invalid %s: must be %q or %q", EnvAuthMode, AuthSimulated, AuthPostgres)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func msEnvOrDefault(key string, fallback int) time.Duration {
	return time.Duration(intEnvOrDefault(key, fallback)) * time.Millisecond
}
