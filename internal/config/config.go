package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	XUserID    string
	XUserEmail string
	XSessionID string

	// WordleRoom is the chat room whose result announcements are scored.
	WordleRoom   string
	WordleHeader string
	StatsCommand string

	StoreBackend string
	DatabaseURL  string
	DBFile       string
	RedisURL     string

	NameTableFile string
	MessagesDir   string

	ResetOnStart    bool
	CommitRetries   int
	WriteLockTTLSec int

	MetricsAddr  string
	EgressMode   string
	EgressDryRun bool
}

func defaults() *AppConfig {
	return &AppConfig{
		WordleHeader:    "**Your group is on",
		StatsCommand:    "!stats",
		DBFile:          "./wordle_stats.db",
		CommitRetries:   3,
		WriteLockTTLSec: 30,
		EgressMode:      "http",
	}
}

// Load reads the live bot configuration. Iris endpoints are required.
func Load() (*AppConfig, error) {
	cfg, err := LoadOffline()
	if err != nil {
		return nil, err
	}
	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	return cfg, nil
}

// LoadOffline reads everything except the Iris requirements, for the replay tool.
func LoadOffline() (*AppConfig, error) {
	cfg := defaults()

	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.WordleRoom = env("WORDLE_ROOM")
	if v := os.Getenv("WORDLE_HEADER"); strings.TrimSpace(v) != "" {
		cfg.WordleHeader = v
	}
	if v := env("STATS_COMMAND"); v != "" {
		cfg.StatsCommand = v
	}

	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.RedisURL = env("REDIS_URL")
	if v := env("DB_FILE"); v != "" {
		cfg.DBFile = v
	}
	cfg.StoreBackend = strings.ToLower(env("STORE_BACKEND"))
	if cfg.StoreBackend == "" {
		if cfg.DatabaseURL != "" {
			cfg.StoreBackend = "postgres"
		} else {
			cfg.StoreBackend = "sqlite"
		}
	}

	cfg.NameTableFile = env("NAME_TABLE_FILE")
	cfg.MessagesDir = env("MESSAGES_DIR")

	if v := env("RESET_WORDLE_DB"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResetOnStart = b
		}
	}
	if v := env("COMMIT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CommitRetries = n
		}
	}
	if v := env("WRITE_LOCK_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WriteLockTTLSec = n
		}
	}

	cfg.MetricsAddr = env("METRICS_ADDR")
	if v := strings.ToLower(env("EGRESS_MODE")); v == "http" || v == "ws" || v == "auto" {
		cfg.EgressMode = v
	}
	if v := env("EGRESS_DRYRUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EgressDryRun = b
		}
	}

	if cfg.WordleRoom == "" {
		return nil, errors.New("WORDLE_ROOM is required")
	}
	switch cfg.StoreBackend {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, errors.New("STORE_BACKEND must be memory, postgres or sqlite")
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }
