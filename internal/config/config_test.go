package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IRIS_BASE_URL", "http://iris:3000")
	t.Setenv("IRIS_WS_URL", "ws://iris:3000/ws")
	t.Setenv("WORDLE_ROOM", "room-1")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_BACKEND", "")

	cfg, err := Load()
	if err != nil { t.Fatalf("Load: %v", err) }
	if cfg.StoreBackend != "sqlite" || cfg.DBFile != "./wordle_stats.db" { t.Fatalf("store = %s %s", cfg.StoreBackend, cfg.DBFile) }
	if cfg.WordleHeader != "**Your group is on" || cfg.StatsCommand != "!stats" { t.Fatalf("chat = %+v", cfg) }
	if cfg.CommitRetries != 3 || cfg.WriteLockTTLSec != 30 || cfg.EgressMode != "http" { t.Fatalf("tuning = %+v", cfg) }
}

func TestLoadPostgresWhenDatabaseURLSet(t *testing.T) {
	t.Setenv("WORDLE_ROOM", "room-1")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/wordle")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("COMMIT_RETRIES", "nope")
	t.Setenv("RESET_WORDLE_DB", "true")

	cfg, err := LoadOffline()
	if err != nil { t.Fatalf("LoadOffline: %v", err) }
	if cfg.StoreBackend != "postgres" { t.Fatalf("backend = %s", cfg.StoreBackend) }
	if cfg.CommitRetries != 3 { t.Fatalf("bad int should fall back: %d", cfg.CommitRetries) }
	if !cfg.ResetOnStart { t.Fatalf("RESET_WORDLE_DB ignored") }
}

func TestLoadRequiredFields(t *testing.T) {
	t.Setenv("WORDLE_ROOM", "")
	if _, err := LoadOffline(); err == nil { t.Fatalf("missing WORDLE_ROOM accepted") }

	t.Setenv("WORDLE_ROOM", "room-1")
	t.Setenv("IRIS_BASE_URL", "")
	if _, err := Load(); err == nil { t.Fatalf("missing IRIS_BASE_URL accepted") }

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadOffline(); err == nil { t.Fatalf("postgres without DATABASE_URL accepted") }
}
