package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel, "WARN": zapcore.WarnLevel, "warning": zapcore.WarnLevel,
		"error": zapcore.ErrorLevel, "": zapcore.InfoLevel, "loud": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want { t.Fatalf("parseLevel(%q) = %v", in, got) }
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.log")
	logger, err := New(Options{Level: "info", Format: "json", File: path})
	if err != nil { t.Fatalf("New: %v", err) }
	logger.Debug("hidden")
	logger.Info("puzzle_recorded", zap.String("puzzle_id", "100"))
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	if err != nil { t.Fatalf("read log: %v", err) }
	out := string(b)
	if !strings.Contains(out, `"msg":"puzzle_recorded"`) || !strings.Contains(out, `"puzzle_id":"100"`) { t.Fatalf("log = %s", out) }
	if strings.Contains(out, "hidden") { t.Fatalf("debug line leaked at info level") }
}

func TestOptionsFromEnvFileDisabledByDefault(t *testing.T) {
	t.Setenv("LOG_TO_FILE", "")
	if opts := OptionsFromEnv(); opts.File != "" { t.Fatalf("file = %q", opts.File) }
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "")
	if opts := OptionsFromEnv(); opts.File != filepath.Join("logs", "wordle-bot.log") { t.Fatalf("file = %q", opts.File) }
}
