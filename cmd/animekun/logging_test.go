package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/config"
)

func TestSetupLoggingJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	closer, err := setupLogging(config.LoggingConfig{Level: "warn", Format: "json"}, false, &buf)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer closer.Close()

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", zerolog.GlobalLevel())
	}
	log.Info().Msg("hidden")
	log.Warn().Str("section", "trending").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, `"section":"trending"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestSetupLoggingDebugFlagWins(t *testing.T) {
	var buf bytes.Buffer
	closer, err := setupLogging(config.LoggingConfig{Level: "error", Format: "json"}, true, &buf)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer closer.Close()

	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestSetupLoggingWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animekun.log")
	var buf bytes.Buffer
	closer, err := setupLogging(config.LoggingConfig{Level: "info", Format: "json", File: path}, false, &buf)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}

	log.Info().Msg("to both sinks")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both sinks") || !strings.Contains(buf.String(), "to both sinks") {
		t.Errorf("file=%q stderr=%q", data, buf.String())
	}
}

func TestSetupLoggingRejectsUnknownLevel(t *testing.T) {
	if _, err := setupLogging(config.LoggingConfig{Level: "loud"}, false, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOpenStoresFallsBackToMemory(t *testing.T) {
	dir := t.TempDir()
	// A directory where the database file should be makes Open fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "favorites.db"), 0o755); err != nil {
		t.Fatal(err)
	}

	favs, cache, closeAll := openStores(config.StorageConfig{
		FavoritesPath:   filepath.Join(blocked, "favorites.db"),
		CacheQuotaBytes: 1024,
	})
	defer closeAll()

	if err := favs.Set("k", []byte("v")); err != nil {
		t.Errorf("fallback favorites store unusable: %v", err)
	}
	if err := cache.Set("k", make([]byte, 2048)); err == nil {
		t.Error("memory cache should enforce the quota")
	}
}
