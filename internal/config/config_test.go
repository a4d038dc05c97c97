package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/edumarques81/animekun-backend/internal/config"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := config.Default()
	if cfg.Server.Port != def.Server.Port || cfg.Server.RateLimitBurst != def.Server.RateLimitBurst {
		t.Errorf("server = %+v, want %+v", cfg.Server, def.Server)
	}
	if cfg.AniList != def.AniList {
		t.Errorf("anilist = %+v, want %+v", cfg.AniList, def.AniList)
	}
	if cfg.Storage != def.Storage || cfg.Calendar != def.Calendar || cfg.Sections != def.Sections || cfg.Logging != def.Logging {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "animekun.yaml")
	yaml := `
server:
  port: 8080
  rate_limit_rps: 5
anilist:
  timeout: 10s
sections:
  items_per_page: 30
calendar:
  timezone: Asia/Tokyo
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANIMEKUN_SERVER_PORT", "9090")
	t.Setenv("ANIMEKUN_SECTIONS_SEARCH_DEBOUNCE", "150ms")
	t.Setenv("ANIMEKUN_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Server.RateLimitRPS != 5 {
		t.Errorf("rate_limit_rps = %v, want 5", cfg.Server.RateLimitRPS)
	}
	if cfg.AniList.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.AniList.Timeout)
	}
	if cfg.Sections.ItemsPerPage != 30 || cfg.Sections.ItemsPerSection != 15 {
		t.Errorf("sections = %+v", cfg.Sections)
	}
	if cfg.Sections.SearchDebounce != 150*time.Millisecond {
		t.Errorf("search_debounce = %v", cfg.Sections.SearchDebounce)
	}
	if want := []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("cors_origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Errorf("location = %v, %v", loc, err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdirTemp(t)

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "port out of range", key: "ANIMEKUN_SERVER_PORT", val: "70000"},
		{name: "bad log level", key: "ANIMEKUN_LOGGING_LEVEL", val: "loud"},
		{name: "bad timezone", key: "ANIMEKUN_CALENDAR_TIMEZONE", val: "Mars/Olympus"},
		{name: "bad url", key: "ANIMEKUN_ANILIST_URL", val: "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := config.Load(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdirTemp(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, config.ErrNoConfigFile) {
		t.Errorf("err = %v, want ErrNoConfigFile", err)
	}
}
