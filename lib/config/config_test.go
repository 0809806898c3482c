package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearConfigEnv keeps the ambient environment out of config tests.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MOVIEJ_LISTEN_ADDR",
		"MOVIEJ_DATABASE_PATH",
		"MOVIEJ_REQUEST_TIMEOUT",
		"MOVIEJ_TMDB__API_KEY",
		"MOVIEJ_TMDB__LANGUAGE",
		"MOVIEJ_KOBIS__API_KEY",
		"MOVIEJ_OPENAI__API_KEY",
		ConfigPathEnvVar,
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MOVIEJ_TMDB__API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "moviej.db" {
		t.Errorf("DatabasePath = %q, want moviej.db", cfg.DatabasePath)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("TMDB.BaseURL = %q", cfg.TMDB.BaseURL)
	}
	if cfg.TMDB.Language != "ko-KR" {
		t.Errorf("TMDB.Language = %q, want ko-KR", cfg.TMDB.Language)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Errorf("TMDB.APIKey = %q, want test-key", cfg.TMDB.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q, want gpt-4o-mini", cfg.OpenAI.Model)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MOVIEJ_TMDB__API_KEY", "test-key")
	t.Setenv("MOVIEJ_LISTEN_ADDR", ":9090")
	t.Setenv("MOVIEJ_TMDB__LANGUAGE", "en-US")
	t.Setenv("MOVIEJ_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.TMDB.Language != "en-US" {
		t.Errorf("TMDB.Language = %q, want en-US", cfg.TMDB.Language)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("listen_addr: \":7070\"\ntmdb:\n  api_key: file-key\n  language: en-US\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	// Environment still wins over the file.
	t.Setenv("MOVIEJ_TMDB__LANGUAGE", "ja-JP")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want the file value :7070", cfg.ListenAddr)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Errorf("TMDB.APIKey = %q, want file-key", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.Language != "ja-JP" {
		t.Errorf("TMDB.Language = %q, env must override the file", cfg.TMDB.Language)
	}
}

func TestLoadRequiresTMDBKey(t *testing.T) {
	clearConfigEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected Load to fail without tmdb.api_key")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.TMDB.APIKey = "k"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, true},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"missing tmdb key", func(c *Config) { c.TMDB.APIKey = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
