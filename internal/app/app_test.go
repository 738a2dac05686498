package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "test-client-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "test-client-secret")
	t.Setenv("SPOTIFY_REDIRECT_URL", "http://localhost:8080/auth/spotify/callback")
	t.Setenv("SESSION_SECRET", "test-session-secret-32bytes-long!")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("UPSTREAM_URL", "http://localhost:3000")
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setRequiredEnvVars(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.SpotifyClientID != "test-client-id" {
		t.Errorf("SpotifyClientID = %q, want test-client-id", cfg.SpotifyClientID)
	}

	// グローバルロガーがJSON出力に設定されていることを検証
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REDIRECT_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("BASE_URL", "")
	t.Setenv("UPSTREAM_URL", "")

	var buf bytes.Buffer
	if _, err := Init(&buf); err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestRunMigrate_WithoutDatabaseURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DATABASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if err := runMigrate(cfg); err == nil {
		t.Error("migrate without DATABASE_URL should fail")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	masked := maskDatabaseURL("postgres://user:password@db:5432/otolog")
	if masked == "postgres://user:password@db:5432/otolog" {
		t.Error("credentials should be masked")
	}

	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("short URL mask = %q, want ***", got)
	}
}
