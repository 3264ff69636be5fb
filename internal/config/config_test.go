package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"HIFI_STATE_DIR", "HIFI_DASHBOARD_PORT", "QOBUZ_EMAIL", "QOBUZ_PASSWORD",
		"QOBUZ_QUALITY", "QOBUZ_TIMEOUT", "TIDAL_QUALITY", "TIDDL_AUTH_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.DashboardHost != "127.0.0.1" {
		t.Fatalf("dashboard host = %q", cfg.DashboardHost)
	}
	if cfg.DashboardPort != 8765 {
		t.Fatalf("dashboard port = %d", cfg.DashboardPort)
	}
	if cfg.Qobuz.Quality != 27 {
		t.Fatalf("qobuz quality = %d", cfg.Qobuz.Quality)
	}
	if cfg.Qobuz.Timeout != 30*time.Minute {
		t.Fatalf("qobuz timeout = %s", cfg.Qobuz.Timeout)
	}
	if cfg.Tidal.Timeout != 10*time.Minute {
		t.Fatalf("tidal timeout = %s", cfg.Tidal.Timeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HIFI_STATE_DIR", "/var/lib/hifi")
	t.Setenv("HIFI_DASHBOARD_PORT", "9000")
	t.Setenv("QOBUZ_TIMEOUT", "5m")

	cfg := Load()
	if cfg.StateDir != "/var/lib/hifi" {
		t.Fatalf("state dir = %q", cfg.StateDir)
	}
	if cfg.DashboardPort != 9000 {
		t.Fatalf("dashboard port = %d", cfg.DashboardPort)
	}
	if cfg.Qobuz.Timeout != 5*time.Minute {
		t.Fatalf("qobuz timeout = %s", cfg.Qobuz.Timeout)
	}
}

func TestQobuzConfigured(t *testing.T) {
	c := QobuzConfig{}
	if c.Configured() {
		t.Fatal("empty qobuz config should not be configured")
	}
	c = QobuzConfig{Email: "a@b.c", Password: "pw"}
	if !c.Configured() {
		t.Fatal("qobuz config with credentials should be configured")
	}
}

func TestTidalConfigured(t *testing.T) {
	c := TidalConfig{AuthFile: filepath.Join(t.TempDir(), "missing.json")}
	if c.Configured() {
		t.Fatal("missing auth file should not be configured")
	}

	authFile := filepath.Join(t.TempDir(), "tiddl.json")
	if err := os.WriteFile(authFile, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	c.AuthFile = authFile
	if !c.Configured() {
		t.Fatal("existing auth file should count as configured")
	}
}

func TestCheckPlatform(t *testing.T) {
	cfg := Config{
		Qobuz: QobuzConfig{Email: "a@b.c", Password: "pw"},
	}
	if err := cfg.CheckPlatform("qobuz"); err != nil {
		t.Fatalf("configured qobuz rejected: %v", err)
	}

	cfg.Qobuz = QobuzConfig{}
	err := cfg.CheckPlatform("qobuz")
	var notConfigured *NotConfiguredError
	if !errors.As(err, &notConfigured) {
		t.Fatalf("expected NotConfiguredError, got %v", err)
	}
	if notConfigured.Platform != "qobuz" || notConfigured.Hint == "" {
		t.Fatalf("unexpected error detail: %+v", notConfigured)
	}

	if err := cfg.CheckPlatform("napster"); err == nil {
		t.Fatal("unknown platform accepted")
	}
}
