package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// QobuzConfig holds Qobuz credentials and download defaults.
type QobuzConfig struct {
	Email        string
	Password     string
	Quality      int
	DownloadPath string
	Timeout      time.Duration
	Binary       string
}

// Configured reports whether Qobuz credentials are present.
func (c QobuzConfig) Configured() bool {
	return c.Email != "" && c.Password != ""
}

// TidalConfig holds TIDAL download defaults. Authentication lives in the
// tiddl CLI's own config file, so presence of that file stands in for
// credentials here.
type TidalConfig struct {
	Quality      string
	DownloadPath string
	Timeout      time.Duration
	Binary       string
	AuthFile     string
}

// Configured reports whether the tiddl auth file exists.
func (c TidalConfig) Configured() bool {
	if c.AuthFile == "" {
		return false
	}
	_, err := os.Stat(c.AuthFile)
	return err == nil
}

// Config holds shared runtime configuration for the CLI, worker, and
// dashboard processes.
type Config struct {
	StateDir      string
	WorkerBin     string
	DashboardHost string
	DashboardPort int
	PortScanRange int

	Qobuz QobuzConfig
	Tidal TidalConfig
}

// Load reads configuration from the environment with sane defaults,
// after loading a .env file from the working directory or its parents.
func Load() Config {
	loadDotenv()

	home, _ := os.UserHomeDir()
	return Config{
		StateDir:      getEnv("HIFI_STATE_DIR", filepath.Join(home, ".hifi-downloads")),
		WorkerBin:     getEnv("HIFI_WORKER_BIN", ""),
		DashboardHost: getEnv("HIFI_DASHBOARD_HOST", "127.0.0.1"),
		DashboardPort: getEnvInt("HIFI_DASHBOARD_PORT", 8765),
		PortScanRange: getEnvInt("HIFI_PORT_SCAN_RANGE", 10),
		Qobuz: QobuzConfig{
			Email:        getEnv("QOBUZ_EMAIL", ""),
			Password:     getEnv("QOBUZ_PASSWORD", ""),
			Quality:      getEnvInt("QOBUZ_QUALITY", 27),
			DownloadPath: getEnv("QOBUZ_DOWNLOAD_PATH", "./downloads/qobuz"),
			Timeout:      getEnvDuration("QOBUZ_TIMEOUT", 30*time.Minute),
			Binary:       getEnv("QOBUZ_DL_BIN", "qobuz-dl"),
		},
		Tidal: TidalConfig{
			Quality:      getEnv("TIDAL_QUALITY", "high"),
			DownloadPath: getEnv("TIDAL_DOWNLOAD_PATH", "./downloads/tidal"),
			Timeout:      getEnvDuration("TIDAL_TIMEOUT", 10*time.Minute),
			Binary:       getEnv("TIDDL_BIN", "tiddl"),
			AuthFile:     getEnv("TIDDL_AUTH_FILE", filepath.Join(home, "tiddl.json")),
		},
	}
}

// NotConfiguredError signals missing platform credentials. It is raised
// before any record or process is created and is user-actionable.
type NotConfiguredError struct {
	Platform string
	Hint     string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s_not_configured: %s", e.Platform, e.Hint)
}

// CheckPlatform validates that the named platform has usable credentials.
func (c Config) CheckPlatform(platform string) error {
	switch platform {
	case "qobuz":
		if !c.Qobuz.Configured() {
			return &NotConfiguredError{
				Platform: "qobuz",
				Hint:     "Edit .env: set QOBUZ_EMAIL and QOBUZ_PASSWORD (requires Qobuz Studio/Sublime subscription).",
			}
		}
	case "tidal":
		if !c.Tidal.Configured() {
			return &NotConfiguredError{
				Platform: "tidal",
				Hint:     "TIDAL not authenticated. Run: tiddl auth login",
			}
		}
	default:
		return fmt.Errorf("unknown platform: %s", platform)
	}
	return nil
}

// loadDotenv loads the nearest .env file, checking the working directory and
// a few parents. Absence is fine; the environment still applies.
func loadDotenv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
