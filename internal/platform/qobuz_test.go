package platform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hifi-download-manager/internal/config"
)

// fakeCLI writes an executable shell script standing in for qobuz-dl.
func fakeCLI(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-qobuz-dl")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func qobuzConfig(bin string) config.QobuzConfig {
	return config.QobuzConfig{
		Email:    "user@example.com",
		Password: "secret",
		Quality:  27,
		Timeout:  30 * time.Second,
		Binary:   bin,
	}
}

func TestQobuzDownloadSuccess(t *testing.T) {
	out := t.TempDir()
	// The fake CLI "downloads" by creating an album folder under -d.
	bin := fakeCLI(t, `
while [ "$1" != "-d" ]; do shift; done
mkdir -p "$2/Kraftwerk - Autobahn"
`)
	q := NewQobuz(qobuzConfig(bin))

	var calls int
	res, err := q.Download(context.Background(), "12345", ItemAlbum, out, func(done, total int) { calls++ })
	require.NoError(t, err)
	require.Equal(t, "Kraftwerk - Autobahn", res.Name)
	require.Equal(t, out, res.Location)
	require.Equal(t, 1, calls)
	require.True(t, strings.HasPrefix(res.Legacy(), "Downloaded: Kraftwerk - Autobahn"))
}

func TestQobuzDownloadCLIFailure(t *testing.T) {
	bin := fakeCLI(t, `echo "invalid credentials" >&2; exit 1`)
	q := NewQobuz(qobuzConfig(bin))

	_, err := q.Download(context.Background(), "12345", ItemAlbum, t.TempDir(), nil)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.True(t, strings.HasPrefix(backendErr.Message, "Error downloading from Qobuz"))
	require.Contains(t, backendErr.Message, "invalid credentials")
}

func TestQobuzDownloadNoNewFiles(t *testing.T) {
	bin := fakeCLI(t, `echo "album not found"`)
	q := NewQobuz(qobuzConfig(bin))

	_, err := q.Download(context.Background(), "99999", ItemAlbum, t.TempDir(), nil)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Contains(t, backendErr.Message, "not found (ID: 99999)")
}

func TestQobuzDownloadTimeout(t *testing.T) {
	bin := fakeCLI(t, `sleep 5`)
	cfg := qobuzConfig(bin)
	cfg.Timeout = 100 * time.Millisecond
	q := NewQobuz(cfg)

	_, err := q.Download(context.Background(), "12345", ItemTrack, t.TempDir(), nil)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Contains(t, timeoutErr.Error(), "Download timed out for Qobuz track: 12345")
}

func TestQobuzSearchUnsupported(t *testing.T) {
	q := NewQobuz(qobuzConfig("qobuz-dl"))
	_, err := q.Search(context.Background(), "kraftwerk", ItemAlbum, 10)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
}

func TestNewBackendSelection(t *testing.T) {
	cfg := config.Config{}
	if _, err := New("qobuz", cfg); err != nil {
		t.Fatalf("qobuz backend: %v", err)
	}
	if _, err := New("tidal", cfg); err != nil {
		t.Fatalf("tidal backend: %v", err)
	}
	if _, err := New("napster", cfg); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
