package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"hifi-download-manager/internal/config"
)

// Qobuz downloads through the qobuz-dl CLI. Search requires the interactive
// qobuz-dl client and is not scriptable, so only downloads are supported.
type Qobuz struct {
	cfg config.QobuzConfig
}

func NewQobuz(cfg config.QobuzConfig) *Qobuz {
	return &Qobuz{cfg: cfg}
}

func (q *Qobuz) Search(ctx context.Context, query string, kind ItemType, limit int) (string, error) {
	return "", &BackendError{Message: "Error: Qobuz search is only available through the interactive qobuz-dl client"}
}

func (q *Qobuz) Download(ctx context.Context, itemID string, kind ItemType, outputPath string, progress ProgressFunc) (Result, error) {
	downloadPath := expandPath(outputPath, q.cfg.DownloadPath)
	url := fmt.Sprintf("https://play.qobuz.com/%s/%s", kind, itemID)

	before, err := dirEntries(downloadPath)
	if err != nil {
		return Result{}, fmt.Errorf("prepare download dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, q.cfg.Binary,
		"dl", url,
		"-q", strconv.Itoa(q.cfg.Quality),
		"-d", downloadPath,
		"--no-db",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{}, &TimeoutError{Platform: "Qobuz", ItemType: kind, ItemID: itemID, Limit: q.cfg.Timeout}
	}
	if runErr != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return Result{}, &BackendError{Message: fmt.Sprintf("Error downloading from Qobuz: %s", msg)}
	}

	name, err := newEntry(downloadPath, before)
	if err != nil {
		return Result{}, err
	}
	if name == "" {
		if looksLikeNotFound(out.String()) {
			return Result{}, &BackendError{Message: fmt.Sprintf("Error: Qobuz %s not found (ID: %s). Please verify the ID is correct.", kind, itemID)}
		}
		return Result{}, &BackendError{Message: fmt.Sprintf("Error: Download completed but no files were created. The %s ID %q may be invalid.", kind, itemID)}
	}

	if progress != nil {
		progress(1, 1)
	}
	return Result{Name: name, Location: downloadPath}, nil
}

// expandPath picks the explicit output path over the configured default and
// resolves a leading ~.
func expandPath(outputPath, def string) string {
	p := outputPath
	if p == "" {
		p = def
	}
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// dirEntries creates dir if needed and snapshots its entry names, so a
// successful download can be detected by what newly appeared.
func dirEntries(dir string) (map[string]bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names, nil
}

// newEntry returns the first entry in dir that was not in the before set.
func newEntry(dir string, before map[string]bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("inspect download dir: %w", err)
	}
	for _, e := range entries {
		if !before[e.Name()] {
			return e.Name(), nil
		}
	}
	return "", nil
}

func looksLikeNotFound(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "not found") || strings.Contains(lower, "error")
}
