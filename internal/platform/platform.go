package platform

import (
	"context"
	"fmt"
	"time"

	"hifi-download-manager/internal/config"
)

// ItemType selects what a backend searches for or downloads.
type ItemType string

const (
	ItemTrack  ItemType = "track"
	ItemAlbum  ItemType = "album"
	ItemArtist ItemType = "artist"
)

// ParseItemType validates an item type string.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTrack, ItemAlbum, ItemArtist:
		return ItemType(s), nil
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// ProgressFunc reports download progress as items done out of total.
type ProgressFunc func(done, total int)

// Result is the structured outcome of a successful download.
type Result struct {
	// Name is the folder or file the backend created.
	Name string
	// Location is the directory the item was downloaded into.
	Location string
}

// BackendError is a failure reported by a platform client. Messages keep the
// legacy "Error ..." prefix so CLI output stays compatible with the existing
// text contract.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string { return e.Message }

// TimeoutError marks a backend call that exceeded its allotted duration.
type TimeoutError struct {
	Platform string
	ItemType ItemType
	ItemID   string
	Limit    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Download timed out for %s %s: %s", e.Platform, e.ItemType, e.ItemID)
}

// Backend is the pluggable streaming-service client consumed by workers and
// the sync CLI path.
type Backend interface {
	// Search returns human-readable search results.
	Search(ctx context.Context, query string, kind ItemType, limit int) (string, error)
	// Download fetches one item into outputPath, reporting progress along
	// the way, and returns where it landed.
	Download(ctx context.Context, itemID string, kind ItemType, outputPath string, progress ProgressFunc) (Result, error)
}

// New selects a backend implementation by platform name.
func New(platform string, cfg config.Config) (Backend, error) {
	switch platform {
	case "qobuz":
		return NewQobuz(cfg.Qobuz), nil
	case "tidal":
		return NewTidal(cfg.Tidal), nil
	}
	return nil, fmt.Errorf("unknown platform: %s", platform)
}
