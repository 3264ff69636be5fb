package status

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/store"
)

// Reader answers read-only status queries against the shared state file.
// Every call re-reads the file; nothing is cached across calls.
type Reader struct {
	store *store.Store
}

func NewReader(st *store.Store) *Reader {
	return &Reader{store: st}
}

// Get looks up a single download. Returns store.ErrNotFound for unknown ids.
func (r *Reader) Get(ctx context.Context, id string) (models.Download, error) {
	return r.store.Get(ctx, id)
}

// List returns all downloads, newest first, optionally restricted to active
// (pending or in-progress) ones.
func (r *Reader) List(ctx context.Context, activeOnly bool) ([]models.Download, error) {
	downloads, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]models.Download, 0, len(downloads))
	for _, d := range downloads {
		if activeOnly && !d.Status.Active() {
			continue
		}
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Summary holds download counts grouped by status.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Active returns the number of not-yet-terminal downloads.
func (s Summary) Active() int { return s.Pending + s.InProgress }

// Summarize computes counts grouped by status.
func (r *Reader) Summarize(ctx context.Context) (Summary, error) {
	downloads, err := r.store.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, d := range downloads {
		s.Total++
		switch d.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
		case models.StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

// FormatDetail renders one download for human-readable CLI output.
func FormatDetail(d models.Download) string {
	lines := []string{
		fmt.Sprintf("Download: %s", d.ID),
		fmt.Sprintf("Status:   %s", d.Status),
		fmt.Sprintf("Platform: %s", d.Platform),
		fmt.Sprintf("Type:     %s", d.ItemType),
	}
	if d.Artist != "" {
		lines = append(lines, fmt.Sprintf("Artist:   %s", d.Artist))
	}
	if d.AlbumTitle != "" {
		lines = append(lines, fmt.Sprintf("Album:    %s", d.AlbumTitle))
	}
	if d.TrackTitle != "" {
		lines = append(lines, fmt.Sprintf("Track:    %s", d.TrackTitle))
	}
	if d.Progress > 0 {
		lines = append(lines, fmt.Sprintf("Progress: %d%%", d.Progress))
	}
	if d.TotalItems != nil && d.DownloadedItems != nil {
		lines = append(lines, fmt.Sprintf("Items:    %d/%d", *d.DownloadedItems, *d.TotalItems))
	}
	lines = append(lines,
		fmt.Sprintf("Started:  %s", d.CreatedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Updated:  %s", d.UpdatedAt.Format("2006-01-02 15:04:05")),
	)
	if d.Error != "" {
		lines = append(lines, fmt.Sprintf("Error:    %s", d.Error))
	}
	if d.FilePath != "" {
		lines = append(lines, fmt.Sprintf("File:     %s", d.FilePath))
	}
	return strings.Join(lines, "\n")
}

// FormatTable renders downloads as an aligned table with a totals footer.
func FormatTable(list []models.Download) string {
	lines := []string{fmt.Sprintf("%-12s%-14s%-10s%-7s%s", "ID", "Status", "Platform", "Type", "Started")}
	var active, completed, failed int
	for _, d := range list {
		id := d.ID
		if len(id) > 10 {
			id = id[:10]
		}
		lines = append(lines, fmt.Sprintf("%-12s%-14s%-10s%-7s%s",
			id, d.Status, d.Platform, d.ItemType, d.CreatedAt.Format("2006-01-02 15:04")))
		switch {
		case d.Status.Active():
			active++
		case d.Status == models.StatusCompleted:
			completed++
		case d.Status == models.StatusFailed:
			failed++
		}
	}
	lines = append(lines, "---")
	summary := fmt.Sprintf("Total: %d | Active: %d | Completed: %d", len(list), active, completed)
	if failed > 0 {
		summary += fmt.Sprintf(" | Failed: %d", failed)
	}
	lines = append(lines, summary)
	return strings.Join(lines, "\n")
}
