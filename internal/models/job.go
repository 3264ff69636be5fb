package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status enumerates download lifecycle states persisted in the state file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus converts a string from the wire or the state file into a
// Status, rejecting anything outside the known set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown download status %q", s)
}

// UnmarshalJSON enforces the enum on load so malformed records can be
// quarantined instead of carrying arbitrary status strings.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether the status is an absorbing state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a download is still pending or running.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

// CanTransition reports whether moving from s to next is a legal step of the
// state machine: pending -> in_progress -> {completed, failed}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Download represents one download job persisted in the shared state file.
// The JSON field names are the on-disk format and must stay stable.
type Download struct {
	ID              string    `json:"id"`
	Platform        string    `json:"platform"`
	ItemID          string    `json:"item_id"`
	ItemType        string    `json:"item_type"`
	Status          Status    `json:"status"`
	OutputPath      string    `json:"output_path,omitempty"`
	Progress        int       `json:"progress"`
	FilePath        string    `json:"file_path,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Artist          string    `json:"artist,omitempty"`
	AlbumTitle      string    `json:"album_title,omitempty"`
	TrackTitle      string    `json:"track_title,omitempty"`
	TotalItems      *int      `json:"total_items,omitempty"`
	DownloadedItems *int      `json:"downloaded_items,omitempty"`
}

// Validate rejects records that cannot round-trip through the store.
func (d Download) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("download record missing id")
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}
