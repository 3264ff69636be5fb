package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	valid := []string{"pending", "in_progress", "completed", "failed"}
	for _, s := range valid {
		got, err := ParseStatus(s)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseStatus(%q) = %q", s, got)
		}
	}

	for _, s := range []string{"", "done", "PENDING", "cancelled"} {
		if _, err := ParseStatus(s); err == nil {
			t.Fatalf("ParseStatus(%q) accepted invalid status", s)
		}
	}
}

func TestStatusUnmarshalRejectsUnknown(t *testing.T) {
	var d Download
	raw := `{"id":"abc12345","platform":"qobuz","item_id":"1","item_type":"album","status":"exploded","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}`
	if err := json.Unmarshal([]byte(raw), &d); err == nil {
		t.Fatal("expected unmarshal to reject unknown status")
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusFailed, StatusInProgress, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Fatalf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusPending.Active() || !StatusInProgress.Active() {
		t.Fatal("pending and in_progress should be active")
	}
	if StatusCompleted.Active() || StatusFailed.Active() {
		t.Fatal("terminal states should not be active")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed and failed should be terminal")
	}
	if StatusPending.Terminal() || StatusInProgress.Terminal() {
		t.Fatal("active states should not be terminal")
	}
}

func TestDownloadValidate(t *testing.T) {
	d := Download{
		ID:        "abc12345",
		Platform:  "tidal",
		ItemID:    "99",
		ItemType:  "track",
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	d.ID = ""
	if err := d.Validate(); err == nil {
		t.Fatal("record without id accepted")
	}

	d.ID = "abc12345"
	d.Status = "broken"
	if err := d.Validate(); err == nil {
		t.Fatal("record with bogus status accepted")
	}
}
