package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"hifi-download-manager/internal/models"
)

// ErrNotFound is returned when a download id has no record in the state file.
var ErrNotFound = errors.New("download not found")

const (
	stateFileName = "downloads.json"
	lockFileName  = "downloads.json.lock"

	// lockWait bounds how long any process waits for the advisory lock.
	// Store operations are short file rewrites, never download-length.
	lockWait      = 5 * time.Second
	lockRetryStep = 25 * time.Millisecond
)

// Store is the file-backed download registry shared by the submitting CLI,
// worker processes, and the dashboard server. The JSON file is the sole
// source of truth; every operation re-reads it under an advisory lock.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory and state file are
// created lazily on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the canonical state file path.
func (s *Store) StatePath() string { return filepath.Join(s.dir, stateFileName) }

// ScratchDir returns the directory for one-shot worker params files.
func (s *Store) ScratchDir() string { return filepath.Join(s.dir, "tmp") }

// LogDir returns the directory for per-job worker logs.
func (s *Store) LogDir() string { return filepath.Join(s.dir, "logs") }

// EnsureDirs creates the state, scratch, and log directories.
func (s *Store) EnsureDirs() error {
	for _, d := range []string{s.dir, s.ScratchDir(), s.LogDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create state dir %s: %w", d, err)
		}
	}
	return nil
}

// NewID generates a short opaque download id.
func NewID() string {
	return uuid.NewString()[:8]
}

type stateDocument struct {
	Downloads []json.RawMessage `json:"downloads"`
}

// Load reads every valid record from the state file. A missing file or an
// unparsable document yields an empty map rather than an error; records that
// fail to decode individually are skipped so one corrupt entry cannot hide
// the rest.
func (s *Store) Load(ctx context.Context) (map[string]models.Download, error) {
	if _, err := os.Stat(s.StatePath()); os.IsNotExist(err) {
		return map[string]models.Download{}, nil
	}

	var out map[string]models.Download
	err := s.withLock(ctx, true, func() error {
		out = s.loadLocked()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save atomically replaces the state file with the given mapping.
func (s *Store) Save(ctx context.Context, downloads map[string]models.Download) error {
	return s.withLock(ctx, false, func() error {
		return s.saveLocked(downloads)
	})
}

// Add inserts a new record. The full load-mutate-save cycle runs under one
// exclusive lock so concurrent mutators cannot lose each other's writes.
func (s *Store) Add(ctx context.Context, d models.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("add download: %w", err)
	}
	return s.withLock(ctx, false, func() error {
		downloads := s.loadLocked()
		downloads[d.ID] = d
		return s.saveLocked(downloads)
	})
}

// Patch names the fields Update may change on a record. Nil pointers leave
// the field untouched; Status is accepted as a string and parsed into the
// enum, rejecting unrecognized values before anything is written.
type Patch struct {
	Status          string
	Progress        *int
	FilePath        *string
	Error           *string
	Artist          *string
	AlbumTitle      *string
	TrackTitle      *string
	TotalItems      *int
	DownloadedItems *int
}

// Update applies a patch to one record, stamps updated_at, and rewrites the
// whole file. Returns the updated record, or ErrNotFound for an unknown id.
func (s *Store) Update(ctx context.Context, id string, p Patch) (models.Download, error) {
	var status models.Status
	if p.Status != "" {
		parsed, err := models.ParseStatus(p.Status)
		if err != nil {
			return models.Download{}, fmt.Errorf("update %s: %w", id, err)
		}
		status = parsed
	}

	var updated models.Download
	err := s.withLock(ctx, false, func() error {
		downloads := s.loadLocked()
		d, ok := downloads[id]
		if !ok {
			return fmt.Errorf("update %s: %w", id, ErrNotFound)
		}
		if status != "" {
			d.Status = status
		}
		if p.Progress != nil {
			d.Progress = *p.Progress
		}
		if p.FilePath != nil {
			d.FilePath = *p.FilePath
		}
		if p.Error != nil {
			d.Error = *p.Error
		}
		if p.Artist != nil {
			d.Artist = *p.Artist
		}
		if p.AlbumTitle != nil {
			d.AlbumTitle = *p.AlbumTitle
		}
		if p.TrackTitle != nil {
			d.TrackTitle = *p.TrackTitle
		}
		if p.TotalItems != nil {
			d.TotalItems = p.TotalItems
		}
		if p.DownloadedItems != nil {
			d.DownloadedItems = p.DownloadedItems
		}
		if now := time.Now(); now.After(d.UpdatedAt) {
			d.UpdatedAt = now
		}
		downloads[id] = d
		updated = d
		return s.saveLocked(downloads)
	})
	if err != nil {
		return models.Download{}, err
	}
	return updated, nil
}

// Get looks up a single record by id.
func (s *Store) Get(ctx context.Context, id string) (models.Download, error) {
	downloads, err := s.Load(ctx)
	if err != nil {
		return models.Download{}, err
	}
	d, ok := downloads[id]
	if !ok {
		return models.Download{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// withLock runs fn while holding the sidecar advisory lock, shared for
// readers and exclusive for mutators. The wait is bounded by lockWait.
func (s *Store) withLock(ctx context.Context, shared bool, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	lk := flock.New(filepath.Join(s.dir, lockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lk.TryRLockContext(lockCtx, lockRetryStep)
	} else {
		locked, err = lk.TryLockContext(lockCtx, lockRetryStep)
	}
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return errors.New("acquire state lock: timed out")
	}
	defer lk.Unlock()

	return fn()
}

// loadLocked decodes the state file. Corruption degrades to an empty map;
// the caller already holds the lock.
func (s *Store) loadLocked() map[string]models.Download {
	downloads := map[string]models.Download{}

	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		return downloads
	}
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return downloads
	}
	for _, raw := range doc.Downloads {
		var d models.Download
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		if err := d.Validate(); err != nil {
			continue
		}
		downloads[d.ID] = d
	}
	return downloads
}

// saveLocked serializes the full mapping to a temp file in the state
// directory and atomically renames it over the canonical path, so readers
// never observe a partial write. The caller holds the exclusive lock.
func (s *Store) saveLocked(downloads map[string]models.Download) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	list := make([]models.Download, 0, len(downloads))
	for _, d := range downloads {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	doc := struct {
		Downloads []models.Download `json:"downloads"`
	}{Downloads: list}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, stateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.StatePath()); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
