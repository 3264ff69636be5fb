package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"hifi-download-manager/internal/launcher"
	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/platform"
	"hifi-download-manager/internal/store"
)

// ReadParams consumes a worker params file: the file is deleted as soon as
// it has been read, so a crash mid-download cannot cause a second run.
func ReadParams(path string) (launcher.Params, error) {
	data, readErr := os.ReadFile(path)
	_ = os.Remove(path)
	if readErr != nil {
		return launcher.Params{}, fmt.Errorf("read worker params: %w", readErr)
	}
	var p launcher.Params
	if err := json.Unmarshal(data, &p); err != nil {
		return launcher.Params{}, fmt.Errorf("decode worker params: %w", err)
	}
	if p.TaskID == "" {
		return launcher.Params{}, fmt.Errorf("worker params missing task_id")
	}
	return p, nil
}

// Runner executes exactly one download job to a terminal state.
type Runner struct {
	store   *store.Store
	backend platform.Backend
	log     *log.Logger
}

func NewRunner(st *store.Store, backend platform.Backend, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{store: st, backend: backend, log: logger}
}

// Run drives the job state machine: pending -> in_progress -> terminal.
// Every failure path, including a panic in the backend, ends with a FAILED
// write carrying a human-readable message. Errors are recorded in the job
// record, never returned to a caller that already holds the job id.
func (r *Runner) Run(ctx context.Context, p launcher.Params) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("Worker exception: %v", rec)
			r.log.Print(msg)
			r.Fail(p.TaskID, msg)
			err = fmt.Errorf("worker panic: %v", rec)
		}
	}()

	if _, err := r.store.Update(ctx, p.TaskID, store.Patch{Status: string(models.StatusInProgress)}); err != nil {
		return fmt.Errorf("mark in_progress: %w", err)
	}

	kind, err := platform.ParseItemType(p.ItemType)
	if err != nil {
		r.Fail(p.TaskID, fmt.Sprintf("Error: %v", err))
		return err
	}

	r.log.Printf("Starting %s download: %s %s", p.Platform, p.ItemType, p.ItemID)

	progress := func(done, total int) {
		if total <= 0 {
			return
		}
		pct := done * 100 / total
		_, _ = r.store.Update(ctx, p.TaskID, store.Patch{
			Progress:        &pct,
			DownloadedItems: &done,
			TotalItems:      &total,
		})
	}

	res, err := r.backend.Download(ctx, p.ItemID, kind, p.OutputPath, progress)
	if err != nil {
		r.log.Printf("Download failed: %v", err)
		r.Fail(p.TaskID, err.Error())
		return err
	}

	r.log.Printf("Download result: %s", res.Legacy())
	pct := 100
	location := res.Location
	if _, err := r.store.Update(ctx, p.TaskID, store.Patch{
		Status:   string(models.StatusCompleted),
		FilePath: &location,
		Progress: &pct,
	}); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// Fail performs a best-effort FAILED write. Used on errors and as the last
// action of the termination signal handler.
func (r *Runner) Fail(id, msg string) {
	_, _ = r.store.Update(context.Background(), id, store.Patch{
		Status: string(models.StatusFailed),
		Error:  &msg,
	})
}
