package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/store"
)

// Params is the one-shot handoff written for a spawned worker. The file is
// consumed (read and deleted) exactly once by the worker.
type Params struct {
	TaskID     string `json:"task_id"`
	Platform   string `json:"platform"`
	ItemID     string `json:"item_id"`
	ItemType   string `json:"item_type"`
	OutputPath string `json:"output_path"`
}

// Launcher creates download jobs and spawns detached worker processes.
type Launcher struct {
	cfg   config.Config
	store *store.Store
}

func New(cfg config.Config, st *store.Store) *Launcher {
	return &Launcher{cfg: cfg, store: st}
}

// Submit validates the platform, persists a pending record, writes the
// worker params file, and spawns a detached worker. It returns the new job
// id without waiting for any worker activity. Nothing is persisted if the
// platform is not configured.
func (l *Launcher) Submit(ctx context.Context, platform, itemID, itemType, outputPath string) (string, error) {
	if err := l.cfg.CheckPlatform(platform); err != nil {
		return "", err
	}

	if err := l.store.EnsureDirs(); err != nil {
		return "", err
	}

	id := store.NewID()
	now := time.Now()
	d := models.Download{
		ID:         id,
		Platform:   platform,
		ItemID:     itemID,
		ItemType:   itemType,
		Status:     models.StatusPending,
		OutputPath: outputPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.store.Add(ctx, d); err != nil {
		return "", fmt.Errorf("record download: %w", err)
	}

	paramsPath := filepath.Join(l.store.ScratchDir(), id+".json")
	if err := writeParams(paramsPath, Params{
		TaskID:     id,
		Platform:   platform,
		ItemID:     itemID,
		ItemType:   itemType,
		OutputPath: outputPath,
	}); err != nil {
		return "", err
	}

	if err := l.spawnWorker(id, paramsPath); err != nil {
		return "", err
	}
	return id, nil
}

func writeParams(path string, p Params) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal worker params: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write worker params: %w", err)
	}
	return nil
}

// spawnWorker starts the worker binary in its own session so it survives the
// caller's exit, with stdout and stderr going to the per-job log file.
func (l *Launcher) spawnWorker(id, paramsPath string) error {
	bin, err := l.workerBinary()
	if err != nil {
		return err
	}

	logPath := filepath.Join(l.store.LogDir(), id+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create worker log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(bin, paramsPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn worker: %w", err)
	}
	// Detach: the worker is on its own from here, reaped by init.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release worker process: %w", err)
	}
	return nil
}

// workerBinary resolves the worker executable: explicit config first, then a
// sibling of the current executable, then PATH.
func (l *Launcher) workerBinary() (string, error) {
	if l.cfg.WorkerBin != "" {
		return l.cfg.WorkerBin, nil
	}
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "hifi-worker")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	if path, err := exec.LookPath("hifi-worker"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("worker binary not found: set HIFI_WORKER_BIN or install hifi-worker on PATH")
}
