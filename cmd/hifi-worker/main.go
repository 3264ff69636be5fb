package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/platform"
	"hifi-download-manager/internal/store"
	workerrun "hifi-download-manager/internal/worker"
)

// hifi-worker executes exactly one download job to a terminal state. It is
// spawned detached by the launcher with stdout/stderr pointed at the per-job
// log file, reads its inputs from a one-shot params file, and reports
// progress only through the shared state file.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: hifi-worker <params-json-path>")
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	params, err := workerrun.ReadParams(os.Args[1])
	if err != nil {
		logger.Fatalf("read params: %v", err)
	}

	cfg := config.Load()
	st := store.New(cfg.StateDir)
	if err := st.EnsureDirs(); err != nil {
		logger.Fatalf("state dirs: %v", err)
	}

	backend, err := platform.New(params.Platform, cfg)
	if err != nil {
		logger.Printf("unknown platform: %v", err)
		failAndExit(st, params.TaskID, fmt.Sprintf("Error: %v", err))
	}

	runner := workerrun.NewRunner(st, backend, logger)

	// A termination signal performs one best-effort FAILED write, then exits.
	// This is the only cancellation mechanism.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		logger.Print("termination signal received, marking download failed")
		runner.Fail(params.TaskID, "Download cancelled (process terminated)")
		os.Exit(1)
	}()

	if err := runner.Run(context.Background(), params); err != nil {
		os.Exit(1)
	}
}

func failAndExit(st *store.Store, id, msg string) {
	_, _ = st.Update(context.Background(), id, store.Patch{
		Status: "failed",
		Error:  &msg,
	})
	os.Exit(1)
}
