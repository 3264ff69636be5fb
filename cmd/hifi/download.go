package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/launcher"
	"hifi-download-manager/internal/platform"
	"hifi-download-manager/internal/store"
)

func newDownloadCmd() *cobra.Command {
	var (
		platformName string
		itemType     string
		output       string
		quiet        bool
		sync         bool
	)

	cmd := &cobra.Command{
		Use:   "download <item-id>",
		Short: "Download a track or album from TIDAL or Qobuz",
		Long: `Download queues a background download and returns its id immediately.
Use --sync to block until the download finishes instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			itemID := args[0]

			if _, err := platform.ParseItemType(itemType); err != nil {
				exitWithError(err)
			}

			if sync {
				runSyncDownload(cmd, cfg, platformName, itemID, itemType, output, quiet)
				return nil
			}

			st := store.New(cfg.StateDir)
			id, err := launcher.New(cfg, st).Submit(cmd.Context(), platformName, itemID, itemType, output)
			if err != nil {
				exitWithError(err)
			}

			fmt.Printf("Download queued: %s\n", id)
			fmt.Printf("Platform: %s | Type: %s | ID: %s\n", strings.ToUpper(platformName), itemType, itemID)
			fmt.Printf("Check status: hifi status %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&platformName, "platform", "p", "", "Platform to download from (qobuz or tidal)")
	cmd.Flags().StringVarP(&itemType, "type", "t", "album", "Item type (track or album)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Custom output path")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVar(&sync, "sync", false, "Block until the download completes")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

// runSyncDownload is the blocking legacy path: the backend result is echoed
// in its textual form, errors included.
func runSyncDownload(cmd *cobra.Command, cfg config.Config, platformName, itemID, itemType, output string, quiet bool) {
	if err := cfg.CheckPlatform(platformName); err != nil {
		exitWithError(err)
	}
	backend, err := platform.New(platformName, cfg)
	if err != nil {
		exitWithError(err)
	}
	kind, err := platform.ParseItemType(itemType)
	if err != nil {
		exitWithError(err)
	}

	var progress platform.ProgressFunc
	if !quiet {
		progress = func(done, total int) {
			if total > 0 {
				fmt.Printf("Progress: %d/%d (%d%%)\n", done, total, done*100/total)
			}
		}
	}

	fmt.Printf("Starting download from %s...\n", strings.ToUpper(platformName))
	res, err := backend.Download(cmd.Context(), itemID, kind, output, progress)
	if err != nil {
		// Legacy contract: failures are text on stdout, not an exit code.
		fmt.Println(err.Error())
		return
	}
	fmt.Println(res.Legacy())
}
