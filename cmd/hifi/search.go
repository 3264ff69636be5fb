package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/platform"
)

func newSearchCmd() *cobra.Command {
	var (
		platformName string
		itemType     string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search TIDAL or Qobuz for Hi-Res music",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
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

			result, err := backend.Search(cmd.Context(), args[0], kind, limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&platformName, "platform", "p", "", "Platform to search (qobuz or tidal)")
	cmd.Flags().StringVarP(&itemType, "type", "t", "album", "Search type (track, album, or artist)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of results")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}
