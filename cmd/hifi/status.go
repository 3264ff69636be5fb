package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/status"
	"hifi-download-manager/internal/store"
)

func newStatusCmd() *cobra.Command {
	var (
		all    bool
		active bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status [download-id]",
		Short: "Check download progress",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			reader := status.NewReader(store.New(cfg.StateDir))

			if len(args) == 1 {
				d, err := reader.Get(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						fmt.Fprintf(os.Stderr, "Download %s not found\n", args[0])
						os.Exit(1)
					}
					return err
				}
				if asJSON {
					return printJSON(d)
				}
				fmt.Println(status.FormatDetail(d))
				return nil
			}

			if !all && !active {
				return cmd.Help()
			}

			list, err := reader.List(cmd.Context(), active)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				if asJSON {
					fmt.Println("[]")
				} else {
					fmt.Println("No downloads found.")
				}
				return nil
			}
			if asJSON {
				return printJSON(list)
			}
			fmt.Println(status.FormatTable(list))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show all downloads")
	cmd.Flags().BoolVar(&active, "active", false, "Show only pending/in_progress downloads")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
