package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hifi-download-manager/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hifi",
	Short: "Hi-Res music download manager for TIDAL and Qobuz",
	Long: `hifi submits, monitors, and serves status for asynchronous Hi-Res music
downloads. Downloads run in detached worker processes and coordinate through
a shared state file, so the CLI returns immediately.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// errorEnvelope is the structured error form printed to stderr for callers
// that script against the CLI.
type errorEnvelope struct {
	Error       string `json:"error"`
	Hint        string `json:"hint"`
	Recoverable bool   `json:"recoverable"`
}

// exitWithError prints a structured JSON error to stderr and exits.
// Configuration errors are recoverable and exit 1; everything else exits 2.
func exitWithError(err error) {
	env := errorEnvelope{Error: "error", Hint: err.Error(), Recoverable: false}
	code := 2

	var notConfigured *config.NotConfiguredError
	if errors.As(err, &notConfigured) {
		env = errorEnvelope{
			Error:       notConfigured.Platform + "_not_configured",
			Hint:        notConfigured.Hint,
			Recoverable: true,
		}
		code = 1
	}

	data, _ := json.Marshal(env)
	fmt.Fprintln(os.Stderr, string(data))
	os.Exit(code)
}
