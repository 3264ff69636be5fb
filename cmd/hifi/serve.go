package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hifi-download-manager/internal/api"
	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/store"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the download status dashboard",
		Long: `Serve starts a local HTTP server exposing the polling API and the
dashboard document. It binds to loopback only and scans forward from the
preferred port when it is taken.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if port != 0 {
				cfg.DashboardPort = port
			}

			st := store.New(cfg.StateDir)
			server := api.New(cfg, st)

			listener, err := server.Listen()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				ch := make(chan os.Signal, 1)
				signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
				<-ch
				cancel()
			}()

			httpServer := &http.Server{Handler: server.Router()}
			go func() {
				if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
					log.Fatalf("serve: %v", err)
				}
			}()

			fmt.Printf("HiFi download dashboard running at http://%s\n", listener.Addr())
			fmt.Printf("State file: %s\n", st.StatePath())
			fmt.Println("Press Ctrl+C to stop")

			<-ctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Preferred port (default from HIFI_DASHBOARD_PORT, 8765)")
	return cmd
}
