package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gition/gition/internal/config"
	"github.com/gition/gition/internal/db"
	"github.com/gition/gition/internal/server"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "gition",
		Short: "Branch-aware git workspace gateway",
		Long:  "Gition is a gateway that turns a git-hosting backend into a branch-aware browsing workspace: branch selection, README resolution, search, and per-branch notes pages.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gition version %s\n", version)
		},
	}

	var serveHost string
	var servePort int
	var dataDir string
	var databaseURL string
	var backendURL string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gition gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Override with flags if provided
			if serveHost != "" {
				cfg.Server.Host = serveHost
			}
			if servePort != 0 {
				cfg.Server.Port = servePort
			}
			if dataDir != "" {
				cfg.Server.DataDir = dataDir
			}
			if databaseURL != "" {
				cfg.Server.DatabaseURL = databaseURL
			}
			if backendURL != "" {
				cfg.Backend.URL = backendURL
			}

			if err := cfg.EnsureDataDir(); err != nil {
				return fmt.Errorf("failed to create data directories: %w", err)
			}

			// The database is optional: without it the gateway still works,
			// it just loses recent-visit history and the autosave journal.
			var database *db.DB
			if cfg.Server.DatabaseURL != "" {
				database, err = db.Open(cfg.Server.DatabaseURL)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer database.Close()
			} else {
				fmt.Println("no database configured; visit history and draft journal disabled")
			}

			fmt.Printf("backend: %s\n", cfg.Backend.URL)
			if cfg.Server.NatsURL != "" {
				fmt.Printf("NATS URL: %s\n", cfg.Server.NatsURL)
			}

			srv, err := server.New(cfg, database)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigCh
				fmt.Println("\nshutting down...")
				srv.Shutdown(context.Background())
			}()

			if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
				return fmt.Errorf("server error: %w", err)
			}

			return nil
		},
	}

	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to bind (default from config)")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default from config)")
	serveCmd.Flags().StringVar(&databaseURL, "database-url", "", "database URL (default from config)")
	serveCmd.Flags().StringVar(&backendURL, "backend-url", "", "git backend URL (default from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newRepoCmd())
	rootCmd.AddCommand(newAuthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
