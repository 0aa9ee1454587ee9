// Command jansaakshi serves the civic transparency API and runs its
// maintenance tasks.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/store"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jansaakshi",
	Short: "Civic transparency backend for municipal projects and meetings",
	Long: `jansaakshi answers natural-language questions about municipal
infrastructure projects and ward meetings, ingests meeting minutes and keeps
project statuses current.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// setup loads configuration, installs the logger and opens the store
func setup() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.Info("configuration loaded", "path", configPath)

	db, err := store.Open(cfg.Database.Path, store.Options{
		QueryTimeout: time.Duration(cfg.Database.QueryTimeoutSeconds) * time.Second,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
