package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/config"
	"github.com/haimhm/datacatalog/catalog/database"
	"github.com/haimhm/datacatalog/catalog/database/migrations"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "data_catalog",
	Short:         "Data product catalog server and admin tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Optional path to an env file to load before reading the environment")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, createUserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating log directory %v: %w", dir, err)
	}
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file %v: %w", name, err)
	}
	return file, nil
}

// openDb connects to the configured database, applies migrations and ensures the
// bootstrap users exist.
func openDb(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseUri, cfg.SqlitePath)
	if err != nil {
		return nil, err
	}

	if err := migrations.Run(db); err != nil {
		return nil, err
	}

	err = auth.EnsureBootstrapUsers(db,
		auth.BootstrapUser{Username: cfg.Admin.Username, Password: cfg.Admin.Password},
		auth.BootstrapUser{Username: cfg.DefaultUser.Username, Password: cfg.DefaultUser.Password},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and bootstrap users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		if _, err := openDb(cfg); err != nil {
			return err
		}

		slog.Info("database is up to date", "code", logging.SYSTEM_MIGRATE)
		return nil
	},
}
