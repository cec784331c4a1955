package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/common/logger"
	"github.com/24HeuresINSA/OverRun-backend/config"
	"github.com/24HeuresINSA/OverRun-backend/database"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "overrun",
	Short:         "OverRun registration and payment backend",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

// Execute runs the command selected on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration, initializes the global logger and
// opens the database.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Initialize(cfg.Env)

	if _, err := database.Connect(cfg.DSN(), log); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
