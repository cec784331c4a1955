package cmd

import (
	"github.com/spf13/cobra"

	"github.com/24HeuresINSA/OverRun-backend/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer database.Close() //nolint:errcheck
		defer log.Sync()       //nolint:errcheck

		if err := database.Migrate(database.DB); err != nil {
			return err
		}
		log.Info("Database schema up to date")
		return nil
	},
}
