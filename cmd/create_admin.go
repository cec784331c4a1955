package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/database"
	"github.com/24HeuresINSA/OverRun-backend/repository"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an active admin account",
	Long: `Create a user with an active admin role, for the first login.

Examples:
  overrun create-admin --username orga --email orga@24heures.org --password changeme`,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin e-mail address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "initial password")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if len(adminPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	_, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck
	defer log.Sync()       //nolint:errcheck

	svc := services.NewAdminService(repository.NewGormUserRepository(database.DB), nil, "", 0, log)
	admin, err := svc.Bootstrap(cmd.Context(), adminUsername, adminEmail, adminPassword)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	log.Info("Admin created", zap.String("admin_id", admin.ID.String()), zap.String("username", adminUsername))
	return nil
}
