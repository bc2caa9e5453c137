package cmd

import (
	"context"
	"fmt"

	"hightech/internal/config"
	"hightech/internal/server"
	"hightech/internal/services"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin console accounts",
}

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create an admin account",
	RunE:  runAddUser,
}

func init() {
	addUserCmd.Flags().StringVar(&adminEmail, "email", "", "admin email (required)")
	addUserCmd.Flags().StringVar(&adminPassword, "password", "", "admin password, at least 6 characters (required)")
	addUserCmd.MarkFlagRequired("email")
	addUserCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(addUserCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAddUser(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBDriver == config.DriverMemory {
		return fmt.Errorf("db_driver %q does not persist accounts; use sqlite, postgres or mongo", cfg.DBDriver)
	}

	stores, err := server.OpenStores(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer stores.Close()

	authService := services.NewAuthService(stores.Users, cfg.JWTSecret, cfg.TokenTTL)
	user, err := authService.RegisterUser(adminEmail, adminPassword)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Admin user %s created (id %s)\n", user.Email, user.ID)
	return nil
}
