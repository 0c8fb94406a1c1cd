package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/service"
	"kasturi-ledger/pkg/jwt"
)

func init() {
	rootCmd.AddCommand(resetPasswordCmd)
	resetPasswordCmd.Flags().String("email", "", "Staff account email (defaults to SEED_ADMIN_EMAIL)")
	resetPasswordCmd.Flags().String("password", "", "New password (defaults to SEED_ADMIN_PASSWORD)")
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a staff password and end the account's sessions",
	Args:  cobra.NoArgs,
	RunE:  runResetPassword,
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	if err := openDB(); err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = cfg.Seed.AdminEmail
	}
	if password == "" {
		password = cfg.Seed.AdminPassword
	}

	auth := service.NewAuthService(
		repository.NewUserRepo(db),
		repository.NewRoleRepo(db),
		repository.NewPrivilegeRepo(db),
		jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	)
	if err := auth.ResetPassword(email, password); err != nil {
		return fmt.Errorf("reset password for %s: %w", email, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset; existing sessions were logged out.\n", email)
	return nil
}
