package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kasturi-ledger/pkg/jwt"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user", "", "Wallet user id (identity provider uid)")
	tokenCmd.Flags().String("email", "", "Optional email claim")
	_ = tokenCmd.MarkFlagRequired("user")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a shopper identity token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")

		token, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).GenerateIdentityToken(uid, email)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
