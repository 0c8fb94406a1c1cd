// Command ledgerctl is the operator tool for the Kasturi ledger database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"kasturi-ledger/internal/config"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/pkg/database"
	"kasturi-ledger/pkg/logger"
)

var (
	cfg *config.Config
	db  *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the Kasturi batch and coin ledgers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger.SetLevel(cfg.App.LogLevel)
		return nil
	},
}

// openDB connects and migrates. Commands that only sign tokens skip it.
func openDB() error {
	var err error
	if db, err = database.Connect(cfg); err != nil {
		return err
	}
	return repository.AutoMigrate(db)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
