package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kasturi-ledger/internal/coins"
	"kasturi-ledger/internal/lock"
	"kasturi-ledger/internal/repository"
	"kasturi-ledger/internal/service"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Bool("fix", false, "Rewrite drifted projections from the ledger")
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare cached balances with their ledgers",
	Long: `Replays every batch and wallet ledger and reports rows whose cached
remainingQuantity, balance or pendingBalance disagree with the replay.
--fix takes the same per-aggregate locks as the API. With REDIS_ADDR unset
those locks are process-local, so stop the API before repairing.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := openDB(); err != nil {
		return err
	}
	fix, _ := cmd.Flags().GetBool("fix")

	locker, closeLocker, err := lock.Open(cmd.Context(), cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	svc := service.NewReconcileService(
		db,
		repository.NewBatchRepo(db),
		repository.NewWalletRepo(db),
		repository.NewLedgerRepo(db),
		locker,
		coins.Tiers{Silver: cfg.Ledger.TierSilver, Gold: cfg.Ledger.TierGold},
	)
	drifts, err := svc.Reconcile(cmd.Context(), fix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(drifts) == 0 {
		fmt.Fprintln(out, "All projections match their ledgers.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARENT\tLABEL\tFIELD\tCACHED\tLEDGER\tFIXED")
	for _, d := range drifts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%t\n", d.ParentType, d.Label, d.Field, d.Cached, d.Ledger, d.Fixed)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !fix {
		return fmt.Errorf("%d projection(s) drifted; rerun with --fix to repair", len(drifts))
	}
	return nil
}
