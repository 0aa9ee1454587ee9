package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jansaakshi/backend/service"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute project statuses and delays from their dates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		scanned, updated, err := service.NewReconciler(db, nil).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d projects, updated %d\n", scanned, updated)
		return nil
	},
}
