package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jansaakshi/backend/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo cities, projects and meetings",
	Long: `Load the built-in demo dataset, or a dataset file with the same layout.
Seeding is idempotent: projects are matched by city and name, meetings by id.

Examples:
  jansaakshi seed
  jansaakshi seed --file data/pune.yaml`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "dataset file (defaults to the built-in dataset)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	data := seed.Default()
	if seedFile != "" {
		if data, err = os.ReadFile(seedFile); err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}
	}

	res, err := seed.Load(cmd.Context(), db, data, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d cities, %d projects, %d meetings, %d new users\n",
		res.Cities, res.Projects, res.Meetings, res.Users)
	return nil
}
