package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/webingest/internal/logging"
)

var purgeYes bool

// purgeCmd deletes all indexed content.
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all indexed content",
	Long: `Remove every indexed chunk by dropping and recreating the collection.
Purging an already-empty index succeeds.

Examples:
  webingest purge --yes`,
	Args: cobra.NoArgs,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "skip the confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	if !purgeYes {
		return fmt.Errorf("purge deletes all indexed content; re-run with --yes to confirm")
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync(a.logger)

	embedder, store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer embedder.Close()
	defer store.Close()

	if err := store.Purge(cmd.Context()); err != nil {
		return fmt.Errorf("purging collection: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Index purged.")
	return nil
}
