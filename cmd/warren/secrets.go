package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// secretsCmd is read-only: the local-write path that creates/deletes
// secrets is delegated to an external collaborator (spec §6), so the CLI
// only exposes the Secret store's grouped view for operator inspection.
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Inspect replicated secrets",
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List secrets grouped by name, one entry per target",
	RunE:  runSecretsList,
}

func init() {
	addStoreFlag(secretsListCmd)
	secretsCmd.AddCommand(secretsListCmd)
}

func runSecretsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dsn, _ := cmd.Flags().GetString("store-dsn")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	groups, err := st.Secrets().GroupedByName(ctx)
	if err != nil {
		return fmt.Errorf("group secrets: %w", err)
	}

	fmt.Printf("Secrets count: %d\n", len(groups))
	for _, g := range groups {
		fmt.Println()
		fmt.Printf("Name: %s\n", g.Name)
		for _, rec := range g.Targets {
			fmt.Printf("  Target: %s\n", rec.Target)
			fmt.Printf("    Hash: %s\n", rec.Hash)
			fmt.Printf("    Updated: %s\n", humanizeSince(rec.UpdatedAt))
		}
	}
	return nil
}
