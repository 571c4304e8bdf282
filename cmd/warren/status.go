package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-line summary of this node's state",
	RunE:  runStatus,
}

func init() {
	addStoreFlag(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dsn, _ := cmd.Flags().GetString("store-dsn")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := st.Peers().Count(ctx)
	if err != nil {
		return fmt.Errorf("count peers: %w", err)
	}

	fmt.Println("Status:")
	fmt.Printf("Peers count: %d\n", count)
	return nil
}
