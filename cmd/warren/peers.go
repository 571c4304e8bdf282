package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Inspect the peer roster",
}

var peersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every peer in the roster",
	RunE:  runPeersList,
}

func init() {
	addStoreFlag(peersListCmd)
	peersCmd.AddCommand(peersListCmd)
}

func runPeersList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dsn, _ := cmd.Flags().GetString("store-dsn")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	peers, err := st.Peers().ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("scan peers: %w", err)
	}

	fmt.Printf("Peers count: %d\n", len(peers))
	for _, p := range peers {
		fmt.Println()
		fmt.Printf("Node ID: %s\n", p.NodeID)
		if p.Hostname != "" {
			fmt.Printf("Hostname: %s\n", p.Hostname)
		}
		fmt.Printf("Last seen: %s\n", humanizeSince(p.LastSeen))
		hasKey := "NO"
		if len(p.RecipientKey) > 0 {
			hasKey = "YES"
		}
		fmt.Printf("Has Age public key: %s\n", hasKey)
		fmt.Printf("Ticket: %s\n", p.Ticket)
	}
	return nil
}
