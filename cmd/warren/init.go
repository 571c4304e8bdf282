package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warren-mesh/warren/pkg/audit"
	"github.com/warren-mesh/warren/pkg/meshbus"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate or display this node's identity and connection ticket",
	RunE:  runInit,
}

func init() {
	addStoreFlag(initCmd)
	initCmd.Flags().String("advertise-addr", "", "address other nodes should dial to reach this node, e.g. 203.0.113.7:27511 (required)")
	initCmd.MarkFlagRequired("advertise-addr")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dsn, _ := cmd.Flags().GetString("store-dsn")
	advertiseAddr, _ := cmd.Flags().GetString("advertise-addr")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	existing, err := st.Identity().Get(ctx)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if existing != nil {
		fmt.Println("Identity already exists")
	} else {
		fmt.Println("Generating new identity")
	}

	id, err := loadOrGenerateIdentity(ctx, st.Identity(), audit.New(st.Audit()))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Node ID: %s\n", id.NodeID())
	fmt.Printf("Fingerprint: %s\n", id.Fingerprint())
	fmt.Printf("Recipient Public Key: %s\n", base64.StdEncoding.EncodeToString(id.RecipientPublicKey[:]))

	ticket := meshbus.EncodeTicket(meshbus.Ticket{
		Addr:         advertiseAddr,
		NodeID:       id.NodeID(),
		RecipientKey: id.RecipientPublicKey[:],
	})
	fmt.Println()
	fmt.Printf("Ticket: %s\n", ticket)
	fmt.Println()
	fmt.Println("Share this ticket so other nodes can reach this one with `warren server <ticket>`.")

	return nil
}
