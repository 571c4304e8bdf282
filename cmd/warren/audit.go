package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events, oldest first",
	RunE:  runAuditList,
}

func init() {
	addStoreFlag(auditListCmd)
	auditListCmd.Flags().Int("limit", 0, "max events to show, most recent (0 for the full log)")
	auditCmd.AddCommand(auditListCmd)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dsn, _ := cmd.Flags().GetString("store-dsn")
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Audit().List(ctx, limit)
	if err != nil {
		return fmt.Errorf("list audit events: %w", err)
	}

	fmt.Printf("Events count: %d\n", len(events))
	for _, ev := range events {
		fmt.Println()
		fmt.Printf("Event Type: %s\n", ev.Type)
		fmt.Printf("Message: %s\n", ev.Message)
		fmt.Printf("Timestamp: %s (%s)\n", humanizeSince(ev.CreatedAt), ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))

		data := ev.Data
		if data == nil {
			data = map[string]string{}
		}
		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal audit data: %w", err)
		}
		fmt.Printf("Data: %s\n", pretty)
	}
	return nil
}
