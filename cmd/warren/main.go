// Package main implements the warren CLI: the operator surface over a
// node's identity, peer roster, secret replication, and audit log (spec
// §7). Grounded on original_source/src/commands/*.rs for verb semantics and
// SAGE-X's cmd/sage-crypto for cobra root-command wiring.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "warren is a gossiping mesh for distributing secrets between nodes",
	Long: `warren runs a peer-to-peer mesh of nodes that gossip signed
messages to converge on a shared peer roster and a set of per-target
encrypted secrets, writing received secrets through to the local OS
credential store.`,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(secretsCmd)
}
