package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warren-mesh/warren/pkg/store"
	"github.com/warren-mesh/warren/pkg/store/memstore"
	"github.com/warren-mesh/warren/pkg/store/pgstore"
)

// addStoreFlag registers the --store-dsn flag shared by every command that
// touches persisted state. An empty DSN falls back to an in-memory store,
// useful for trying warren out without standing up Postgres first — but
// nothing written to it survives the process exiting.
func addStoreFlag(cmd *cobra.Command) *string {
	return cmd.Flags().String("store-dsn", "", "PostgreSQL connection string (empty uses a throwaway in-memory store)")
}

func openStore(ctx context.Context, dsn string) (store.Store, error) {
	if dsn == "" {
		return memstore.New(), nil
	}
	s, err := pgstore.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}
