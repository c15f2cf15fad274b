package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaxixak/oracle-v2/internal/indexer"
	"github.com/xaxixak/oracle-v2/internal/sanitize"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one indexing pass to completion and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context())
	},
}

func runIndex(ctx context.Context) error {
	deps, err := initDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	collection := sanitize.CollectionName(deps.cfg.RepoRoot, "", deps.cfg.VectorCollection)
	idx := indexer.New(deps.store, deps.vector, collection, deps.log, deps.provider.Tracer())
	if err := idx.Run(ctx, deps.cfg.RepoRoot); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	deps.log.Info("indexing complete")
	return nil
}
