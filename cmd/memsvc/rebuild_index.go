package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/memsvc/internal/memsvc/config"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Load every durable embedding across all projects into the in-memory Vector Index, then exit",
	RunE:  runRebuildIndex,
}

func runRebuildIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("rebuild-index: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("rebuild-index: %w", err)
	}
	defer a.close()

	if err := a.rebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild-index: %w", err)
	}

	fmt.Printf("rebuilt vector index: %d entries\n", a.index.Len())
	return nil
}
