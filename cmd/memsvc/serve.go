package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kittclouds/memsvc/internal/memsvc/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the in-memory Vector Index and run the Indexing Pipeline's worker pool until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer a.close()

	// Build runs off the request path: serving can begin
	// immediately while the startup rebuild populates the index.
	go func() {
		if err := a.rebuildIndex(ctx); err != nil {
			a.logger.Warn("vector index startup rebuild failed", map[string]any{"error": err.Error()})
		} else {
			a.logger.Info("vector index startup rebuild complete", map[string]any{"entries": a.index.Len()})
		}
	}()

	a.logger.Info("memsvc serving", map[string]any{
		"worker_pool_size": cfg.WorkerPoolSize,
		"project_db_dir":   cfg.ProjectDBDir,
	})

	<-ctx.Done()
	a.logger.Info("memsvc shutting down", nil)
	return nil
}
