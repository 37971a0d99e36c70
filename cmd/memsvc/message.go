package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/memsvc/internal/memsvc/config"
)

var (
	messageProject string
	messageChat    string
	messageID      string
	messageRole    string
)

var messageCmd = &cobra.Command{
	Use:   "message [text]",
	Short: "Route a single message through the dispatcher and print the structured result",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessage,
}

func init() {
	messageCmd.Flags().StringVar(&messageProject, "project", "", "project UUID (required)")
	messageCmd.Flags().StringVar(&messageChat, "chat", "cli", "chat id to record the message under")
	messageCmd.Flags().StringVar(&messageID, "message-id", "", "stable message id (defaults to the current unix-milli timestamp)")
	messageCmd.Flags().StringVar(&messageRole, "role", "user", "message role")
	_ = messageCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(messageCmd)
}

func runMessage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}
	defer a.close()

	if err := a.rebuildIndex(ctx); err != nil {
		a.logger.Warn("vector index rebuild failed, continuing with durable fallback", map[string]any{"error": err.Error()})
	}

	now := time.Now()
	msgID := messageID
	if msgID == "" {
		msgID = fmt.Sprintf("%d", now.UnixMilli())
	}

	messageUUID, result, err := a.handleMessage(ctx, messageProject, messageChat, msgID, messageRole, args[0], now.UnixMilli(), 0)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}

	out := map[string]any{
		"message_uuid": messageUUID,
		"plan":         result.Plan,
	}
	if result.ApplyResult != nil {
		out["apply_result"] = result.ApplyResult
	}
	if result.FactsResult != nil {
		out["facts_answer"] = result.FactsResult
	}
	if result.IndexResult != nil {
		out["index_hits"] = result.IndexResult
	}
	if result.FilesResult != nil {
		out["file_hits"] = result.FilesResult
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
