// Package main is the memory service's composition root: a cobra root
// command with serve, rebuild-index, and message subcommands wired over
// the per-project fact stores, the global alias table, and the
// in-memory vector index.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "memsvc",
	Short:         "Per-project memory service: facts, ranked lists, content-plane routing, and semantic search",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (optional; env vars prefixed MEMSVC_ also apply)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildIndexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "memsvc:", err)
		os.Exit(1)
	}
}
