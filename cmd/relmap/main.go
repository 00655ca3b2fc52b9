// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command relmap extracts code relationship graphs from Rust projects
// and answers queries over them.
//
// Usage:
//
//	relmap extract ./myproject -o relationships.json
//	relmap callers process_event --root ./myproject
//	relmap dead-code --root ./myproject
//	relmap impls Shape --root ./myproject
//	relmap chain main flush --root ./myproject
//	relmap serve --port 8080
//	relmap watch ./myproject -o relationships.json
//
// Example requests against the server:
//
//	curl -X POST http://localhost:8080/v1/relmap/extract \
//	  -H "Content-Type: application/json" \
//	  -d '{"root": "/path/to/project"}'
//
//	curl 'http://localhost:8080/v1/relmap/callers?name=process_event'
//	curl http://localhost:8080/v1/relmap/export | jq
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relmap/services/relmap/graph"
)

// Shared flag values.
var (
	flagRoot    string
	flagWorkers int
	flagLimit   int
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relmap",
		Short: "Code relationship extraction for Rust projects",
		Long: "relmap builds a call graph, a usage graph, and a trait\n" +
			"implementation table from Rust source, and answers queries\n" +
			"over them.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root to analyze")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parallel parse workers (0 = all CPUs)")
	rootCmd.PersistentFlags().IntVar(&flagLimit, "limit", 0, "maximum results per query (0 = default)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newExtractCmd(),
		newCallersCmd(),
		newCalleesCmd(),
		newDeadCodeCmd(),
		newImplsCmd(),
		newChainCmd(),
		newServeCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newBuilder creates a builder honoring the shared flags and the
// project config's worker override.
func newBuilder(root string) *graph.Builder {
	workers := flagWorkers
	if workers == 0 {
		if cfg, err := graph.LoadProjectConfig(root); err == nil && cfg.Workers > 0 {
			workers = cfg.Workers
		}
	}
	return graph.NewBuilder(graph.WithWorkerCount(workers))
}
