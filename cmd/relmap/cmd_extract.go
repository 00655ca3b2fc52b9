// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relmap/services/relmap/graph"
)

// newExtractCmd builds the one-shot extraction command.
func newExtractCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract [root]",
		Short: "Extract a relationship graph and write it as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := flagRoot
			if len(args) == 1 {
				root = args[0]
			}

			rels, err := buildGraph(cmd.Context(), root)
			if err != nil {
				return err
			}

			data, err := rels.ToJSON()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				fmt.Println(string(data))
			} else if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			reportFailures(rels)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// newWatchCmd builds the continuous extraction command.
func newWatchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Rebuild the graph whenever source files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := flagRoot
			if len(args) == 1 {
				root = args[0]
			}

			handler := func(rels *graph.Relationships, err error) {
				if err != nil || rels == nil {
					return
				}
				data, jsonErr := rels.ToJSON()
				if jsonErr != nil {
					return
				}
				if output == "" || output == "-" {
					fmt.Println(string(data))
					return
				}
				_ = os.WriteFile(output, data, 0o644)
			}

			watcher, err := graph.NewWatcher(root, newBuilder(root), handler, 0)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// buildGraph runs a one-shot build over root.
func buildGraph(ctx context.Context, root string) (*graph.Relationships, error) {
	return newBuilder(root).BuildDir(ctx, root)
}

// reportFailures prints skipped files to stderr.
func reportFailures(rels *graph.Relationships) {
	for _, f := range rels.ParseFailures() {
		if f.Line > 0 {
			fmt.Fprintf(os.Stderr, "skipped %s:%d:%d: %s\n", f.FilePath, f.Line, f.Column, f.Message)
		} else {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", f.FilePath, f.Message)
		}
	}
	for _, f := range rels.InvariantFailures() {
		fmt.Fprintf(os.Stderr, "aborted %s: %s\n", f.FilePath, f.Message)
	}
}
