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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relmap/services/relmap/query"
)

func newCallersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callers <function>",
		Short: "List the functions calling a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd, flagRoot)
			if err != nil {
				return err
			}
			results, err := engine.Callers(cmd.Context(), args[0], flagLimit)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s (%d callers)\n", r.Target, r.TotalCallers)
				for _, caller := range r.Callers {
					fmt.Printf("  <- %s\n", caller)
				}
			}
			return nil
		},
	}
}

func newCalleesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callees <function>",
		Short: "List the functions a function calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd, flagRoot)
			if err != nil {
				return err
			}
			results, err := engine.Callees(cmd.Context(), args[0], flagLimit)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s (%d callees)\n", r.Source, r.TotalCallees)
				for _, callee := range r.Callees {
					fmt.Printf("  -> %s\n", callee)
				}
			}
			return nil
		},
	}
}

func newDeadCodeCmd() *cobra.Command {
	var includePublic bool

	cmd := &cobra.Command{
		Use:   "dead-code",
		Short: "List declared functions with no callers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := buildEngine(cmd, flagRoot)
			if err != nil {
				return err
			}
			candidates, err := engine.DeadCode(cmd.Context(), query.DeadCodeOptions{
				IncludePublic: includePublic,
				Limit:         flagLimit,
			})
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Println("No dead code candidates found.")
				return nil
			}
			for _, c := range candidates {
				marker := ""
				if c.IsPublic {
					marker = " (pub)"
				}
				fmt.Printf("%s%s\n  %s\n", c.QualifiedName, marker, c.FilePath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includePublic, "include-public", false, "report public functions too")
	return cmd
}

func newImplsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "impls <type-or-trait>",
		Short: "Show implementation records for a type or trait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd, flagRoot)
			if err != nil {
				return err
			}
			result, err := engine.Implementations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range result.Entries {
				rec := e.Record
				switch {
				case rec.IsTraitDef:
					fmt.Printf("trait %s", rec.TypeName)
					if len(rec.ParentTraits) > 0 {
						fmt.Printf(": %s", strings.Join(rec.ParentTraits, " + "))
					}
				case rec.TraitName != "":
					fmt.Printf("impl %s for %s", rec.TraitName, rec.TypeName)
				default:
					fmt.Printf("impl %s", rec.TypeName)
				}
				fmt.Printf("\n  methods: %s\n", strings.Join(rec.Methods, ", "))
			}
			return nil
		},
	}
}

func newChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <from> <to>",
		Short: "Find a call path between two functions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cmd, flagRoot)
			if err != nil {
				return err
			}
			path, err := engine.CallChain(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(path, " -> "))
			return nil
		},
	}
}

// buildEngine runs a build over root and returns a query engine.
func buildEngine(cmd *cobra.Command, root string) (*query.Engine, error) {
	rels, err := buildGraph(cmd.Context(), root)
	if err != nil {
		return nil, err
	}
	reportFailures(rels)
	return query.NewEngine(rels), nil
}
