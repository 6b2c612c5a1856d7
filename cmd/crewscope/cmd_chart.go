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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/crewscope/services/scope/discovery"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	chartEntityName string // Render only the entity with this name
	chartMermaid    bool   // Emit Mermaid instead of ASCII
	chartReport     bool   // Emit the full Markdown report
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// chartCmd renders flow charts for discovered entities.
//
// # Description
//
// Runs a discovery scan and prints the execution chart of every flow and
// crew that produced one. By default the chart is ASCII; --mermaid emits
// Mermaid diagram syntax and --report emits the full Markdown analysis
// report including routing, human touch points, and integrations.
//
// # Examples
//
//	crewscope chart ./my-project                     # ASCII charts, all entities
//	crewscope chart . --entity ReportFlow            # One entity
//	crewscope chart . --mermaid                      # Mermaid syntax
//	crewscope chart . --entity ReportFlow --report   # Full Markdown report
//
// # Limitations
//
//   - Router path probabilities are never estimated; unresolved branches
//     render as open questions rather than guesses
var chartCmd = &cobra.Command{
	Use:   "chart [path]",
	Short: "Render execution charts for discovered flows and crews",
	Long: `Renders the execution structure of discovered flows and crews.

Charts are reconstructed from static signals: start methods, listener
dependencies, router branches, human touch points, and external
integrations. Durations and complexity labels are fixed heuristics.

Examples:
  crewscope chart ./my-project                     # ASCII, all entities
  crewscope chart . --entity ReportFlow            # Single entity
  crewscope chart . --mermaid                      # Mermaid diagram syntax
  crewscope chart . --entity ReportFlow --report   # Markdown report`,
	Args: cobra.MaximumNArgs(1),
	Run:  runChartCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	chartCmd.Flags().StringVar(&chartEntityName, "entity", "",
		"Render only the entity with this name")
	chartCmd.Flags().BoolVar(&chartMermaid, "mermaid", false,
		"Emit Mermaid diagram syntax instead of ASCII")
	chartCmd.Flags().BoolVar(&chartReport, "report", false,
		"Emit the full Markdown analysis report")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runChartCommand(cmd *cobra.Command, args []string) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	opts := discovery.DefaultOptions(root)
	d, err := discovery.New(opts, discovery.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	result, err := d.Discover(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: discovery failed: %v\n", err)
		os.Exit(1)
	}

	printed := 0
	for _, e := range result.Entities {
		if chartEntityName != "" && e.Name != chartEntityName {
			continue
		}
		out := chartOutput(e)
		if out == "" {
			continue
		}
		if printed > 0 {
			fmt.Println()
		}
		fmt.Println(out)
		printed++
	}

	if printed == 0 {
		if chartEntityName != "" {
			fmt.Fprintf(os.Stderr, "Error: no chartable entity named %q found under %s\n",
				chartEntityName, root)
		} else {
			fmt.Fprintf(os.Stderr, "Error: no chartable entities found under %s\n", root)
		}
		os.Exit(1)
	}
}

// chartOutput picks the requested artifact for one entity. YAML-only
// entities carry no charts and are skipped.
func chartOutput(e discovery.Entity) string {
	switch {
	case chartReport:
		return e.Artifacts.Report
	case chartMermaid:
		return e.Artifacts.MermaidChart
	default:
		return e.Artifacts.FlowChart
	}
}
