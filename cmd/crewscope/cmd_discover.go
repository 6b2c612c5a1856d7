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
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/crewscope/services/scope/discovery"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	discoverJSONOutput bool   // Output as JSON
	discoverDedup      string // Dedup policy: prefer_code or prefer_yaml
	discoverMaxSize    int64  // Max source file size in bytes (0 = parser default)
	discoverType       string // Restrict to one entity type: agent, crew, flow
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// discoverCmd scans a project and lists every discovered entity.
//
// # Description
//
// Walks the project tree, parses candidate Python sources, correlates
// them with YAML configuration, and prints one row per discovered agent,
// crew, or flow. The scan is read-only and never executes project code.
//
// # Examples
//
//	crewscope discover ./my-project              # Table of entities
//	crewscope discover ./my-project --json       # Full records for scripting
//	crewscope discover . --dedup prefer_yaml     # YAML wins on name collisions
//	crewscope discover . --type flow             # Flows only
//
// # Limitations
//
//   - Entities built dynamically at runtime are invisible to static analysis
//   - Timeout and complexity figures are fixed heuristics, not measurements
var discoverCmd = &cobra.Command{
	Use:   "discover [path]",
	Short: "Discover agents, crews, and flows in a project",
	Long: `Discovers every agent, crew, and flow defined in a project.

The scan combines two sources: Python source files (decorator and
constructor analysis) and YAML configuration files (agents.yaml,
tasks.yaml, crews.yaml). Entities defined in both are merged according
to the --dedup policy.

Examples:
  crewscope discover ./my-project              # Table of entities
  crewscope discover ./my-project --json       # Full records as JSON
  crewscope discover . --dedup prefer_yaml     # YAML wins name collisions
  crewscope discover . --type crew             # Crews only`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDiscoverCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSONOutput, "json", false,
		"Output full entity records as JSON")
	discoverCmd.Flags().StringVar(&discoverDedup, "dedup", string(discovery.PreferCode),
		"Duplicate resolution policy: prefer_code or prefer_yaml")
	discoverCmd.Flags().Int64Var(&discoverMaxSize, "max-file-size", 0,
		"Maximum source file size in bytes (0 uses the parser default)")
	discoverCmd.Flags().StringVar(&discoverType, "type", "",
		"Restrict output to one entity type: agent, crew, or flow")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runDiscoverCommand(cmd *cobra.Command, args []string) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	result, err := runDiscovery(cmd.Context(), root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: discovery failed: %v\n", err)
		os.Exit(1)
	}

	if discoverJSONOutput {
		printDiscoveryJSON(result)
		return
	}
	printDiscoveryTable(result)
}

// runDiscovery builds a discoverer from the shared flags and runs one scan.
// The chart and report artifacts are only generated when JSON output was
// requested, since the table view never shows them.
func runDiscovery(ctx context.Context, root string) (*discovery.Result, error) {
	opts := discovery.DefaultOptions(root)
	opts.Dedup = discovery.DedupPolicy(discoverDedup)
	opts.IncludeReports = discoverJSONOutput
	if discoverMaxSize > 0 {
		opts.MaxFileSize = discoverMaxSize
	}

	switch discoverType {
	case "":
		d, err := discovery.New(opts, discovery.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return d.Discover(ctx)
	case string(discovery.EntityAgent):
		d, err := discovery.NewAgentDiscoverer(opts, discovery.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return d.Discover(ctx)
	case string(discovery.EntityCrew):
		d, err := discovery.NewTeamDiscoverer(opts, discovery.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return d.Discover(ctx)
	case string(discovery.EntityFlow):
		d, err := discovery.NewFlowDiscoverer(opts, discovery.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return d.Discover(ctx)
	default:
		return nil, fmt.Errorf("unknown entity type %q (want agent, crew, or flow)", discoverType)
	}
}

func printDiscoveryJSON(result *discovery.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding result: %v\n", err)
		os.Exit(1)
	}
}

func printDiscoveryTable(result *discovery.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tSOURCE\tMEMBERS\tTIMEOUT\tPATH")
	for _, e := range result.Entities {
		timeout := "-"
		if e.Execution.EstimatedTimeoutMillis > 0 {
			timeout = fmt.Sprintf("%dms", e.Execution.EstimatedTimeoutMillis)
		}
		path := e.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Type, e.Name, e.Source, e.Composition.MemberCount, timeout, path)
	}
	w.Flush()

	fmt.Printf("\n%d entities (%d agents, %d crews, %d flows) from %d files in %dms\n",
		len(result.Entities),
		result.Stats.AgentCount, result.Stats.CrewCount, result.Stats.FlowCount,
		result.Stats.FilesScanned, result.Stats.DurationMillis)

	if result.Consistency != nil && !result.Consistency.Clean() {
		fmt.Println("\nConfiguration issues:")
		for _, msg := range result.Consistency.Errors {
			fmt.Printf("  error: %s\n", msg)
		}
		for _, msg := range result.Consistency.Warnings {
			fmt.Printf("  warning: %s\n", msg)
		}
	}
}
