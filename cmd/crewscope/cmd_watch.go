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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/crewscope/services/scope/discovery"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	watchDebounce time.Duration // Quiet period before rescanning
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// watchCmd continuously rescans a project as it changes.
//
// # Description
//
// Watches the project tree and re-runs discovery whenever a Python or
// YAML file changes, printing a one-line summary per scan. Useful while
// iterating on flow structure.
//
// # Examples
//
//	crewscope watch ./my-project              # Rescan on every change
//	crewscope watch . --debounce 2s           # Wait longer between scans
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan a project whenever its source or config changes",
	Long: `Watches a project and re-runs discovery on every relevant change.

An initial scan runs immediately. After that, bursts of file events are
debounced so one save triggers one rescan. Stop with Ctrl-C.

Examples:
  crewscope watch ./my-project              # Rescan on every change
  crewscope watch . --debounce 2s           # Longer quiet period`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatchCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond,
		"Quiet period after the last file event before rescanning")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatchCommand(cmd *cobra.Command, args []string) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	opts := discovery.DefaultOptions(root)
	opts.IncludeReports = false
	d, err := discovery.New(opts, discovery.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher, err := discovery.NewWatcher(d, printRescan, &discovery.WatcherOptions{
		DebounceWindow: watchDebounce,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: watch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", root)
	<-ctx.Done()
	fmt.Println("\nStopped.")
}

// printRescan is the per-scan summary line.
func printRescan(result *discovery.Result, err error) {
	stamp := time.Now().Format("15:04:05")
	if err != nil {
		fmt.Printf("[%s] scan failed: %v\n", stamp, err)
		return
	}
	fmt.Printf("[%s] %d entities (%d agents, %d crews, %d flows) from %d files in %dms\n",
		stamp, len(result.Entities),
		result.Stats.AgentCount, result.Stats.CrewCount, result.Stats.FlowCount,
		result.Stats.FilesScanned, result.Stats.DurationMillis)
}
