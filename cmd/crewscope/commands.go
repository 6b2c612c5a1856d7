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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/crewscope/pkg/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	globalVerbose bool // Enable debug logging
	globalQuiet   bool // Suppress console log output
)

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "crewscope",
	Short: "Static analysis and discovery for CrewAI crews and flows",
	Long: `CrewScope statically inspects a CrewAI project's source and YAML
configuration, reconstructs its execution paths, and renders flow charts
and analysis reports.

It never executes the target project: every output is a best-effort
signal derived from declared structure.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if globalVerbose {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			Service: "crewscope",
			Quiet:   globalQuiet,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&globalQuiet, "quiet", "q", false, "Suppress console log output")
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(watchCmd)
}
