// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/crewscope/pkg/logging"
	"github.com/AleutianAI/crewscope/services/scope/ast"
	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/hitl"
	"github.com/AleutianAI/crewscope/services/scope/integration"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// Directories never descended into during a scan.
var ignoredDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	".env":          true,
	"virtualenv":    true,
	"site-packages": true,
	".tox":          true,
	"tests":         true,
	"test":          true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".ruff_cache":   true,
	"dist":          true,
	"build":         true,
	".idea":         true,
	".vscode":       true,
}

// Discoverer runs the full per-file analysis pipeline over a project
// tree. Files are analyzed sequentially: each file's analysis shares no
// state with any other file's, so a future version may parallelize, but
// the current design trades throughput for predictable resource use.
type Discoverer struct {
	opts         Options
	parser       *ast.PythonParser
	configs      *config.Analyzer
	hitlDetector *hitl.Detector
	integrations *integration.Analyzer
	logger       *logging.Logger
}

// DiscovererOption overrides a collaborator, mainly for tests.
type DiscovererOption func(*Discoverer)

// WithLogger sets the logger used for skip reporting.
func WithLogger(logger *logging.Logger) DiscovererOption {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// WithIntegrationAnalyzer replaces the integration analyzer, e.g. to
// inject a vetted heuristic profile table.
func WithIntegrationAnalyzer(a *integration.Analyzer) DiscovererOption {
	return func(d *Discoverer) {
		d.integrations = a
	}
}

// New creates a Discoverer after validating the options.
func New(opts Options, discOpts ...DiscovererOption) (*Discoverer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var parserOpts []ast.PythonParserOption
	if opts.MaxFileSize > 0 {
		parserOpts = append(parserOpts, ast.WithMaxFileSize(opts.MaxFileSize))
	}

	d := &Discoverer{
		opts:         opts,
		parser:       ast.NewPythonParser(parserOpts...),
		hitlDetector: hitl.NewDetector(),
		integrations: integration.NewAnalyzer(),
	}
	for _, opt := range discOpts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.Default()
	}
	d.configs = config.NewAnalyzer(config.WithLogger(d.logger))
	return d, nil
}

// Discover scans the project root and returns the deduplicated entity
// set with statistics.
//
// Description:
//
//	Configuration is analyzed first so per-file analyses can correlate
//	against it. Candidate files pass a two-stage filter (path exclusion,
//	then a cheap content substring pre-filter) before the parser runs.
//	Per-file failures are logged and counted as skips. Cancellation is
//	honored between files, not within one.
//
// Outputs:
//   - *Result: Entities plus stats plus the advisory consistency report.
//     Always non-nil on success, even when nothing was found.
//   - error: Only when the root itself cannot be read or ctx is done.
func (d *Discoverer) Discover(ctx context.Context) (*Result, error) {
	started := time.Now()

	cfgResult, err := d.configs.Analyze(ctx, d.opts.Root)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Stats:       Stats{RunID: uuid.NewString()},
		Consistency: d.configs.CheckConsistency(cfgResult),
	}

	var entities []Entity
	walkErr := filepath.WalkDir(d.opts.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if path != d.opts.Root && ignoredDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !isCandidatePath(entry.Name()) {
			return nil
		}

		result.Stats.FilesScanned++
		fileEntities, parsed := d.analyzeFile(ctx, path, cfgResult)
		if parsed {
			result.Stats.FilesParsed++
		} else {
			result.Stats.FilesSkipped++
		}
		entities = append(entities, fileEntities...)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	entities = append(entities, yamlEntities(cfgResult)...)

	result.Entities = dedupeEntities(entities, d.opts.Dedup)
	for _, e := range result.Entities {
		switch e.Type {
		case EntityAgent:
			result.Stats.AgentCount++
		case EntityCrew:
			result.Stats.CrewCount++
		case EntityFlow:
			result.Stats.FlowCount++
		}
	}
	result.Stats.DurationMillis = time.Since(started).Milliseconds()
	return result, nil
}

// isCandidatePath is the cheap path-level filter: Python sources that are
// not test files.
func isCandidatePath(name string) bool {
	if !strings.HasSuffix(name, ".py") {
		return false
	}
	if strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py") {
		return false
	}
	return name != "conftest.py"
}

// analyzeFile runs the pipeline for one file. The second return reports
// whether the file made it through parsing; failures and filtered files
// both come back as skips with zero entities or partial entities.
func (d *Discoverer) analyzeFile(ctx context.Context, path string, cfgResult *config.Result) ([]Entity, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		d.logger.Warn("unreadable file skipped", "path", path, "error", err)
		return nil, false
	}
	if !ast.LooksLikeWorkflowSource(content) {
		return nil, false
	}

	parseResult, err := d.parser.Parse(ctx, content, path)
	if err != nil {
		d.logger.Warn("parse failure, file skipped", "path", path, "error", err)
		return nil, false
	}

	var entities []Entity

	flowSig, err := signals.ExtractFlowSignals(ctx, parseResult, content)
	if err == nil {
		entities = append(entities, d.buildFlowEntity(path, flowSig, cfgResult))
		return entities, true
	}

	crewAST, err := signals.ExtractCrewSignals(ctx, parseResult, content)
	if err != nil {
		d.logger.Warn("signal extraction failed, file skipped", "path", path, "error", err)
		return nil, false
	}
	entities = append(entities, d.buildCrewEntities(path, crewAST, cfgResult)...)
	return entities, true
}

// capTimeout applies the discovery-layer ceiling to a duration estimate.
func capTimeout(durationSeconds int) int64 {
	millis := int64(durationSeconds) * 1000
	if millis > MaxTimeoutMillis {
		return MaxTimeoutMillis
	}
	return millis
}
