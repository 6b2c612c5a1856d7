// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/crewscope/pkg/logging"
)

// Conventional root-level locations checked, in order, for each of the
// three top-level configuration files.
var rootLocations = []string{
	"",
	"config",
	"src",
}

// Directories never descended into while scanning for nested per-crew
// configuration.
var skipDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	".tox":          true,
	"dist":          true,
	"build":         true,
	".mypy_cache":   true,
	".ruff_cache":   true,
	".pytest_cache": true,
}

// Analyzer loads and cross-links a project's YAML configuration.
//
// Thread Safety: Safe for concurrent use. Analyze carries no state between
// calls; identical input trees produce identical Results.
type Analyzer struct {
	logger *logging.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger used for malformed-file reporting.
func WithLogger(logger *logging.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates a configuration analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Default()
	}
	return a
}

// Analyze reads the project's configuration files under root and returns
// the merged result with derived indices.
//
// Description:
//
//	Loads agents.yaml, tasks.yaml and crews.yaml from the conventional
//	root-level locations, then recursively merges the nested layout
//	src/<project>/crews/<crew>/config/{agents,tasks}.yaml. Name
//	collisions resolve last-writer-wins with no conflict error; nested
//	entries overwrite root-level ones. Missing files are empty, not
//	errors. Malformed YAML is logged and treated as empty for that file
//	only.
//
// Outputs:
//   - *Result: Merged maps plus derived indices. Never nil on success.
//   - error: Only when root itself cannot be read.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*Result, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("config root not readable: %w", err)
	}

	result := &Result{
		Agents: make(map[string]AgentConfig),
		Tasks:  make(map[string]TaskConfig),
		Crews:  make(map[string]CrewConfig),
	}

	for _, loc := range rootLocations {
		dir := filepath.Join(root, loc)
		a.loadAgentsFile(filepath.Join(dir, "agents.yaml"), result)
		a.loadTasksFile(filepath.Join(dir, "tasks.yaml"), result)
		a.loadCrewsFile(filepath.Join(dir, "crews.yaml"), result)
	}

	a.mergeNestedConfigs(ctx, root, result)
	a.buildIndices(result)
	return result, nil
}

// mergeNestedConfigs walks the tree for <anything>/config/{agents,tasks}.yaml
// and merges each hit into the flat maps. WalkDir visits lexically, so the
// last-writer-wins outcome is deterministic.
func (a *Analyzer) mergeNestedConfigs(ctx context.Context, root string, result *Result) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			a.logger.Warn("skipping unreadable path during config scan", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && d.Name() != "." && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(filepath.Dir(path)) != "config" {
			return nil
		}
		switch normalizeYAMLName(d.Name()) {
		case "agents.yaml":
			a.loadAgentsFile(path, result)
		case "tasks.yaml":
			a.loadTasksFile(path, result)
		case "crews.yaml":
			a.loadCrewsFile(path, result)
		}
		return nil
	})
}

func normalizeYAMLName(name string) string {
	return strings.Replace(name, ".yml", ".yaml", 1)
}

func (a *Analyzer) loadAgentsFile(path string, result *Result) {
	entries := make(map[string]AgentConfig)
	if !a.loadYAML(path, &entries) {
		return
	}
	for name, cfg := range entries {
		result.Agents[name] = cfg
	}
}

func (a *Analyzer) loadTasksFile(path string, result *Result) {
	entries := make(map[string]TaskConfig)
	if !a.loadYAML(path, &entries) {
		return
	}
	for name, cfg := range entries {
		result.Tasks[name] = cfg
	}
}

func (a *Analyzer) loadCrewsFile(path string, result *Result) {
	entries := make(map[string]CrewConfig)
	if !a.loadYAML(path, &entries) {
		return
	}
	for name, cfg := range entries {
		result.Crews[name] = cfg
	}
}

// loadYAML reads and decodes one file. Missing files and malformed YAML
// both report false; only the latter is logged.
func (a *Analyzer) loadYAML(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warn("config file unreadable", "path", path, "error", err)
		}
		return false
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		a.logger.Warn("malformed YAML, treating file as empty", "path", path, "error", err)
		return false
	}
	return true
}

// buildIndices computes the derived dependency indices and summaries.
// Iteration is over sorted names so repeated runs yield identical slices.
func (a *Analyzer) buildIndices(result *Result) {
	result.AgentTasks = make(map[string][]string)
	result.TaskDependencies = make(map[string][]string)
	result.CrewMembership = make(map[string]CrewMembers)

	toolSet := make(map[string]bool)
	providerSet := make(map[string]bool)
	callbackSet := make(map[string]bool)

	for _, name := range sortedKeys(result.Agents) {
		agent := result.Agents[name]
		for _, tool := range agent.Tools {
			toolSet[tool] = true
		}
		if agent.LLM != "" {
			providerSet[llmProvider(agent.LLM)] = true
		}
	}

	for _, name := range sortedKeys(result.Tasks) {
		task := result.Tasks[name]
		if task.Agent != "" {
			result.AgentTasks[task.Agent] = append(result.AgentTasks[task.Agent], name)
		}
		if len(task.Context) > 0 {
			result.TaskDependencies[name] = append([]string(nil), task.Context...)
		}
		for _, tool := range task.Tools {
			toolSet[tool] = true
		}
		if task.Callback != "" {
			callbackSet[task.Callback] = true
		}
		if task.HumanInput {
			result.HumanInteractions = append(result.HumanInteractions, HumanInteraction{
				Task:        name,
				Agent:       task.Agent,
				Description: task.Description,
			})
		}
	}

	for _, name := range sortedKeys(result.Crews) {
		crew := result.Crews[name]
		result.CrewMembership[name] = CrewMembers{
			Agents: append([]string(nil), crew.Agents...),
			Tasks:  append([]string(nil), crew.Tasks...),
		}
	}

	result.Integrations = IntegrationSummary{
		Tools:        sortedSetKeys(toolSet),
		LLMProviders: sortedSetKeys(providerSet),
		Callbacks:    sortedSetKeys(callbackSet),
	}
}

// llmProvider extracts a provider tag from an LLM model string. CrewAI
// model strings use either "provider/model" or a bare model name whose
// prefix identifies the provider.
func llmProvider(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"):
		return "openai"
	case strings.HasPrefix(lower, "claude"):
		return "anthropic"
	case strings.HasPrefix(lower, "gemini"):
		return "google"
	case strings.HasPrefix(lower, "llama"), strings.HasPrefix(lower, "mixtral"):
		return "meta"
	}
	return model
}

// CheckConsistency validates cross references in a loaded Result.
//
// Dangling references (task → unknown agent, task → unknown context task,
// crew → unknown agent/task) are errors; missing recommended fields
// (agent role/goal, task description/expected_output) are warnings. The
// report is advisory: discovery proceeds regardless of its contents.
func (a *Analyzer) CheckConsistency(result *Result) *ConsistencyReport {
	report := &ConsistencyReport{}

	for _, name := range sortedKeys(result.Agents) {
		agent := result.Agents[name]
		if agent.Role == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Agent '%s' has no role defined", name))
		}
		if agent.Goal == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Agent '%s' has no goal defined", name))
		}
	}

	for _, name := range sortedKeys(result.Tasks) {
		task := result.Tasks[name]
		if task.Description == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Task '%s' has no description defined", name))
		}
		if task.ExpectedOutput == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Task '%s' has no expected_output defined", name))
		}
		if task.Agent != "" {
			if _, ok := result.Agents[task.Agent]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("Task '%s' references unknown agent '%s'", name, task.Agent))
			}
		}
		for _, dep := range task.Context {
			if _, ok := result.Tasks[dep]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("Task '%s' references unknown context task '%s'", name, dep))
			}
		}
	}

	for _, name := range sortedKeys(result.Crews) {
		crew := result.Crews[name]
		for _, agent := range crew.Agents {
			if _, ok := result.Agents[agent]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("Crew '%s' references unknown agent '%s'", name, agent))
			}
		}
		for _, task := range crew.Tasks {
			if _, ok := result.Tasks[task]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("Crew '%s' references unknown task '%s'", name, task))
			}
		}
	}

	return report
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSetKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	return sortedKeys(set)
}
