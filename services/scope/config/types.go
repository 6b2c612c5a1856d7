// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and cross-links the declarative YAML configuration
// of a CrewAI project: agents.yaml, tasks.yaml, crews.yaml at the project
// root plus the nested per-crew config directories. Parsing is strict into
// typed structs at this boundary; nothing downstream sees raw YAML maps.
package config

// AgentConfig is one agent entry from agents.yaml.
type AgentConfig struct {
	Role            string   `yaml:"role" json:"role,omitempty"`
	Goal            string   `yaml:"goal" json:"goal,omitempty"`
	Backstory       string   `yaml:"backstory" json:"backstory,omitempty"`
	Tools           []string `yaml:"tools" json:"tools,omitempty"`
	LLM             string   `yaml:"llm" json:"llm,omitempty"`
	MaxIter         int      `yaml:"max_iter" json:"max_iter,omitempty"`
	MaxRPM          int      `yaml:"max_rpm" json:"max_rpm,omitempty"`
	MaxExecutionSec int      `yaml:"max_execution_time" json:"max_execution_time,omitempty"`
	Verbose         bool     `yaml:"verbose" json:"verbose,omitempty"`
	Memory          bool     `yaml:"memory" json:"memory,omitempty"`
	AllowDelegation bool     `yaml:"allow_delegation" json:"allow_delegation,omitempty"`
	SystemTemplate  string   `yaml:"system_template" json:"system_template,omitempty"`
	PromptTemplate  string   `yaml:"prompt_template" json:"prompt_template,omitempty"`
}

// TaskConfig is one task entry from tasks.yaml. Context lists the names of
// tasks whose output this task consumes; these are the dependency edges of
// the task graph.
type TaskConfig struct {
	Description    string   `yaml:"description" json:"description,omitempty"`
	ExpectedOutput string   `yaml:"expected_output" json:"expected_output,omitempty"`
	Agent          string   `yaml:"agent" json:"agent,omitempty"`
	Tools          []string `yaml:"tools" json:"tools,omitempty"`
	AsyncExecution bool     `yaml:"async_execution" json:"async_execution,omitempty"`
	Context        []string `yaml:"context" json:"context,omitempty"`
	OutputFile     string   `yaml:"output_file" json:"output_file,omitempty"`
	OutputJSON     string   `yaml:"output_json" json:"output_json,omitempty"`
	HumanInput     bool     `yaml:"human_input" json:"human_input,omitempty"`
	Callback       string   `yaml:"callback" json:"callback,omitempty"`
}

// CrewConfig is one crew entry from crews.yaml.
type CrewConfig struct {
	Agents   []string `yaml:"agents" json:"agents,omitempty"`
	Tasks    []string `yaml:"tasks" json:"tasks,omitempty"`
	Process  string   `yaml:"process" json:"process,omitempty"`
	Verbose  bool     `yaml:"verbose" json:"verbose,omitempty"`
	Memory   bool     `yaml:"memory" json:"memory,omitempty"`
	Planning bool     `yaml:"planning" json:"planning,omitempty"`
}

// CrewMembers pairs a crew's agent and task membership for the derived
// crew index.
type CrewMembers struct {
	Agents []string `json:"agents,omitempty"`
	Tasks  []string `json:"tasks,omitempty"`
}

// HumanInteraction is a task-level human touch point declared in YAML.
type HumanInteraction struct {
	Task        string `json:"task"`
	Agent       string `json:"agent,omitempty"`
	Description string `json:"description,omitempty"`
}

// IntegrationSummary inventories external touch points declared across the
// configuration: tool names, LLM providers, callbacks.
type IntegrationSummary struct {
	Tools        []string `json:"tools,omitempty"`
	LLMProviders []string `json:"llm_providers,omitempty"`
	Callbacks    []string `json:"callbacks,omitempty"`
}

// Result is the merged configuration of a project plus derived indices.
// Identical input files always produce identical Results.
type Result struct {
	Agents map[string]AgentConfig `json:"agents"`
	Tasks  map[string]TaskConfig  `json:"tasks"`
	Crews  map[string]CrewConfig  `json:"crews"`

	// Derived indices, rebuilt on every Analyze call.
	AgentTasks        map[string][]string    `json:"agent_tasks,omitempty"`
	TaskDependencies  map[string][]string    `json:"task_dependencies,omitempty"`
	CrewMembership    map[string]CrewMembers `json:"crew_membership,omitempty"`
	HumanInteractions []HumanInteraction     `json:"human_interactions,omitempty"`
	Integrations      IntegrationSummary     `json:"integrations"`
}

// Empty reports whether no configuration at all was found.
func (r *Result) Empty() bool {
	return len(r.Agents) == 0 && len(r.Tasks) == 0 && len(r.Crews) == 0
}

// ConsistencyReport holds advisory findings from CheckConsistency. Errors
// are dangling references; warnings are missing recommended fields.
// Callers may proceed with errors present.
type ConsistencyReport struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Clean reports whether the configuration has no errors and no warnings.
func (r *ConsistencyReport) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}
