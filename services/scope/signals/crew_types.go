// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package signals

// ProcessMode is how a crew schedules its tasks.
type ProcessMode string

const (
	ProcessSequential   ProcessMode = "sequential"
	ProcessHierarchical ProcessMode = "hierarchical"
	ProcessUnknown      ProcessMode = "unknown"
)

// CrewConfiguration is the typed shape of one Crew(...) construction.
// Boolean fields are pointers so "not mentioned" stays distinct from
// "explicitly false".
type CrewConfiguration struct {
	Agents       []string    `json:"agents,omitempty"`
	Tasks        []string    `json:"tasks,omitempty"`
	Process      ProcessMode `json:"process"`
	Memory       *bool       `json:"memory,omitempty"`
	Cache        *bool       `json:"cache,omitempty"`
	Verbose      *bool       `json:"verbose,omitempty"`
	Planning     *bool       `json:"planning,omitempty"`
	ManagerLLM   string      `json:"manager_llm,omitempty"`
	ManagerAgent string      `json:"manager_agent,omitempty"`
}

// CrewDefinition is one named crew found in a source file.
type CrewDefinition struct {
	Name   string            `json:"name"`
	Line   int               `json:"line"`
	Config CrewConfiguration `json:"config"`
}

// ToolUsage records a tool class reference found in a crew file.
type ToolUsage struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// ExternalCall records an outbound call pattern found in a crew file.
type ExternalCall struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Line   int    `json:"line"`
}

// ControlFlowRecord records a branching or looping construct.
type ControlFlowRecord struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	Line int    `json:"line"`
}

// ErrorHandlingRecord records exception handling found in a crew file.
type ErrorHandlingRecord struct {
	ExceptionTypes []string `json:"exception_types,omitempty"`
	HasRetry       bool     `json:"has_retry"`
	HasFallback    bool     `json:"has_fallback"`
	Line           int      `json:"line"`
}

// ImportRecord is a flattened import statement.
type ImportRecord struct {
	Path  string   `json:"path"`
	Names []string `json:"names,omitempty"`
	Line  int      `json:"line"`
}

// CrewAST is the parallel structure to FlowSignals for non-flow crew
// files: explicit agent/task/process constructions rather than decorated
// listener graphs.
type CrewAST struct {
	FilePath        string                `json:"file_path"`
	CrewDefinitions []CrewDefinition      `json:"crew_definitions,omitempty"`
	AgentMethods    []string              `json:"agent_methods,omitempty"`
	TaskMethods     []string              `json:"task_methods,omitempty"`
	CrewMethods     []string              `json:"crew_methods,omitempty"`
	ToolUsage       []ToolUsage           `json:"tool_usage,omitempty"`
	ExternalCalls   []ExternalCall        `json:"external_calls,omitempty"`
	ControlFlow     []ControlFlowRecord   `json:"control_flow,omitempty"`
	ErrorHandling   []ErrorHandlingRecord `json:"error_handling,omitempty"`
	Imports         []ImportRecord        `json:"imports,omitempty"`
}

// HasCrews reports whether at least one crew definition was found.
func (c *CrewAST) HasCrews() bool {
	return len(c.CrewDefinitions) > 0
}
