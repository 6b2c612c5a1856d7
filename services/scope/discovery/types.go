// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package discovery walks a project tree, runs the per-file analysis
// pipeline, and assembles deduplicated entity records with summary
// statistics. Per-file failures are logged and skipped: one bad file never
// aborts a project scan, and only total inability to read the project
// root is a hard failure.
package discovery

import (
	"github.com/AleutianAI/crewscope/services/scope/chart"
	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/hitl"
	"github.com/AleutianAI/crewscope/services/scope/integration"
	"github.com/AleutianAI/crewscope/services/scope/routing"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// EntityType classifies a discovered entity.
type EntityType string

const (
	EntityAgent EntityType = "agent"
	EntityCrew  EntityType = "crew"
	EntityFlow  EntityType = "flow"
)

// Source tags where an entity was defined.
type Source string

const (
	SourceCode Source = "code"
	SourceYAML Source = "yaml"
)

// Contract describes what an entity claims to do.
type Contract struct {
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Execution carries how downstream tooling would invoke the entity.
// EstimatedTimeoutMillis is derived from the chart duration heuristic and
// capped at MaxTimeoutMillis.
type Execution struct {
	EntryPoint             string            `json:"entry_point,omitempty"`
	EstimatedTimeoutMillis int64             `json:"estimated_timeout_ms"`
	Parameters             map[string]string `json:"parameters,omitempty"`
}

// Composition describes an entity's members.
type Composition struct {
	MemberCount int      `json:"member_count"`
	Members     []string `json:"members,omitempty"`
	Coordinator string   `json:"coordinator,omitempty"`
	Process     string   `json:"process,omitempty"`
}

// Artifacts carries the full analysis output for an entity. Fields are
// nil/empty when the corresponding analysis did not apply.
type Artifacts struct {
	Flow          *signals.FlowSignals    `json:"flow,omitempty"`
	Crew          *signals.CrewAST        `json:"crew,omitempty"`
	Routers       []routing.RouterAnalysis `json:"routers,omitempty"`
	Sequences     []routing.PathSequence  `json:"sequences,omitempty"`
	HITL          *hitl.Workflow          `json:"hitl,omitempty"`
	Integrations  *integration.Analysis   `json:"integrations,omitempty"`
	FlowChart     string                  `json:"flow_chart,omitempty"`
	MermaidChart  string                  `json:"mermaid_chart,omitempty"`
	Report        string                  `json:"report,omitempty"`
	ChartMetadata chart.Metadata          `json:"chart_metadata"`
}

// Entity is one externally visible discovery record. Entities are
// constructed fresh on every discovery run; nothing persists across runs.
type Entity struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        EntityType  `json:"type"`
	Framework   string      `json:"framework"`
	Source      Source      `json:"source"`
	Path        string      `json:"path,omitempty"`
	Contract    Contract    `json:"contract"`
	Execution   Execution   `json:"execution"`
	Composition Composition `json:"composition"`
	Artifacts   Artifacts   `json:"artifacts"`
}

// Stats summarizes one discovery run.
type Stats struct {
	RunID          string `json:"run_id"`
	FilesScanned   int    `json:"files_scanned"`
	FilesParsed    int    `json:"files_parsed"`
	FilesSkipped   int    `json:"files_skipped"`
	AgentCount     int    `json:"agent_count"`
	CrewCount      int    `json:"crew_count"`
	FlowCount      int    `json:"flow_count"`
	DurationMillis int64  `json:"duration_ms"`
}

// Result is the complete output of a discovery run.
type Result struct {
	Entities    []Entity                  `json:"entities"`
	Stats       Stats                     `json:"stats"`
	Consistency *config.ConsistencyReport `json:"consistency,omitempty"`
}

// ByType returns the entities of one type, preserving order.
func (r *Result) ByType(t EntityType) []Entity {
	var out []Entity
	for _, e := range r.Entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
