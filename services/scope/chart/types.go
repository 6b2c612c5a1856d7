// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chart renders the correlated workflow model into human-readable
// artifacts: an ASCII flow chart, a Mermaid-style textual chart, and a
// Markdown analysis report, plus a typed metadata summary. Rendering
// degrades gracefully: missing sections are omitted, never replaced with
// placeholder errors.
package chart

import (
	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/hitl"
	"github.com/AleutianAI/crewscope/services/scope/integration"
	"github.com/AleutianAI/crewscope/services/scope/routing"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// Complexity classes for the metadata summary.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityAdvanced Complexity = "advanced"
)

// Base and per-item duration estimates in seconds, purely additive. The
// discovery layer caps the total; this layer never does.
const (
	durationBase           = 300
	durationPerCrew        = 120
	durationPerHITLPoint   = 180
	durationPerIntegration = 60
	durationPerRouter      = 30
)

// Input bundles everything the synthesizer can draw from. Every field is
// optional; nil fields simply omit their sections.
type Input struct {
	Flow           *signals.FlowSignals
	Crew           *signals.CrewAST
	Config         *config.Result
	Routers        []routing.RouterAnalysis
	Sequences      []routing.PathSequence
	ParallelGroups []routing.ParallelGroup
	HITL           *hitl.Workflow
	Integrations   *integration.Analysis
}

// Counts summarizes the model's size.
type Counts struct {
	Methods       int `json:"methods"`
	Crews         int `json:"crews"`
	Routers       int `json:"routers"`
	HITLPoints    int `json:"hitl_points"`
	Integrations  int `json:"integrations"`
	ParallelPaths int `json:"parallel_paths"`
}

// Metadata is the structured summary accompanying the rendered artifacts.
// EstimatedDurationSeconds is a fixed additive heuristic, not a
// measurement or prediction.
type Metadata struct {
	Complexity               Complexity `json:"complexity"`
	ComplexityScore          int        `json:"complexity_score"`
	EstimatedDurationSeconds int        `json:"estimated_duration_seconds"`
	CriticalPath             []string   `json:"critical_path,omitempty"`
	Counts                   Counts     `json:"counts"`
}
