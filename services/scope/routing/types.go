// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routing correlates router signals into branch graphs: resolved
// path maps per router, depth-first path sequences from each start method,
// and parallel groups implied by combinator listeners.
//
// Probabilities are never invented here. RouterPath.Probability stays nil
// unless a rule can derive it from explicit weights, and no such rule
// exists under the current heuristics. Unknown beats guessed.
package routing

// Complexity classifies a router by path count and condition length.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// RouterPath is one label a router can return, resolved as far as the
// signals allow. TargetMethod is empty when no listener or similarly named
// method matches the label; it is never fabricated.
type RouterPath struct {
	Label        string   `json:"label"`
	Condition    string   `json:"condition,omitempty"`
	TargetMethod string   `json:"target_method,omitempty"`
	Probability  *float64 `json:"probability,omitempty"`
	Description  string   `json:"description"`
}

// RouterAnalysis is the resolved path map for one router method.
type RouterAnalysis struct {
	Method           string       `json:"method"`
	Paths            []RouterPath `json:"paths"`
	Complexity       Complexity   `json:"complexity"`
	DefaultPath      string       `json:"default_path,omitempty"`
	BranchingFactor  int          `json:"branching_factor"`
	HasErrorHandling bool         `json:"has_error_handling"`
	Dependencies     []string     `json:"dependencies,omitempty"`
}

// PathSequence is one depth-first execution path from a start method along
// listener edges. LoopsBack is set when the walk was truncated because the
// next step was already in the path; the loop edge itself is not appended.
type PathSequence struct {
	Steps     []string `json:"steps"`
	LoopsBack bool     `json:"loops_back"`
}

// ParallelGroup is a set of methods a combinator listener implies run in
// parallel relative to each other. Trigger is the upstream dependency
// shared by the most group members, first-encountered on ties.
type ParallelGroup struct {
	Methods []string `json:"methods"`
	Trigger string   `json:"trigger,omitempty"`
}
