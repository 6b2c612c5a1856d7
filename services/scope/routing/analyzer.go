// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// maxConditionLength is the per-condition character threshold for the
// moderate complexity class.
const maxConditionLength = 50

// errorConditionMarkers flag a router as error-handling when present in
// any of its condition strings.
var errorConditionMarkers = []string{"error", "Error", "exception", "Exception", "fail", "retry"}

// AnalyzeRouters builds one RouterAnalysis per router in the flow.
//
// Label-to-target resolution tries, in order: a listener whose dependency
// list contains the label text, then a name-similarity match against all
// method names. An unresolvable label keeps its RouterPath with an empty
// TargetMethod rather than being dropped or guessed.
func AnalyzeRouters(sig *signals.FlowSignals) []RouterAnalysis {
	fw := sig.FrameworkSpecific
	if len(fw.Routers) == 0 {
		return nil
	}

	methodNames := sig.MethodNames()
	analyses := make([]RouterAnalysis, 0, len(fw.Routers))
	for _, router := range fw.Routers {
		analysis := RouterAnalysis{
			Method:           router.Method,
			Dependencies:     router.Dependencies,
			HasErrorHandling: hasErrorConditions(router.Conditions),
		}

		for i, label := range router.Labels {
			path := RouterPath{
				Label:        label,
				TargetMethod: resolveTarget(label, fw.Listeners, methodNames),
			}
			// Conditions pair with labels positionally; a trailing label
			// with no condition is the fall-through return.
			if i < len(router.Conditions) {
				path.Condition = router.Conditions[i].Condition
			}
			path.Description = describePath(path)
			analysis.Paths = append(analysis.Paths, path)
		}

		if len(router.Labels) > len(router.Conditions) {
			analysis.DefaultPath = router.Labels[len(router.Labels)-1]
		}
		analysis.BranchingFactor = len(analysis.Paths)
		analysis.Complexity = classifyComplexity(analysis.Paths)
		analyses = append(analyses, analysis)
	}
	return analyses
}

// resolveTarget maps a router label to a concrete method, or "" when no
// match is defensible.
func resolveTarget(label string, listeners []signals.ListenerSignal, methodNames []string) string {
	for _, listener := range listeners {
		for _, dep := range listener.Dependencies {
			if strings.Contains(dep, label) {
				return listener.Method
			}
		}
	}
	for _, name := range methodNames {
		if strings.Contains(name, label) || strings.Contains(label, name) {
			return name
		}
	}
	return ""
}

func describePath(path RouterPath) string {
	target := path.TargetMethod
	if target == "" {
		target = "unresolved"
	}
	if path.Condition != "" {
		return fmt.Sprintf("route %q to %s when %s", path.Label, target, path.Condition)
	}
	return fmt.Sprintf("route %q to %s", path.Label, target)
}

func classifyComplexity(paths []RouterPath) Complexity {
	if len(paths) <= 2 {
		return ComplexitySimple
	}
	if len(paths) <= 4 {
		for _, p := range paths {
			if len(p.Condition) >= maxConditionLength {
				return ComplexityComplex
			}
		}
		return ComplexityModerate
	}
	return ComplexityComplex
}

func hasErrorConditions(conds []signals.ConditionalStatement) bool {
	for _, cond := range conds {
		for _, marker := range errorConditionMarkers {
			if strings.Contains(cond.Condition, marker) {
				return true
			}
		}
	}
	return false
}

// EnumeratePaths walks listener edges depth-first from every start method
// and returns the resulting execution sequences.
//
// The walk refuses to revisit a method already on the current path: the
// sequence is truncated there and marked LoopsBack. This is a deliberate
// truncation, not an enumeration of cycles.
func EnumeratePaths(sig *signals.FlowSignals) []PathSequence {
	fw := sig.FrameworkSpecific
	edges := buildEdges(fw)

	var sequences []PathSequence
	for _, start := range fw.Starts {
		walk(start, edges, []string{}, map[string]bool{}, &sequences)
	}
	return sequences
}

// buildEdges maps each method to its downstream listeners/routers in
// signal declaration order.
func buildEdges(fw signals.CrewAISpecificSignals) map[string][]string {
	edges := make(map[string][]string)
	addEdge := func(from, to string) {
		for _, existing := range edges[from] {
			if existing == to {
				return
			}
		}
		edges[from] = append(edges[from], to)
	}

	for _, listener := range fw.Listeners {
		for _, dep := range listener.Dependencies {
			addEdge(dep, listener.Method)
		}
	}
	for _, router := range fw.Routers {
		for _, dep := range router.Dependencies {
			addEdge(dep, router.Method)
		}
		// A router's labels feed the listeners that listen on them.
		for _, listener := range fw.Listeners {
			for _, dep := range listener.Dependencies {
				for _, label := range router.Labels {
					if dep == label {
						addEdge(router.Method, listener.Method)
					}
				}
			}
		}
	}
	return edges
}

func walk(current string, edges map[string][]string, path []string, onPath map[string]bool, out *[]PathSequence) {
	if onPath[current] {
		*out = append(*out, PathSequence{
			Steps:     append([]string(nil), path...),
			LoopsBack: true,
		})
		return
	}

	path = append(path, current)
	onPath[current] = true
	defer delete(onPath, current)

	next := edges[current]
	if len(next) == 0 {
		*out = append(*out, PathSequence{Steps: append([]string(nil), path...)})
		return
	}
	for _, n := range next {
		walk(n, edges, path, onPath, out)
	}
}

// DetectParallelGroups derives parallel groups from and_/or_ combinator
// listeners: the combined dependencies execute in parallel relative to
// each other. The trigger is the upstream dependency shared by the most
// group members; ties break to the first encountered.
func DetectParallelGroups(sig *signals.FlowSignals) []ParallelGroup {
	fw := sig.FrameworkSpecific

	upstream := make(map[string][]string)
	for _, listener := range fw.Listeners {
		upstream[listener.Method] = listener.Dependencies
	}
	for _, router := range fw.Routers {
		upstream[router.Method] = router.Dependencies
	}

	var groups []ParallelGroup
	for _, listener := range fw.Listeners {
		if listener.Combinator == "" || len(listener.Dependencies) < 2 {
			continue
		}
		group := ParallelGroup{
			Methods: append([]string(nil), listener.Dependencies...),
		}

		counts := make(map[string]int)
		var order []string
		for _, member := range listener.Dependencies {
			for _, dep := range upstream[member] {
				if counts[dep] == 0 {
					order = append(order, dep)
				}
				counts[dep]++
			}
		}
		best := 0
		for _, dep := range order {
			if counts[dep] > best {
				best = counts[dep]
				group.Trigger = dep
			}
		}
		groups = append(groups, group)
	}
	return groups
}
