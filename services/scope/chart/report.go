// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chart

import (
	"fmt"
	"strings"
)

// RenderReport renders a Markdown analysis report. Sections without data
// are omitted entirely.
func RenderReport(in Input) string {
	var b strings.Builder
	meta := BuildMetadata(in)

	fmt.Fprintf(&b, "# Workflow Analysis: %s\n\n", chartTitle(in))
	fmt.Fprintf(&b, "- Complexity: %s (score %d)\n", meta.Complexity, meta.ComplexityScore)
	fmt.Fprintf(&b, "- Estimated duration: %ds (fixed heuristic, not a prediction)\n", meta.EstimatedDurationSeconds)
	fmt.Fprintf(&b, "- Methods: %d, Routers: %d, HITL points: %d, Integrations: %d\n",
		meta.Counts.Methods, meta.Counts.Routers, meta.Counts.HITLPoints, meta.Counts.Integrations)
	if len(meta.CriticalPath) > 0 {
		fmt.Fprintf(&b, "- Critical path: %s\n", strings.Join(meta.CriticalPath, " -> "))
	}
	b.WriteString("\n")

	if in.Flow != nil {
		reportFlowSection(&b, in)
	}
	if in.Crew != nil && in.Crew.HasCrews() {
		reportCrewSection(&b, in)
	}
	if len(in.Routers) > 0 {
		reportRouterSection(&b, in)
	}
	if in.HITL != nil && in.HITL.HasHumanTouchPoints() {
		reportHITLSection(&b, in)
	}
	if in.Integrations != nil && in.Integrations.HasIntegrations() {
		reportIntegrationSection(&b, in)
	}
	return b.String()
}

func reportFlowSection(b *strings.Builder, in Input) {
	fw := in.Flow.FrameworkSpecific
	b.WriteString("## Flow Structure\n\n")
	if len(fw.Starts) > 0 {
		fmt.Fprintf(b, "Start methods: %s\n\n", strings.Join(fw.Starts, ", "))
	}
	for _, listener := range fw.Listeners {
		comb := ""
		if listener.Combinator != "" {
			comb = fmt.Sprintf(" (%s)", listener.Combinator)
		}
		fmt.Fprintf(b, "- `%s` listens to %s%s\n",
			listener.Method, strings.Join(listener.Dependencies, ", "), comb)
	}
	if in.Flow.State.Structured {
		fmt.Fprintf(b, "\nState model: `%s`", in.Flow.State.ModelName)
		if len(in.Flow.State.Fields) > 0 {
			fmt.Fprintf(b, " with fields %s", strings.Join(in.Flow.State.Fields, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func reportCrewSection(b *strings.Builder, in Input) {
	b.WriteString("## Crews\n\n")
	for _, def := range in.Crew.CrewDefinitions {
		fmt.Fprintf(b, "### %s\n\n", def.Name)
		fmt.Fprintf(b, "- Process: %s\n", def.Config.Process)
		if len(def.Config.Agents) > 0 {
			fmt.Fprintf(b, "- Agents: %s\n", strings.Join(def.Config.Agents, ", "))
		}
		if len(def.Config.Tasks) > 0 {
			fmt.Fprintf(b, "- Tasks: %s\n", strings.Join(def.Config.Tasks, ", "))
		}
		b.WriteString("\n")
	}
}

func reportRouterSection(b *strings.Builder, in Input) {
	b.WriteString("## Routing\n\n")
	for _, router := range in.Routers {
		fmt.Fprintf(b, "### `%s` (%s)\n\n", router.Method, router.Complexity)
		for _, path := range router.Paths {
			fmt.Fprintf(b, "- %s\n", path.Description)
		}
		if router.DefaultPath != "" {
			fmt.Fprintf(b, "- default: %q\n", router.DefaultPath)
		}
		b.WriteString("\n")
	}
}

func reportHITLSection(b *strings.Builder, in Input) {
	b.WriteString("## Human-in-the-Loop\n\n")
	for _, p := range in.HITL.Points {
		blocking := "non-blocking"
		if p.Blocking {
			blocking = "blocking"
		}
		fmt.Fprintf(b, "- `%s`: %s, %s, timeout %ds, urgency %s\n",
			p.Method, p.Type, blocking, p.TimeoutSeconds, p.Context.Urgency)
	}
	m := in.HITL.Metrics
	fmt.Fprintf(b, "\nUX score: %.0f/100 (relative heuristic only)\n\n", m.UXScore)
}

func reportIntegrationSection(b *strings.Builder, in Input) {
	b.WriteString("## External Integrations\n\n")
	b.WriteString("Reliability and security figures are heuristic defaults keyed by\nservice name, not measurements.\n\n")
	for _, p := range in.Integrations.Points {
		fmt.Fprintf(b, "- %s (%s): availability %.3f, failure impact %s\n",
			p.Service, p.Type, p.Reliability.Availability, p.Reliability.FailureImpact)
		if len(p.Config.EnvVars) > 0 {
			fmt.Fprintf(b, "  requires: %s\n", strings.Join(p.Config.EnvVars, ", "))
		}
	}
	if len(in.Integrations.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n\n")
		for _, rec := range in.Integrations.Recommendations {
			fmt.Fprintf(b, "- %s\n", rec)
		}
	}
	b.WriteString("\n")
}
