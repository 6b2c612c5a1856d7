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

	"github.com/AleutianAI/crewscope/services/scope/routing"
)

// RenderFlowChart renders the workflow as an ASCII tree with box-drawing
// characters. Sections without data are omitted.
func RenderFlowChart(in Input) string {
	var b strings.Builder

	title := chartTitle(in)
	b.WriteString(fmt.Sprintf("=== %s ===\n\n", title))

	if in.Flow != nil {
		renderFlowBody(&b, in)
	}
	if in.Crew != nil {
		renderCrewBody(&b, in)
	}
	return b.String()
}

func chartTitle(in Input) string {
	switch {
	case in.Flow != nil:
		return in.Flow.ClassName
	case in.Crew != nil && len(in.Crew.CrewDefinitions) > 0:
		return in.Crew.CrewDefinitions[0].Name
	default:
		return "Workflow"
	}
}

func renderFlowBody(b *strings.Builder, in Input) {
	fw := in.Flow.FrameworkSpecific

	for _, start := range fw.Starts {
		writeBox(b, start, "start")
	}
	for _, listener := range fw.Listeners {
		label := "listen: " + strings.Join(listener.Dependencies, ", ")
		if listener.Combinator != "" {
			label = listener.Combinator + "(" + strings.Join(listener.Dependencies, ", ") + ")"
		}
		writeConnector(b)
		writeBox(b, listener.Method, label)
	}

	for _, router := range in.Routers {
		writeConnector(b)
		writeBox(b, router.Method, fmt.Sprintf("router (%s)", router.Complexity))
		for _, path := range router.Paths {
			target := path.TargetMethod
			if target == "" {
				target = "?"
			}
			fmt.Fprintf(b, "    --[%s]--> %s\n", path.Label, target)
		}
	}

	if loopsBack(in.Sequences) {
		b.WriteString("\n  (loops back)\n")
	}

	if in.HITL != nil && in.HITL.HasHumanTouchPoints() {
		b.WriteString("\nHuman touch points:\n")
		for _, p := range in.HITL.Points {
			blocking := ""
			if p.Blocking {
				blocking = " [blocking]"
			}
			fmt.Fprintf(b, "  * %s (%s)%s\n", p.Method, p.Type, blocking)
		}
	}

	if in.Integrations != nil && in.Integrations.HasIntegrations() {
		b.WriteString("\nExternal integrations:\n")
		for _, p := range in.Integrations.Points {
			fmt.Fprintf(b, "  * %s (%s)\n", p.Service, p.Type)
		}
	}
}

func renderCrewBody(b *strings.Builder, in Input) {
	for _, def := range in.Crew.CrewDefinitions {
		writeBox(b, def.Name, fmt.Sprintf("crew, process: %s", def.Config.Process))
		for _, agent := range def.Config.Agents {
			fmt.Fprintf(b, "  agent: %s\n", agent)
		}
		for _, task := range def.Config.Tasks {
			fmt.Fprintf(b, "  task:  %s\n", task)
		}
		b.WriteString("\n")
	}
}

func writeBox(b *strings.Builder, name, tag string) {
	label := name
	if tag != "" {
		label = fmt.Sprintf("%s  (%s)", name, tag)
	}
	width := len(label) + 2
	fmt.Fprintf(b, "+%s+\n", strings.Repeat("-", width))
	fmt.Fprintf(b, "| %s |\n", label)
	fmt.Fprintf(b, "+%s+\n", strings.Repeat("-", width))
}

func writeConnector(b *strings.Builder) {
	b.WriteString("    |\n    v\n")
}

func loopsBack(sequences []routing.PathSequence) bool {
	for _, seq := range sequences {
		if seq.LoopsBack {
			return true
		}
	}
	return false
}
