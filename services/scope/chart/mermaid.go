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

// RenderMermaid renders the workflow as a Mermaid flowchart string.
func RenderMermaid(in Input) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	b.WriteString(fmt.Sprintf("    %%%% %s\n", chartTitle(in)))

	if in.Flow != nil {
		renderMermaidFlow(&b, in)
	}
	if in.Crew != nil {
		renderMermaidCrew(&b, in)
	}
	return b.String()
}

func renderMermaidFlow(b *strings.Builder, in Input) {
	fw := in.Flow.FrameworkSpecific

	for _, start := range fw.Starts {
		fmt.Fprintf(b, "    %s([\"%s\"])\n", mermaidID(start), start)
	}
	for _, listener := range fw.Listeners {
		fmt.Fprintf(b, "    %s[\"%s\"]\n", mermaidID(listener.Method), listener.Method)
		for _, dep := range listener.Dependencies {
			label := ""
			if listener.Combinator != "" {
				label = fmt.Sprintf("|%s|", listener.Combinator)
			}
			fmt.Fprintf(b, "    %s -->%s %s\n", mermaidID(dep), label, mermaidID(listener.Method))
		}
	}
	for _, router := range in.Routers {
		fmt.Fprintf(b, "    %s{\"%s\"}\n", mermaidID(router.Method), router.Method)
		for _, dep := range router.Dependencies {
			fmt.Fprintf(b, "    %s --> %s\n", mermaidID(dep), mermaidID(router.Method))
		}
		for _, path := range router.Paths {
			if path.TargetMethod == "" {
				continue
			}
			fmt.Fprintf(b, "    %s -->|%s| %s\n",
				mermaidID(router.Method), path.Label, mermaidID(path.TargetMethod))
		}
	}
	if in.HITL != nil {
		for _, p := range in.HITL.Points {
			fmt.Fprintf(b, "    %s_hitl[/\"%s: %s\"/]\n", mermaidID(p.Method), p.Type, p.Method)
		}
	}
}

func renderMermaidCrew(b *strings.Builder, in Input) {
	for _, def := range in.Crew.CrewDefinitions {
		id := mermaidID(def.Name)
		fmt.Fprintf(b, "    subgraph %s[\"%s\"]\n", id, def.Name)
		for _, agent := range def.Config.Agents {
			fmt.Fprintf(b, "        %s[\"%s\"]\n", mermaidID(def.Name+"_"+agent), agent)
		}
		b.WriteString("    end\n")
		prev := ""
		for _, task := range def.Config.Tasks {
			taskID := mermaidID(def.Name + "_" + task)
			fmt.Fprintf(b, "    %s[\"%s\"]\n", taskID, task)
			if prev != "" && def.Config.Process != "hierarchical" {
				fmt.Fprintf(b, "    %s --> %s\n", prev, taskID)
			}
			prev = taskID
		}
	}
}

// mermaidID strips characters Mermaid treats as syntax.
func mermaidID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
