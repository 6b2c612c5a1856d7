// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/crewscope/services/scope/chart"
	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/routing"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

const frameworkCrewAI = "crewai"

// buildFlowEntity runs the correlator layer for one flow and assembles
// its entity record.
func (d *Discoverer) buildFlowEntity(path string, sig *signals.FlowSignals, cfgResult *config.Result) Entity {
	routers := routing.AnalyzeRouters(sig)
	sequences := routing.EnumeratePaths(sig)
	parallel := routing.DetectParallelGroups(sig)
	workflow := d.hitlDetector.DetectWorkflow(sig, cfgResult)
	integrations := d.integrations.Analyze(sig, cfgResult)

	in := chart.Input{
		Flow:           sig,
		Config:         cfgResult,
		Routers:        routers,
		Sequences:      sequences,
		ParallelGroups: parallel,
		HITL:           workflow,
		Integrations:   integrations,
	}
	meta := chart.BuildMetadata(in)

	artifacts := Artifacts{
		Flow:          sig,
		Routers:       routers,
		Sequences:     sequences,
		HITL:          workflow,
		Integrations:  integrations,
		FlowChart:     chart.RenderFlowChart(in),
		MermaidChart:  chart.RenderMermaid(in),
		ChartMetadata: meta,
	}
	if d.opts.IncludeReports {
		artifacts.Report = chart.RenderReport(in)
	}

	return Entity{
		ID:        path + ":" + sig.ClassName,
		Name:      sig.ClassName,
		Type:      EntityFlow,
		Framework: frameworkCrewAI,
		Source:    SourceCode,
		Path:      path,
		Contract: Contract{
			Description:  fmt.Sprintf("Flow %s with %d methods", sig.ClassName, len(sig.Class.Methods)),
			Capabilities: flowCapabilities(sig),
		},
		Execution: Execution{
			EntryPoint:             fmt.Sprintf("%s().kickoff()", sig.ClassName),
			EstimatedTimeoutMillis: capTimeout(meta.EstimatedDurationSeconds),
		},
		Composition: Composition{
			MemberCount: len(sig.Class.Methods),
			Members:     sig.MethodNames(),
		},
		Artifacts: artifacts,
	}
}

// flowCapabilities derives the capability tags from behavioral flags.
func flowCapabilities(sig *signals.FlowSignals) []string {
	var caps []string
	b := sig.Behavioral
	if b.ExecutesCrews {
		caps = append(caps, "crew_execution")
	}
	if len(sig.FrameworkSpecific.Routers) > 0 {
		caps = append(caps, "conditional_routing")
	}
	if b.HasHumanInLoop || b.CollectsInput {
		caps = append(caps, "human_in_loop")
	}
	if b.HasExternalIntegrations {
		caps = append(caps, "external_integrations")
	}
	if b.HasParallelExecution {
		caps = append(caps, "parallel_execution")
	}
	if sig.State.Structured {
		caps = append(caps, "structured_state")
	}
	return caps
}

// buildCrewEntities assembles crew entities plus code-defined agent
// entities from one crew file.
func (d *Discoverer) buildCrewEntities(path string, crewAST *signals.CrewAST, cfgResult *config.Result) []Entity {
	var entities []Entity

	for _, def := range crewAST.CrewDefinitions {
		in := chart.Input{Crew: crewAST, Config: cfgResult}
		meta := chart.BuildMetadata(in)

		artifacts := Artifacts{
			Crew:          crewAST,
			FlowChart:     chart.RenderFlowChart(in),
			MermaidChart:  chart.RenderMermaid(in),
			ChartMetadata: meta,
		}
		if d.opts.IncludeReports {
			artifacts.Report = chart.RenderReport(in)
		}

		entities = append(entities, Entity{
			ID:        path + ":" + def.Name,
			Name:      def.Name,
			Type:      EntityCrew,
			Framework: frameworkCrewAI,
			Source:    SourceCode,
			Path:      path,
			Contract: Contract{
				Description: fmt.Sprintf("Crew %s (%s process)", def.Name, def.Config.Process),
			},
			Execution: Execution{
				EntryPoint:             fmt.Sprintf("%s().crew().kickoff()", def.Name),
				EstimatedTimeoutMillis: capTimeout(meta.EstimatedDurationSeconds),
			},
			Composition: Composition{
				MemberCount: len(def.Config.Agents),
				Members:     def.Config.Agents,
				Coordinator: def.Config.ManagerAgent,
				Process:     string(def.Config.Process),
			},
			Artifacts: artifacts,
		})
	}

	for _, agent := range crewAST.AgentMethods {
		entities = append(entities, Entity{
			ID:        path + ":" + agent,
			Name:      agent,
			Type:      EntityAgent,
			Framework: frameworkCrewAI,
			Source:    SourceCode,
			Path:      path,
			Contract: Contract{
				Description: agentDescription(agent, cfgResult),
			},
			Execution: Execution{
				EstimatedTimeoutMillis: capTimeout(0),
			},
		})
	}
	return entities
}

func agentDescription(name string, cfgResult *config.Result) string {
	if cfgResult != nil {
		if agent, ok := cfgResult.Agents[name]; ok && agent.Role != "" {
			return agent.Role
		}
	}
	return fmt.Sprintf("Agent %s", name)
}

// yamlEntities builds config-only entity records. Their IDs carry the
// "yaml:" prefix since no file-path composite exists for them.
func yamlEntities(cfgResult *config.Result) []Entity {
	if cfgResult == nil {
		return nil
	}
	var entities []Entity

	for _, name := range sortedNames(cfgResult.Agents) {
		agent := cfgResult.Agents[name]
		entities = append(entities, Entity{
			ID:        "yaml:" + name,
			Name:      name,
			Type:      EntityAgent,
			Framework: frameworkCrewAI,
			Source:    SourceYAML,
			Contract: Contract{
				Description:  agent.Role,
				Capabilities: agent.Tools,
			},
		})
	}

	for _, name := range sortedNames(cfgResult.Crews) {
		crew := cfgResult.Crews[name]
		entities = append(entities, Entity{
			ID:        "yaml:" + name,
			Name:      name,
			Type:      EntityCrew,
			Framework: frameworkCrewAI,
			Source:    SourceYAML,
			Contract: Contract{
				Description: fmt.Sprintf("Crew %s (%s process)", name, crew.Process),
			},
			Composition: Composition{
				MemberCount: len(crew.Agents),
				Members:     crew.Agents,
				Process:     crew.Process,
			},
		})
	}
	return entities
}

// dedupeEntities collapses name collisions under the configured policy.
// First appearance wins within the same source class; across sources the
// policy decides.
func dedupeEntities(entities []Entity, policy DedupPolicy) []Entity {
	index := make(map[string]int)
	var out []Entity
	for _, e := range entities {
		key := e.Name
		at, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, e)
			continue
		}
		existing := out[at]
		if existing.Source == e.Source {
			continue
		}
		switch policy {
		case PreferYAML:
			if e.Source == SourceYAML {
				out[at] = e
			}
		default:
			if e.Source == SourceCode {
				out[at] = e
			}
		}
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
