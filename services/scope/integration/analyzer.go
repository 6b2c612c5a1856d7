// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package integration

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// performanceRiskMillis is the response-time estimate above which a point
// is flagged as a performance risk.
const performanceRiskMillis = 5000

// methodPattern infers an integration from a method-name substring.
type methodPattern struct {
	Match   string
	Service string
	Type    Type
	EnvVars []string
}

var methodPatterns = []methodPattern{
	{"email", "SMTP", TypeMessaging, []string{"SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD"}},
	{"send_message", "Slack", TypeMessaging, []string{"SLACK_TOKEN"}},
	{"notify", "Slack", TypeMessaging, []string{"SLACK_TOKEN"}},
	{"upload", "AWS S3", TypeStorage, []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"}},
	{"download", "HTTP API", TypeAPI, nil},
	{"fetch", "HTTP API", TypeAPI, nil},
	{"query_db", "database", TypeDatabase, []string{"DATABASE_URL"}},
	{"save_to_db", "database", TypeDatabase, []string{"DATABASE_URL"}},
	{"authenticate", "auth provider", TypeAuth, nil},
	{"login", "auth provider", TypeAuth, nil},
}

// candidate is an un-profiled integration sighting from one source.
type candidate struct {
	Service    string
	Type       Type
	EnvVars    []string
	Operations []string
}

// Analyzer merges integration candidates and applies heuristic profiles.
//
// Thread Safety: Safe for concurrent use after construction.
type Analyzer struct {
	profiles []Profile
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithProfiles replaces the built-in heuristic profile table. Callers
// running in regulated environments override the defaults with vetted
// figures.
func WithProfiles(profiles []Profile) AnalyzerOption {
	return func(a *Analyzer) {
		a.profiles = profiles
	}
}

// NewAnalyzer creates an integration analyzer.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	if a.profiles == nil {
		a.profiles = DefaultProfiles()
	}
	return a
}

// Analyze builds the integration inventory for one workflow. Either input
// may be nil when that source is unavailable.
//
// Candidates come from the flow's external-service signals, the YAML
// tool/LLM-provider/callback lists, and method-name pattern matches.
// Candidates sharing a service name merge with env var and operation
// union before profiles are applied.
func (a *Analyzer) Analyze(sig *signals.FlowSignals, cfg *config.Result) *Analysis {
	var candidates []candidate
	if sig != nil {
		candidates = append(candidates, fromSignals(sig)...)
		candidates = append(candidates, fromMethodNames(sig)...)
	}
	if cfg != nil {
		candidates = append(candidates, fromConfig(cfg)...)
	}

	points := a.buildPoints(mergeCandidates(candidates))
	analysis := &Analysis{Points: points}
	analysis.Risks = deriveRisks(points)
	analysis.Recommendations = deriveRecommendations(analysis.Risks)
	return analysis
}

func fromSignals(sig *signals.FlowSignals) []candidate {
	var out []candidate
	for _, svc := range sig.External.Services {
		c := candidate{Service: svc.Name, Operations: svc.Operations}
		if svc.EnvVar != "" {
			c.EnvVars = []string{svc.EnvVar}
		}
		out = append(out, c)
	}
	if sig.External.UsesDatabase {
		out = append(out, candidate{Service: "database", Type: TypeDatabase})
	}
	if sig.External.ReadsFiles || sig.External.WritesFiles {
		var ops []string
		if sig.External.ReadsFiles {
			ops = append(ops, "read")
		}
		if sig.External.WritesFiles {
			ops = append(ops, "write")
		}
		out = append(out, candidate{Service: "file system", Type: TypeFileSystem, Operations: ops})
	}
	return out
}

func fromMethodNames(sig *signals.FlowSignals) []candidate {
	var out []candidate
	for _, m := range sig.Class.Methods {
		lower := strings.ToLower(m.Name)
		for _, p := range methodPatterns {
			if strings.Contains(lower, p.Match) {
				out = append(out, candidate{
					Service:    p.Service,
					Type:       p.Type,
					EnvVars:    p.EnvVars,
					Operations: []string{m.Name},
				})
			}
		}
	}
	return out
}

func fromConfig(cfg *config.Result) []candidate {
	var out []candidate
	for _, tool := range cfg.Integrations.Tools {
		out = append(out, candidate{Service: tool, Operations: []string{"tool invocation"}})
	}
	for _, provider := range cfg.Integrations.LLMProviders {
		out = append(out, candidate{Service: provider, Type: TypeAPI, Operations: []string{"completion"}})
	}
	for _, callback := range cfg.Integrations.Callbacks {
		out = append(out, candidate{Service: callback, Operations: []string{"callback"}})
	}
	return out
}

// mergeCandidates unions candidates by case-insensitive service name,
// preserving first-appearance order.
func mergeCandidates(candidates []candidate) []candidate {
	index := make(map[string]int)
	var out []candidate
	for _, c := range candidates {
		key := strings.ToLower(c.Service)
		if at, ok := index[key]; ok {
			out[at].EnvVars = unionStrings(out[at].EnvVars, c.EnvVars)
			out[at].Operations = unionStrings(out[at].Operations, c.Operations)
			if out[at].Type == "" {
				out[at].Type = c.Type
			}
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

func (a *Analyzer) buildPoints(candidates []candidate) []Point {
	var points []Point
	for _, c := range candidates {
		profile := lookupProfile(a.profiles, c.Service)

		typ := c.Type
		if typ == "" {
			typ = profile.Type
		}

		point := Point{
			ID:      fmt.Sprintf("integration-%s", strings.ReplaceAll(strings.ToLower(c.Service), " ", "-")),
			Service: c.Service,
			Type:    typ,
			Config: Config{
				EnvVars:        c.EnvVars,
				TimeoutSeconds: 30,
				RetryPolicy:    "exponential_backoff",
			},
			Reliability: profile.Reliability,
			Security:    profile.Security,
		}
		for _, op := range c.Operations {
			point.Operations = append(point.Operations, Operation{
				Name:        op,
				CRUD:        crudFor(op),
				Criticality: operationCriticality(profile.Reliability.FailureImpact),
			})
		}
		points = append(points, point)
	}
	return points
}

func crudFor(op string) CRUDClass {
	lower := strings.ToLower(op)
	switch {
	case strings.Contains(lower, "write"), strings.Contains(lower, "save"),
		strings.Contains(lower, "upload"), strings.Contains(lower, "create"),
		strings.Contains(lower, "send"), strings.Contains(lower, "email"):
		return CRUDCreate
	case strings.Contains(lower, "update"):
		return CRUDUpdate
	case strings.Contains(lower, "delete"), strings.Contains(lower, "remove"):
		return CRUDDelete
	default:
		return CRUDRead
	}
}

// operationCriticality follows the service's failure impact: operations
// against a critical service are themselves critical.
func operationCriticality(impact Criticality) Criticality {
	if impact == CriticalityCritical {
		return CriticalityCritical
	}
	return CriticalityMedium
}

// deriveRisks flags the three documented risk categories.
func deriveRisks(points []Point) Risks {
	risks := Risks{}
	for _, p := range points {
		hasCriticalOp := false
		for _, op := range p.Operations {
			if op.Criticality == CriticalityCritical {
				hasCriticalOp = true
			}
		}
		if hasCriticalOp && p.Reliability.FailureImpact == CriticalityCritical {
			risks.SinglePointsOfFailure = append(risks.SinglePointsOfFailure, p.Service)
		}
		if p.Security.AuthMethod == "none" && p.Security.DataClassification != "public" {
			risks.MissingAuth = append(risks.MissingAuth, p.Service)
		}
		if p.Reliability.ResponseTimeMillis > performanceRiskMillis {
			risks.Performance = append(risks.Performance, p.Service)
		}
	}
	return risks
}

// deriveRecommendations emits one fixed recommendation per non-empty risk
// category. No ranking is involved.
func deriveRecommendations(risks Risks) []string {
	var recs []string
	if len(risks.SinglePointsOfFailure) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Add fallback handling for single points of failure: %s",
			strings.Join(risks.SinglePointsOfFailure, ", ")))
	}
	if len(risks.MissingAuth) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Configure authentication for services accessing non-public data: %s",
			strings.Join(risks.MissingAuth, ", ")))
	}
	if len(risks.Performance) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Consider async execution or caching for slow services: %s",
			strings.Join(risks.Performance, ", ")))
	}
	return recs
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
