// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package hitl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/crewscope/services/scope/config"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// Heuristic timeouts by interaction type, in seconds.
const (
	timeoutApproval = 3600
	timeoutReview   = 1800
	timeoutInput    = 600
	timeoutDefault  = 900
)

// Keyword tables for method-name/docstring classification. First matching
// type wins, checked in declaration order. Superset policy applies.
var typeKeywords = []struct {
	Type     InteractionType
	Keywords []string
}{
	{TypeApproval, []string{"approve", "approval", "authorize", "sign_off", "confirm"}},
	{TypeReview, []string{"review", "inspect", "audit"}},
	{TypeValidation, []string{"validate", "verify", "check_"}},
	{TypeFeedback, []string{"feedback", "rate_", "score_"}},
	{TypeDecision, []string{"decide", "decision", "choose", "select"}},
	{TypeInput, []string{"input", "ask", "prompt", "collect", "gather_user"}},
}

var urgencyKeywords = []struct {
	Urgency  Urgency
	Keywords []string
}{
	{UrgencyCritical, []string{"critical", "emergency", "incident"}},
	{UrgencyHigh, []string{"urgent", "immediate", "escalate", "approve", "authorize"}},
	{UrgencyMedium, []string{"review", "confirm", "validate"}},
}

// Detector merges HITL candidates from code signals and YAML config.
//
// Thread Safety: Safe for concurrent use; detection carries no state.
type Detector struct{}

// NewDetector creates a HITL detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectWorkflow produces the deduplicated HITL workflow for one flow.
// Either input may be nil when that source is unavailable.
//
// Candidates come from three independent sources: method name/docstring
// keywords, YAML task human_input declarations, and flow-level behavioral
// heuristics. Collisions on (method, type) union-merge their dependency
// and data-requirement sets rather than overwriting.
func (d *Detector) DetectWorkflow(sig *signals.FlowSignals, cfg *config.Result) *Workflow {
	var candidates []Point
	if sig != nil {
		candidates = append(candidates, d.fromMethodKeywords(sig)...)
		candidates = append(candidates, d.fromBehavioral(sig)...)
	}
	if cfg != nil {
		candidates = append(candidates, d.fromYAML(cfg)...)
	}

	points := dedupe(candidates)
	wf := &Workflow{Points: points}
	wf.Sequences = deriveSequences(points)
	wf.ParallelGroups = deriveParallelGroups(points)
	wf.Dimensions = deriveDimensions(points)
	wf.Metrics = computeMetrics(points, wf.Sequences)
	return wf
}

// fromMethodKeywords scans method names and docstrings against the fixed
// keyword tables.
func (d *Detector) fromMethodKeywords(sig *signals.FlowSignals) []Point {
	deps := dependencyIndex(sig)

	var points []Point
	for _, m := range sig.Class.Methods {
		haystack := strings.ToLower(m.Name + " " + m.DocComment)
		for _, entry := range typeKeywords {
			if !matchesAny(haystack, entry.Keywords) {
				continue
			}
			points = append(points, d.newPoint(m.Name, entry.Type, Trigger{
				Dependencies: deps[m.Name],
				Description:  fmt.Sprintf("method %s matched %s keywords", m.Name, entry.Type),
			}, nil))
			break
		}
	}
	return points
}

// fromYAML lifts human_input task declarations and precomputed
// interaction points out of the configuration.
func (d *Detector) fromYAML(cfg *config.Result) []Point {
	var points []Point
	for _, interaction := range cfg.HumanInteractions {
		task, ok := cfg.Tasks[interaction.Task]
		var deps []string
		if ok {
			deps = task.Context
		}
		points = append(points, d.newPoint(interaction.Task, TypeInput, Trigger{
			Dependencies: deps,
			Description:  "task declares human_input in configuration",
		}, []string{"task output draft"}))
	}
	return points
}

// fromBehavioral adds flow-level candidates: a flow that collects input
// has an input point at its first start method; error-handling methods
// imply a review point.
func (d *Detector) fromBehavioral(sig *signals.FlowSignals) []Point {
	var points []Point
	if sig.Behavioral.CollectsInput && len(sig.FrameworkSpecific.Starts) > 0 {
		method := sig.FrameworkSpecific.Starts[0]
		points = append(points, d.newPoint(method, TypeInput, Trigger{
			Description: "flow collects user input at startup",
		}, []string{"initial parameters"}))
	}
	for _, m := range sig.Class.Methods {
		lower := strings.ToLower(m.Name)
		if strings.Contains(lower, "error") || strings.Contains(lower, "handle_fail") {
			points = append(points, d.newPoint(m.Name, TypeReview, Trigger{
				Condition:   "upstream step failed",
				Description: "error-handling method may need human review",
			}, nil))
		}
	}
	return points
}

func (d *Detector) newPoint(method string, typ InteractionType, trigger Trigger, dataRequired []string) Point {
	return Point{
		ID:             fmt.Sprintf("hitl-%s-%s", method, typ),
		Method:         method,
		Type:           typ,
		Trigger:        trigger,
		Blocking:       typ == TypeApproval || typ == TypeInput || typ == TypeDecision,
		TimeoutSeconds: timeoutFor(typ),
		Context: PointContext{
			DataRequired: dataRequired,
			Urgency:      urgencyFor(method),
		},
		UI: inferUI(typ),
	}
}

func timeoutFor(typ InteractionType) int {
	switch typ {
	case TypeApproval:
		return timeoutApproval
	case TypeReview:
		return timeoutReview
	case TypeInput:
		return timeoutInput
	default:
		return timeoutDefault
	}
}

func urgencyFor(method string) Urgency {
	lower := strings.ToLower(method)
	for _, entry := range urgencyKeywords {
		if matchesAny(lower, entry.Keywords) {
			return entry.Urgency
		}
	}
	return UrgencyLow
}

func inferUI(typ InteractionType) UserInterface {
	switch typ {
	case TypeApproval:
		return UserInterface{Channel: "console", Format: "yes_no", Options: []string{"approve", "reject"}}
	case TypeDecision:
		return UserInterface{Channel: "console", Format: "choice"}
	case TypeReview, TypeFeedback:
		return UserInterface{Channel: "console", Format: "free_text"}
	default:
		return UserInterface{Channel: "console", Format: "text_input"}
	}
}

// dedupe merges candidates sharing a (method, type) key. DataRequired and
// trigger dependencies union; scalar fields keep the first candidate's
// values. Output order is first appearance of each key.
func dedupe(candidates []Point) []Point {
	index := make(map[string]int)
	var out []Point
	for _, cand := range candidates {
		key := cand.Method + "\x00" + string(cand.Type)
		if at, ok := index[key]; ok {
			out[at].Context.DataRequired = unionStrings(out[at].Context.DataRequired, cand.Context.DataRequired)
			out[at].Trigger.Dependencies = unionStrings(out[at].Trigger.Dependencies, cand.Trigger.Dependencies)
			continue
		}
		index[key] = len(out)
		out = append(out, cand)
	}
	return out
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

// deriveSequences chains points by dependency: B follows A when B's
// dependencies include A's method.
func deriveSequences(points []Point) []Sequence {
	var sequences []Sequence
	for _, a := range points {
		for _, b := range points {
			if a.Method == b.Method {
				continue
			}
			for _, dep := range b.Trigger.Dependencies {
				if dep == a.Method {
					sequences = append(sequences, Sequence{Steps: []string{a.Method, b.Method}})
				}
			}
		}
	}
	return sequences
}

// deriveParallelGroups groups points whose sorted dependency sets are
// identical and non-empty.
func deriveParallelGroups(points []Point) []ParallelGroup {
	byDeps := make(map[string][]string)
	var order []string
	for _, p := range points {
		if len(p.Trigger.Dependencies) == 0 {
			continue
		}
		deps := append([]string(nil), p.Trigger.Dependencies...)
		sort.Strings(deps)
		key := strings.Join(deps, "\x00")
		if _, ok := byDeps[key]; !ok {
			order = append(order, key)
		}
		byDeps[key] = append(byDeps[key], p.Method)
	}

	var groups []ParallelGroup
	for _, key := range order {
		if members := byDeps[key]; len(members) > 1 {
			groups = append(groups, ParallelGroup{Methods: members})
		}
	}
	return groups
}

func deriveDimensions(points []Point) []string {
	names := map[InteractionType]string{
		TypeApproval:   "Approval Workflow",
		TypeReview:     "Quality Review",
		TypeInput:      "Data Collection",
		TypeFeedback:   "Feedback Loop",
		TypeDecision:   "Decision Gate",
		TypeValidation: "Validation Step",
	}
	seen := make(map[string]bool)
	var dims []string
	for _, p := range points {
		if name := names[p.Type]; name != "" && !seen[name] {
			seen[name] = true
			dims = append(dims, name)
		}
	}
	return dims
}

// computeMetrics derives the scalar summary. The UX score starts at 100
// and is penalized 10 per blocking point, 2 per minute of average
// timeout, and 5 per derived sequence, floored at 0.
func computeMetrics(points []Point, sequences []Sequence) Metrics {
	m := Metrics{}
	if len(points) == 0 {
		m.UXScore = 100
		return m
	}

	totalTimeout := 0
	for _, p := range points {
		if p.Blocking {
			m.BlockingCount++
		}
		totalTimeout += p.TimeoutSeconds
	}
	m.AvgTimeoutSeconds = float64(totalTimeout) / float64(len(points))
	m.CriticalPathFraction = float64(m.BlockingCount) / float64(len(points))

	score := 100.0
	score -= 10 * float64(m.BlockingCount)
	score -= 2 * (m.AvgTimeoutSeconds / 60)
	score -= 5 * float64(len(sequences))
	if score < 0 {
		score = 0
	}
	m.UXScore = score
	return m
}

// matchesAny reports whether haystack contains any of the keywords.
func matchesAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// dependencyIndex maps each method to its upstream dependencies from
// listener and router signals.
func dependencyIndex(sig *signals.FlowSignals) map[string][]string {
	deps := make(map[string][]string)
	for _, listener := range sig.FrameworkSpecific.Listeners {
		deps[listener.Method] = listener.Dependencies
	}
	for _, router := range sig.FrameworkSpecific.Routers {
		deps[router.Method] = router.Dependencies
	}
	return deps
}
