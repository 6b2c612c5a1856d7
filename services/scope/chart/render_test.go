package chart

import (
	"strings"
	"testing"

	"github.com/AleutianAI/crewscope/services/scope/hitl"
	"github.com/AleutianAI/crewscope/services/scope/integration"
	"github.com/AleutianAI/crewscope/services/scope/routing"
	"github.com/AleutianAI/crewscope/services/scope/signals"
)

func sampleInput() Input {
	return Input{
		Flow: &signals.FlowSignals{
			FilePath:  "report_flow.py",
			ClassName: "ReportFlow",
			Class: signals.ClassSignal{
				Name: "ReportFlow",
				Methods: []signals.MethodSignal{
					{Name: "gather"}, {Name: "summarize"}, {Name: "decide"},
				},
			},
			Behavioral: signals.BehavioralPatterns{ExecutesCrews: true, CrewCount: 1},
			State: signals.StateManagement{
				Structured: true, ModelName: "ReportState", Fields: []string{"topic"},
			},
			FrameworkSpecific: signals.CrewAISpecificSignals{
				Starts: []string{"gather"},
				Listeners: []signals.ListenerSignal{
					{Method: "summarize", Dependencies: []string{"gather"}},
				},
			},
		},
		Routers: []routing.RouterAnalysis{
			{
				Method:     "decide",
				Complexity: routing.ComplexitySimple,
				Paths: []routing.RouterPath{
					{Label: "retry", Description: `route "retry" to unresolved`},
					{Label: "done", TargetMethod: "finish", Description: `route "done" to finish`},
				},
				Dependencies: []string{"summarize"},
			},
		},
		Sequences: []routing.PathSequence{
			{Steps: []string{"gather", "summarize", "decide"}},
		},
		HITL: &hitl.Workflow{
			Points: []hitl.Point{
				{Method: "gather", Type: hitl.TypeInput, Blocking: true, TimeoutSeconds: 600,
					Context: hitl.PointContext{Urgency: hitl.UrgencyLow}},
			},
			Metrics: hitl.Metrics{UXScore: 70},
		},
		Integrations: &integration.Analysis{
			Points: []integration.Point{
				{Service: "OpenAI", Type: integration.TypeAPI,
					Reliability: integration.Reliability{Availability: 0.99, FailureImpact: integration.CriticalityCritical},
					Config:      integration.Config{EnvVars: []string{"OPENAI_API_KEY"}}},
			},
		},
	}
}

func TestRenderFlowChart(t *testing.T) {
	out := RenderFlowChart(sampleInput())

	for _, want := range []string{
		"=== ReportFlow ===",
		"gather",
		"summarize",
		"decide",
		"--[retry]--> ?",
		"--[done]--> finish",
		"Human touch points:",
		"[blocking]",
		"External integrations:",
		"OpenAI",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFlowChart_OmitsEmptySections(t *testing.T) {
	in := sampleInput()
	in.HITL = nil
	in.Integrations = nil

	out := RenderFlowChart(in)
	if strings.Contains(out, "Human touch points") {
		t.Error("empty HITL section must be omitted")
	}
	if strings.Contains(out, "External integrations") {
		t.Error("empty integration section must be omitted")
	}
}

func TestRenderMermaid(t *testing.T) {
	out := RenderMermaid(sampleInput())

	if !strings.HasPrefix(out, "graph TD\n") {
		t.Errorf("mermaid output must start with graph TD:\n%s", out)
	}
	for _, want := range []string{
		`gather(["gather"])`,
		"gather --> summarize",
		`decide{"decide"}`,
		"decide -->|done| finish",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid missing %q:\n%s", want, out)
		}
	}
	// Unresolved labels draw no edge.
	if strings.Contains(out, "|retry|") {
		t.Errorf("unresolved label must not produce an edge:\n%s", out)
	}
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(sampleInput())

	for _, want := range []string{
		"# Workflow Analysis: ReportFlow",
		"## Flow Structure",
		"## Routing",
		"## Human-in-the-Loop",
		"## External Integrations",
		"heuristic",
		"`ReportState`",
		"Critical path: gather -> summarize -> decide",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestBuildMetadata_Score(t *testing.T) {
	meta := BuildMetadata(sampleInput())

	if meta.ComplexityScore != 0 {
		t.Errorf("score = %d, want 0 (no condition crossed)", meta.ComplexityScore)
	}
	if meta.Complexity != ComplexitySimple {
		t.Errorf("complexity = %q, want simple", meta.Complexity)
	}
	// 300 base + 120*1 crew + 180*1 hitl + 60*1 integration + 30*1 router
	if meta.EstimatedDurationSeconds != 690 {
		t.Errorf("duration = %d, want 690", meta.EstimatedDurationSeconds)
	}
	if meta.Counts.Methods != 3 {
		t.Errorf("method count = %d", meta.Counts.Methods)
	}
}

func TestBuildMetadata_AdvancedUncapped(t *testing.T) {
	in := sampleInput()
	for i := 0; i < 3; i++ {
		in.Routers = append(in.Routers, routing.RouterAnalysis{Method: "r"})
	}
	for i := 0; i < 4; i++ {
		in.HITL.Points = append(in.HITL.Points, hitl.Point{Method: "h", Type: hitl.TypeReview})
	}
	for i := 0; i < 6; i++ {
		in.Integrations.Points = append(in.Integrations.Points, integration.Point{Service: "s"})
	}
	in.ParallelGroups = []routing.ParallelGroup{{}, {}}
	for i := 0; i < 9; i++ {
		in.Flow.Class.Methods = append(in.Flow.Class.Methods, signals.MethodSignal{Name: "m"})
	}

	meta := BuildMetadata(in)
	if meta.ComplexityScore != 4 {
		t.Errorf("score = %d, want capped 4", meta.ComplexityScore)
	}
	if meta.Complexity != ComplexityAdvanced {
		t.Errorf("complexity = %q, want advanced", meta.Complexity)
	}
	// Duration is additive with no ceiling at this layer:
	// 300 + 120*1 + 180*5 + 60*7 + 30*4 = 300+120+900+420+120 = 1860.
	if meta.EstimatedDurationSeconds != 1860 {
		t.Errorf("duration = %d, want 1860 (uncapped)", meta.EstimatedDurationSeconds)
	}
}

func TestBuildMetadata_EmptyInput(t *testing.T) {
	meta := BuildMetadata(Input{})
	if meta.EstimatedDurationSeconds != durationBase {
		t.Errorf("duration = %d, want base %d", meta.EstimatedDurationSeconds, durationBase)
	}
	if meta.Complexity != ComplexitySimple {
		t.Errorf("complexity = %q", meta.Complexity)
	}
	if len(meta.CriticalPath) != 0 {
		t.Errorf("critical path = %v, want empty", meta.CriticalPath)
	}
}
