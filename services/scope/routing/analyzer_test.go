package routing

import (
	"reflect"
	"testing"

	"github.com/AleutianAI/crewscope/services/scope/signals"
)

// reportFlowSignals mirrors a minimal research-report flow: one start, one
// listener, one router whose labels have no matching listeners.
func reportFlowSignals() *signals.FlowSignals {
	return &signals.FlowSignals{
		FilePath:  "report_flow.py",
		ClassName: "ReportFlow",
		Class: signals.ClassSignal{
			Name: "ReportFlow",
			Methods: []signals.MethodSignal{
				{Name: "gather"},
				{Name: "summarize"},
				{Name: "decide"},
			},
		},
		FrameworkSpecific: signals.CrewAISpecificSignals{
			Starts: []string{"gather"},
			Listeners: []signals.ListenerSignal{
				{Method: "summarize", Dependencies: []string{"gather"}},
			},
			Routers: []signals.RouterSignal{
				{
					Method: "decide",
					Labels: []string{"retry", "done"},
					Conditions: []signals.ConditionalStatement{
						{Condition: "self.state.attempts < 3", Line: 20},
					},
					Dependencies: []string{"summarize"},
				},
			},
		},
	}
}

func TestAnalyzeRouters_UnmatchedLabelsStayUnresolved(t *testing.T) {
	analyses := AnalyzeRouters(reportFlowSignals())
	if len(analyses) != 1 {
		t.Fatalf("analyses = %d, want 1", len(analyses))
	}

	a := analyses[0]
	if a.Method != "decide" {
		t.Errorf("method = %q, want decide", a.Method)
	}
	if a.Complexity != ComplexitySimple {
		t.Errorf("complexity = %q, want simple (2 paths)", a.Complexity)
	}
	if a.BranchingFactor != 2 {
		t.Errorf("branching factor = %d, want 2", a.BranchingFactor)
	}
	if len(a.Paths) != 2 {
		t.Fatalf("paths = %+v, want 2", a.Paths)
	}
	for _, path := range a.Paths {
		if path.TargetMethod != "" {
			t.Errorf("label %q resolved to %q, want unresolved", path.Label, path.TargetMethod)
		}
		if path.Probability != nil {
			t.Errorf("label %q has probability %v, must stay nil", path.Label, *path.Probability)
		}
	}
	if a.Paths[0].Condition != "self.state.attempts < 3" {
		t.Errorf("first path condition = %q", a.Paths[0].Condition)
	}
	// Trailing label with no paired condition is the fall-through.
	if a.DefaultPath != "done" {
		t.Errorf("default path = %q, want done", a.DefaultPath)
	}
	if !reflect.DeepEqual(a.Dependencies, []string{"summarize"}) {
		t.Errorf("dependencies = %v", a.Dependencies)
	}
}

func TestAnalyzeRouters_TargetResolution(t *testing.T) {
	sig := reportFlowSignals()
	// A listener on the "retry" label resolves that path.
	sig.FrameworkSpecific.Listeners = append(sig.FrameworkSpecific.Listeners,
		signals.ListenerSignal{Method: "gather_again", Dependencies: []string{"retry"}})
	sig.Class.Methods = append(sig.Class.Methods, signals.MethodSignal{Name: "gather_again"})

	analyses := AnalyzeRouters(sig)
	paths := analyses[0].Paths
	if paths[0].TargetMethod != "gather_again" {
		t.Errorf("retry target = %q, want gather_again", paths[0].TargetMethod)
	}
	if paths[1].TargetMethod != "" {
		t.Errorf("done target = %q, want unresolved", paths[1].TargetMethod)
	}
}

func TestAnalyzeRouters_NameSimilarityFallback(t *testing.T) {
	sig := reportFlowSignals()
	sig.Class.Methods = append(sig.Class.Methods, signals.MethodSignal{Name: "mark_done"})

	analyses := AnalyzeRouters(sig)
	paths := analyses[0].Paths
	if paths[1].TargetMethod != "mark_done" {
		t.Errorf("done target = %q, want mark_done via name similarity", paths[1].TargetMethod)
	}
}

func TestClassifyComplexity(t *testing.T) {
	longCond := make([]byte, maxConditionLength)
	for i := range longCond {
		longCond[i] = 'x'
	}

	tests := []struct {
		name  string
		paths []RouterPath
		want  Complexity
	}{
		{"no paths", nil, ComplexitySimple},
		{"two paths", []RouterPath{{}, {}}, ComplexitySimple},
		{"three short", []RouterPath{{Condition: "a > 1"}, {}, {}}, ComplexityModerate},
		{"four short", []RouterPath{{}, {}, {}, {}}, ComplexityModerate},
		{"three with long condition", []RouterPath{{Condition: string(longCond)}, {}, {}}, ComplexityComplex},
		{"five paths", []RouterPath{{}, {}, {}, {}, {}}, ComplexityComplex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyComplexity(tt.paths); got != tt.want {
				t.Errorf("classifyComplexity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnumeratePaths_Linear(t *testing.T) {
	sequences := EnumeratePaths(reportFlowSignals())
	if len(sequences) != 1 {
		t.Fatalf("sequences = %+v, want 1", sequences)
	}
	want := []string{"gather", "summarize", "decide"}
	if !reflect.DeepEqual(sequences[0].Steps, want) {
		t.Errorf("steps = %v, want %v", sequences[0].Steps, want)
	}
	if sequences[0].LoopsBack {
		t.Error("linear path must not be marked as looping")
	}
}

func TestEnumeratePaths_CycleTruncates(t *testing.T) {
	sig := reportFlowSignals()
	// Listener on the router's "retry" label that feeds back into the
	// summarizer's upstream, closing a loop.
	sig.FrameworkSpecific.Listeners = append(sig.FrameworkSpecific.Listeners,
		signals.ListenerSignal{Method: "gather", Dependencies: []string{"retry"}})

	sequences := EnumeratePaths(sig)
	if len(sequences) == 0 {
		t.Fatal("no sequences produced")
	}
	looped := false
	for _, seq := range sequences {
		if seq.LoopsBack {
			looped = true
			for i, step := range seq.Steps {
				for j, other := range seq.Steps {
					if i != j && step == other {
						t.Errorf("truncated path repeats %q: %v", step, seq.Steps)
					}
				}
			}
		}
	}
	if !looped {
		t.Errorf("expected a LoopsBack sequence in %+v", sequences)
	}
}

func TestDetectParallelGroups(t *testing.T) {
	sig := &signals.FlowSignals{
		FrameworkSpecific: signals.CrewAISpecificSignals{
			Starts: []string{"seed"},
			Listeners: []signals.ListenerSignal{
				{Method: "fetch_web", Dependencies: []string{"seed"}},
				{Method: "fetch_db", Dependencies: []string{"seed"}},
				{Method: "merge", Dependencies: []string{"fetch_web", "fetch_db"}, Combinator: "and_"},
			},
		},
	}

	groups := DetectParallelGroups(sig)
	if len(groups) != 1 {
		t.Fatalf("groups = %+v, want 1", groups)
	}
	if !reflect.DeepEqual(groups[0].Methods, []string{"fetch_web", "fetch_db"}) {
		t.Errorf("methods = %v", groups[0].Methods)
	}
	if groups[0].Trigger != "seed" {
		t.Errorf("trigger = %q, want seed (shared by both members)", groups[0].Trigger)
	}
}

func TestDetectParallelGroups_NoCombinator(t *testing.T) {
	if groups := DetectParallelGroups(reportFlowSignals()); groups != nil {
		t.Errorf("groups = %+v, want none", groups)
	}
}
