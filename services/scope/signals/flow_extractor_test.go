package signals

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/crewscope/services/scope/ast"
)

const testFlowSource = `from crewai.flow.flow import Flow, listen, router, start
from pydantic import BaseModel


class ReportState(BaseModel):
    topic: str = ""
    attempts: int = 0


class ReportFlow(Flow[ReportState]):
    """Drives research report generation."""

    @start()
    def gather(self):
        self.state.topic = input("Topic: ")
        return "gathered"

    @listen(gather)
    def summarize(self, data):
        result = ResearchCrew().crew().kickoff(inputs={"topic": self.state.topic})
        return result

    @router(summarize)
    def decide(self):
        if self.state.attempts > 3:
            return "done"
        return "retry"
        return "retry"
`

const testCombinatorSource = `from crewai.flow.flow import Flow, listen, or_, start


class MergeFlow(Flow):
    @start()
    def fetch(self):
        pass

    @start()
    def poll(self):
        pass

    @listen(or_(fetch, "poll"))
    def merge(self):
        pass
`

const testNoFlowSource = `import os


class Helper:
    def run(self):
        return os.getcwd()
`

func parseFixture(t *testing.T, source, path string) *ast.ParseResult {
	t.Helper()
	parser := ast.NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), path)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return result
}

func TestExtractFlowSignals_ReportFlow(t *testing.T) {
	result := parseFixture(t, testFlowSource, "report_flow.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(testFlowSource))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}

	if sig.ClassName != "ReportFlow" {
		t.Errorf("class = %q, want ReportFlow", sig.ClassName)
	}
	if sig.FilePath != "report_flow.py" {
		t.Errorf("file path = %q", sig.FilePath)
	}

	fw := sig.FrameworkSpecific
	if len(fw.Starts) != 1 || fw.Starts[0] != "gather" {
		t.Errorf("starts = %v, want [gather]", fw.Starts)
	}
	if len(fw.Listeners) != 1 {
		t.Fatalf("listeners = %+v, want one", fw.Listeners)
	}
	listener := fw.Listeners[0]
	if listener.Method != "summarize" {
		t.Errorf("listener method = %q, want summarize", listener.Method)
	}
	if len(listener.Dependencies) != 1 || listener.Dependencies[0] != "gather" {
		t.Errorf("listener deps = %v, want [gather]", listener.Dependencies)
	}
	if listener.Combinator != "" {
		t.Errorf("combinator = %q, want empty", listener.Combinator)
	}

	if len(fw.Routers) != 1 {
		t.Fatalf("routers = %+v, want one", fw.Routers)
	}
	router := fw.Routers[0]
	if router.Method != "decide" {
		t.Errorf("router method = %q, want decide", router.Method)
	}
	wantLabels := []string{"done", "retry"}
	if len(router.Labels) != 2 {
		t.Fatalf("router labels = %v, want %v", router.Labels, wantLabels)
	}
	for i, label := range wantLabels {
		if router.Labels[i] != label {
			t.Errorf("label[%d] = %q, want %q", i, router.Labels[i], label)
		}
	}
	if len(router.Conditions) != 1 {
		t.Fatalf("router conditions = %+v, want one", router.Conditions)
	}
	if router.Conditions[0].Condition != "self.state.attempts > 3" {
		t.Errorf("condition = %q", router.Conditions[0].Condition)
	}
}

func TestExtractFlowSignals_StateManagement(t *testing.T) {
	result := parseFixture(t, testFlowSource, "report_flow.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(testFlowSource))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}

	if !sig.State.Structured {
		t.Error("state should be structured")
	}
	if sig.State.ModelName != "ReportState" {
		t.Errorf("model = %q, want ReportState", sig.State.ModelName)
	}
	hasField := func(name string) bool {
		for _, f := range sig.State.Fields {
			if f == name {
				return true
			}
		}
		return false
	}
	if !hasField("topic") || !hasField("attempts") {
		t.Errorf("state fields = %v, want topic and attempts", sig.State.Fields)
	}
}

func TestExtractFlowSignals_Behavioral(t *testing.T) {
	result := parseFixture(t, testFlowSource, "report_flow.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(testFlowSource))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}

	b := sig.Behavioral
	if !b.CollectsInput {
		t.Error("CollectsInput should be set (input( present)")
	}
	if !b.ExecutesCrews || b.CrewCount != 1 {
		t.Errorf("ExecutesCrews=%v CrewCount=%d, want true/1", b.ExecutesCrews, b.CrewCount)
	}
	if !b.HasConditionalLogic {
		t.Error("HasConditionalLogic should be set")
	}
	if !b.HasStateEvolution {
		t.Error("HasStateEvolution should be set (self.state. present)")
	}
	if b.HasInfiniteLoop {
		t.Error("HasInfiniteLoop should not be set")
	}

	found := false
	for _, ref := range sig.External.CrewReferences {
		if ref == "ResearchCrew" {
			found = true
		}
	}
	if !found {
		t.Errorf("crew references = %v, want ResearchCrew", sig.External.CrewReferences)
	}
}

func TestDetectBehavioral_CrewExecutionForms(t *testing.T) {
	text := "ResearchCrew().crew().kickoff(inputs={})\n" +
		"await WriterCrew().crew().kickoff_async()\n" +
		"ReviewCrew().crew().kickoff_for_each(rows)\n"
	b := detectBehavioral(text)
	if b.CrewCount != 3 {
		t.Errorf("CrewCount = %d, want 3", b.CrewCount)
	}
	if !b.ExecutesCrews || !b.CrewChaining {
		t.Errorf("ExecutesCrews=%v CrewChaining=%v, want true/true", b.ExecutesCrews, b.CrewChaining)
	}
}

func TestExtractFlowSignals_Combinator(t *testing.T) {
	result := parseFixture(t, testCombinatorSource, "merge_flow.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(testCombinatorSource))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}

	if !sig.FrameworkSpecific.UsesCombinator {
		t.Error("UsesCombinator should be set")
	}
	if len(sig.FrameworkSpecific.Listeners) != 1 {
		t.Fatalf("listeners = %+v, want one", sig.FrameworkSpecific.Listeners)
	}
	listener := sig.FrameworkSpecific.Listeners[0]
	if listener.Combinator != "or_" {
		t.Errorf("combinator = %q, want or_", listener.Combinator)
	}
	// Both the string label and the bare identifier must be recorded.
	want := map[string]bool{"fetch": false, "poll": false}
	for _, dep := range listener.Dependencies {
		if _, ok := want[dep]; ok {
			want[dep] = true
		}
	}
	for dep, seen := range want {
		if !seen {
			t.Errorf("dependency %q not recorded in %v", dep, listener.Dependencies)
		}
	}
}

func TestExtractFlowSignals_NoFlowClass(t *testing.T) {
	result := parseFixture(t, testNoFlowSource, "helper.py")
	_, err := ExtractFlowSignals(context.Background(), result, []byte(testNoFlowSource))
	if !errors.Is(err, ErrNoFlowClass) {
		t.Errorf("error = %v, want ErrNoFlowClass", err)
	}
}

func TestExtractFlowSignals_NameHeuristic(t *testing.T) {
	// Class named *Flow with no recognizable base still qualifies, while
	// *FlowState must not.
	src := `class PipelineFlowState:
    pass


class PipelineFlow:
    def run(self):
        pass
`
	result := parseFixture(t, src, "pipeline.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(src))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}
	if sig.ClassName != "PipelineFlow" {
		t.Errorf("class = %q, want PipelineFlow", sig.ClassName)
	}
}

func TestParseListenArgs(t *testing.T) {
	tests := []struct {
		name           string
		call           string
		wantDeps       []string
		wantCombinator string
	}{
		{"bare identifier", "listen(gather)", []string{"gather"}, ""},
		{"string label", `listen("gathered")`, []string{"gathered"}, ""},
		{"and combinator", "listen(and_(a, b))", []string{"a", "b"}, "and_"},
		{"mixed forms", `listen(or_(fetch, "poll"))`, []string{"poll", "fetch"}, "or_"},
		{"empty", "listen()", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, combinator := parseListenArgs(tt.call)
			if combinator != tt.wantCombinator {
				t.Errorf("combinator = %q, want %q", combinator, tt.wantCombinator)
			}
			if len(deps) != len(tt.wantDeps) {
				t.Fatalf("deps = %v, want %v", deps, tt.wantDeps)
			}
			got := make(map[string]bool, len(deps))
			for _, d := range deps {
				got[d] = true
			}
			for _, d := range tt.wantDeps {
				if !got[d] {
					t.Errorf("missing dependency %q in %v", d, deps)
				}
			}
		})
	}
}

func TestCollectReturnLabels_FirstAppearanceDedup(t *testing.T) {
	span := []string{
		`    def decide(self):`,
		`        if ready:`,
		`            return "done"`,
		`        return "retry"`,
		`        return "done"`,
	}
	labels := collectReturnLabels(span)
	if len(labels) != 2 || labels[0] != "done" || labels[1] != "retry" {
		t.Errorf("labels = %v, want [done retry]", labels)
	}
}

func TestMethodSpan_DecoratedMethodCoversBody(t *testing.T) {
	source := `from crewai.flow.flow import Flow, router, start

class BranchFlow(Flow):
    @start()
    def gather(self):
        return "data"

    @router(gather)
    def decide(self):
        if self.state.failed:
            return "retry"
        return "done"
`
	result := parseFixture(t, source, "branch_flow.py")
	sig, err := ExtractFlowSignals(context.Background(), result, []byte(source))
	if err != nil {
		t.Fatalf("ExtractFlowSignals() error: %v", err)
	}

	fw := sig.FrameworkSpecific
	if len(fw.Routers) != 1 {
		t.Fatalf("routers = %+v, want one", fw.Routers)
	}
	router := fw.Routers[0]
	if len(router.Labels) != 2 || router.Labels[0] != "retry" || router.Labels[1] != "done" {
		t.Errorf("labels = %v, want [retry done]", router.Labels)
	}
	if len(router.Conditions) != 1 {
		t.Fatalf("conditions = %+v, want one", router.Conditions)
	}
	if router.Conditions[0].Condition != "self.state.failed" {
		t.Errorf("condition = %q, want self.state.failed", router.Conditions[0].Condition)
	}
}

func TestMethodSpan_IndentFallbackSkipsDecorators(t *testing.T) {
	lines := []string{
		`class BranchFlow(Flow):`,
		`    @router(gather)`,
		`    def decide(self):`,
		`        if self.state.failed:`,
		`            return "retry"`,
		`        return "done"`,
		``,
		`    def other(self):`,
		`        pass`,
	}
	// EndLine zero forces the indentation walk.
	// The trailing blank line stays inside the span; only the next
	// definition terminates the walk.
	span := methodSpan(lines, MethodSignal{Name: "decide", Line: 2})
	if len(span) != 6 {
		t.Fatalf("span = %d lines, want 6: %q", len(span), span)
	}
	labels := collectReturnLabels(span)
	if len(labels) != 2 || labels[0] != "retry" || labels[1] != "done" {
		t.Errorf("labels = %v, want [retry done]", labels)
	}
}
