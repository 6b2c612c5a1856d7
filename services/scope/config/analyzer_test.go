package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "agents.yaml"), `
researcher:
  role: Senior Researcher
  goal: Find accurate information
  backstory: Veteran analyst
  tools: [SerperDevTool]
  llm: gpt-4o
writer:
  role: Writer
  goal: Produce the report
`)
	writeFile(t, filepath.Join(root, "tasks.yaml"), `
research_task:
  description: Research the topic
  expected_output: Bullet list of findings
  agent: researcher
review_task:
  description: Review the draft
  expected_output: Approved draft
  agent: writer
  context: [research_task]
  human_input: true
`)
	writeFile(t, filepath.Join(root, "crews.yaml"), `
report_crew:
  agents: [researcher, writer]
  tasks: [research_task, review_task]
  process: hierarchical
`)
	return root
}

func TestAnalyzer_Analyze(t *testing.T) {
	root := setupProject(t)
	analyzer := NewAnalyzer()

	result, err := analyzer.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if len(result.Agents) != 2 || len(result.Tasks) != 2 || len(result.Crews) != 1 {
		t.Fatalf("counts = %d/%d/%d, want 2/2/1",
			len(result.Agents), len(result.Tasks), len(result.Crews))
	}
	if result.Agents["researcher"].Role != "Senior Researcher" {
		t.Errorf("researcher role = %q", result.Agents["researcher"].Role)
	}

	// Crew member order must survive the round trip.
	crew := result.Crews["report_crew"]
	if !reflect.DeepEqual(crew.Agents, []string{"researcher", "writer"}) {
		t.Errorf("crew agents = %v", crew.Agents)
	}
	if !reflect.DeepEqual(crew.Tasks, []string{"research_task", "review_task"}) {
		t.Errorf("crew tasks = %v", crew.Tasks)
	}
	if crew.Process != "hierarchical" {
		t.Errorf("process = %q", crew.Process)
	}
}

func TestAnalyzer_DerivedIndices(t *testing.T) {
	root := setupProject(t)
	analyzer := NewAnalyzer()

	result, err := analyzer.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if !reflect.DeepEqual(result.AgentTasks["researcher"], []string{"research_task"}) {
		t.Errorf("agent tasks = %v", result.AgentTasks["researcher"])
	}
	if !reflect.DeepEqual(result.TaskDependencies["review_task"], []string{"research_task"}) {
		t.Errorf("task deps = %v", result.TaskDependencies["review_task"])
	}
	members := result.CrewMembership["report_crew"]
	if len(members.Agents) != 2 || len(members.Tasks) != 2 {
		t.Errorf("crew membership = %+v", members)
	}

	if len(result.HumanInteractions) != 1 || result.HumanInteractions[0].Task != "review_task" {
		t.Errorf("human interactions = %+v", result.HumanInteractions)
	}
	if !reflect.DeepEqual(result.Integrations.Tools, []string{"SerperDevTool"}) {
		t.Errorf("tools = %v", result.Integrations.Tools)
	}
	if !reflect.DeepEqual(result.Integrations.LLMProviders, []string{"openai"}) {
		t.Errorf("providers = %v", result.Integrations.LLMProviders)
	}
}

func TestAnalyzer_Idempotent(t *testing.T) {
	root := setupProject(t)
	analyzer := NewAnalyzer()

	first, err := analyzer.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("first Analyze() error: %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("second Analyze() error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated analysis produced different results")
	}
}

func TestAnalyzer_NestedConfigOverridesRoot(t *testing.T) {
	root := setupProject(t)
	writeFile(t, filepath.Join(root, "src", "proj", "crews", "report", "config", "agents.yaml"), `
researcher:
  role: Nested Researcher
  goal: Overridden goal
`)

	result, err := NewAnalyzer().Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if result.Agents["researcher"].Role != "Nested Researcher" {
		t.Errorf("role = %q, want nested entry to win", result.Agents["researcher"].Role)
	}
	// The other root-level agent is untouched.
	if result.Agents["writer"].Role != "Writer" {
		t.Errorf("writer role = %q", result.Agents["writer"].Role)
	}
}

func TestAnalyzer_MissingAndMalformedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "agents.yaml"), `
ok_agent:
  role: Fine
  goal: Fine
`)
	writeFile(t, filepath.Join(root, "tasks.yaml"), "::: not yaml {{{")

	result, err := NewAnalyzer().Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze() must tolerate malformed files: %v", err)
	}
	if len(result.Agents) != 1 {
		t.Errorf("agents = %d, want 1", len(result.Agents))
	}
	if len(result.Tasks) != 0 {
		t.Errorf("tasks = %d, want 0 (malformed file treated as empty)", len(result.Tasks))
	}
	if len(result.Crews) != 0 {
		t.Errorf("crews = %d, want 0 (missing file treated as empty)", len(result.Crews))
	}
}

func TestAnalyzer_UnreadableRoot(t *testing.T) {
	_, err := NewAnalyzer().Analyze(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for unreadable root")
	}
}

func TestCheckConsistency_DanglingReferences(t *testing.T) {
	result := &Result{
		Agents: map[string]AgentConfig{
			"researcher": {Role: "R", Goal: "G"},
		},
		Tasks: map[string]TaskConfig{
			"t1": {Description: "d", ExpectedOutput: "o", Agent: "ghost"},
			"t2": {Description: "d", ExpectedOutput: "o", Context: []string{"t1", "missing_task"}},
		},
		Crews: map[string]CrewConfig{
			"report_crew": {Agents: []string{"researcher"}, Tasks: []string{"t9"}},
		},
	}

	report := NewAnalyzer().CheckConsistency(result)

	wantErrors := []string{
		"Task 't1' references unknown agent 'ghost'",
		"Task 't2' references unknown context task 'missing_task'",
		"Crew 'report_crew' references unknown task 't9'",
	}
	if len(report.Errors) != len(wantErrors) {
		t.Fatalf("errors = %v, want %d entries", report.Errors, len(wantErrors))
	}
	for _, want := range wantErrors {
		found := false
		for _, got := range report.Errors {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing error %q in %v", want, report.Errors)
		}
	}

	// A crew error must name both the crew and the dangling task.
	crewErrs := 0
	for _, e := range report.Errors {
		if strings.Contains(e, "report_crew") && strings.Contains(e, "t9") {
			crewErrs++
		}
	}
	if crewErrs != 1 {
		t.Errorf("crew dangling-task errors = %d, want exactly 1", crewErrs)
	}
}

func TestCheckConsistency_WarningsAreNotErrors(t *testing.T) {
	result := &Result{
		Agents: map[string]AgentConfig{
			"X": {Goal: "has goal, no role"},
		},
		Tasks: map[string]TaskConfig{},
		Crews: map[string]CrewConfig{},
	}

	report := NewAnalyzer().CheckConsistency(result)

	if len(report.Errors) != 0 {
		t.Errorf("errors = %v, want none", report.Errors)
	}
	found := false
	for _, w := range report.Warnings {
		if w == "Agent 'X' has no role defined" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want role warning for X", report.Warnings)
	}
}

func TestCheckConsistency_CleanConfig(t *testing.T) {
	root := setupProject(t)
	analyzer := NewAnalyzer()
	result, err := analyzer.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	report := analyzer.CheckConsistency(result)
	if !report.Clean() {
		t.Errorf("report not clean: errors=%v warnings=%v", report.Errors, report.Warnings)
	}
}
