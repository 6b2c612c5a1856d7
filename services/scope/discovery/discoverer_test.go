package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const fixtureFlow = `from crewai.flow.flow import Flow, listen, router, start
from pydantic import BaseModel


class ReportState(BaseModel):
    attempts: int = 0


class ReportFlow(Flow[ReportState]):
    @start()
    def gather(self):
        return "gathered"

    @listen(gather)
    def summarize(self):
        return ResearchCrew().crew().kickoff()

    @router(summarize)
    def decide(self):
        if self.state.attempts > 3:
            return "done"
        return "retry"
`

const fixtureCrew = `from crewai import Agent, Crew, Process, Task
from crewai.project import CrewBase, agent, crew, task


@CrewBase
class ResearchCrew:
    @agent
    def researcher(self) -> Agent:
        return Agent(config=self.agents_config["researcher"])

    @task
    def research_task(self) -> Task:
        return Task(config=self.tasks_config["research_task"])

    @crew
    def crew(self) -> Crew:
        return Crew(
            agents=[self.researcher()],
            tasks=[self.research_task()],
            process=Process.sequential,
        )
`

const fixtureAgentsYAML = `
researcher:
  role: Senior Researcher
  goal: Find information
`

const fixtureCrewsYAML = `
yaml_only_crew:
  agents: [researcher]
  tasks: [research_task]
  process: sequential
ResearchCrew:
  agents: [researcher]
  tasks: [research_task]
  process: sequential
`

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func setupFixtureProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "src", "report", "flow.py"), fixtureFlow)
	write(t, filepath.Join(root, "src", "report", "crew.py"), fixtureCrew)
	write(t, filepath.Join(root, "agents.yaml"), fixtureAgentsYAML)
	write(t, filepath.Join(root, "crews.yaml"), fixtureCrewsYAML)
	// Files the scan must skip.
	write(t, filepath.Join(root, "src", "report", "helpers.py"), "import os\n")
	write(t, filepath.Join(root, "tests", "test_flow.py"), fixtureFlow)
	write(t, filepath.Join(root, "node_modules", "pkg", "mod.py"), fixtureFlow)
	write(t, filepath.Join(root, "src", "report", "broken.py"), "from crewai import Agent\ndef helper(:\n    pass\n")
	return root
}

func findEntity(result *Result, name string) *Entity {
	for i := range result.Entities {
		if result.Entities[i].Name == name {
			return &result.Entities[i]
		}
	}
	return nil
}

func TestDiscoverer_Discover(t *testing.T) {
	root := setupFixtureProject(t)
	d, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	result, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	flow := findEntity(result, "ReportFlow")
	if flow == nil {
		t.Fatalf("ReportFlow not discovered; entities: %v", entityNames(result))
	}
	if flow.Type != EntityFlow || flow.Source != SourceCode {
		t.Errorf("flow type/source = %s/%s", flow.Type, flow.Source)
	}
	if flow.Artifacts.FlowChart == "" || flow.Artifacts.MermaidChart == "" {
		t.Error("flow charts missing")
	}
	if len(flow.Artifacts.Routers) != 1 {
		t.Errorf("routers = %d, want 1", len(flow.Artifacts.Routers))
	}
	if flow.Execution.EstimatedTimeoutMillis <= 0 || flow.Execution.EstimatedTimeoutMillis > MaxTimeoutMillis {
		t.Errorf("timeout = %d out of range", flow.Execution.EstimatedTimeoutMillis)
	}

	crew := findEntity(result, "ResearchCrew")
	if crew == nil {
		t.Fatalf("ResearchCrew not discovered; entities: %v", entityNames(result))
	}
	if crew.Type != EntityCrew {
		t.Errorf("crew type = %s", crew.Type)
	}

	yamlCrew := findEntity(result, "yaml_only_crew")
	if yamlCrew == nil {
		t.Fatalf("yaml_only_crew not discovered; entities: %v", entityNames(result))
	}
	if yamlCrew.Source != SourceYAML || yamlCrew.ID != "yaml:yaml_only_crew" {
		t.Errorf("yaml crew source/id = %s/%s", yamlCrew.Source, yamlCrew.ID)
	}

	if result.Stats.RunID == "" {
		t.Error("run id missing")
	}
	if result.Stats.FlowCount != 1 {
		t.Errorf("flow count = %d, want 1", result.Stats.FlowCount)
	}
}

func entityNames(result *Result) []string {
	var names []string
	for _, e := range result.Entities {
		names = append(names, e.Name)
	}
	return names
}

func TestDiscoverer_TwoStageFilter(t *testing.T) {
	root := setupFixtureProject(t)
	d, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	result, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	// helpers.py fails the content pre-filter; broken.py parses with
	// errors but still flows through; test/node_modules copies never
	// reach the scan.
	if result.Stats.FilesScanned != 4 {
		t.Errorf("files scanned = %d, want 4 (flow, crew, helpers, broken)", result.Stats.FilesScanned)
	}
	for _, e := range result.Entities {
		if e.Path != "" && (filepath.Base(filepath.Dir(e.Path)) == "tests" ||
			filepath.Base(filepath.Dir(filepath.Dir(e.Path))) == "node_modules") {
			t.Errorf("entity from ignored dir: %s", e.Path)
		}
	}
}

func TestDiscoverer_BadFileDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "broken.py"), "from crewai import Agent\ndef helper(:\n    pass\n")
	write(t, filepath.Join(root, "good.py"), fixtureFlow)

	d, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	result, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() must not fail on a bad file: %v", err)
	}
	if findEntity(result, "ReportFlow") == nil {
		t.Errorf("good file not analyzed; entities: %v", entityNames(result))
	}
}

func TestDiscoverer_EmptyProject(t *testing.T) {
	d, err := New(DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	result, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(result.Entities) != 0 {
		t.Errorf("entities = %v, want none", entityNames(result))
	}
}

func TestDiscoverer_MissingRoot(t *testing.T) {
	d, err := New(DefaultOptions(filepath.Join(t.TempDir(), "absent")))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := d.Discover(context.Background()); err == nil {
		t.Fatal("expected hard failure for unreadable root")
	}
}

func TestOptions_Validate(t *testing.T) {
	if err := (Options{Root: "", Dedup: PreferCode}).Validate(); err == nil {
		t.Error("empty root must fail validation")
	}
	if err := (Options{Root: "/tmp", Dedup: "whatever"}).Validate(); err == nil {
		t.Error("unknown dedup policy must fail validation")
	}
	if err := DefaultOptions("/tmp").Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestDedupeEntities_Policies(t *testing.T) {
	entities := []Entity{
		{Name: "ResearchCrew", Source: SourceCode, ID: "a.py:ResearchCrew", Type: EntityCrew},
		{Name: "ResearchCrew", Source: SourceYAML, ID: "yaml:ResearchCrew", Type: EntityCrew},
	}

	code := dedupeEntities(entities, PreferCode)
	if len(code) != 1 || code[0].Source != SourceCode {
		t.Errorf("prefer_code result = %+v", code)
	}

	yaml := dedupeEntities(entities, PreferYAML)
	if len(yaml) != 1 || yaml[0].Source != SourceYAML {
		t.Errorf("prefer_yaml result = %+v", yaml)
	}
}

func TestFlowDiscoverer_FiltersTypes(t *testing.T) {
	root := setupFixtureProject(t)
	fd, err := NewFlowDiscoverer(DefaultOptions(root))
	if err != nil {
		t.Fatalf("NewFlowDiscoverer() error: %v", err)
	}
	result, err := fd.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	for _, e := range result.Entities {
		if e.Type != EntityFlow {
			t.Errorf("non-flow entity %s (%s) in flow discovery", e.Name, e.Type)
		}
	}
	if len(result.Entities) != 1 {
		t.Errorf("flow entities = %d, want 1", len(result.Entities))
	}
}
