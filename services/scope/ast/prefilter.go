package ast

import "strings"

// Workflow marker lists for the cheap textual pre-filter.
//
// These lists are deliberately a superset of real indicators: a false
// positive only costs one wasted parse, while a false negative would
// silently drop a workflow from discovery. Keep them generous.
var (
	// workflowImportMarkers match import statements of the workflow
	// framework.
	workflowImportMarkers = []string{
		"from crewai",
		"import crewai",
		"from crewai.flow",
		"crewai_tools",
	}

	// workflowDecoratorMarkers match the decorators that drive flow and
	// crew execution order.
	workflowDecoratorMarkers = []string{
		"@start",
		"@listen",
		"@router",
		"@persist",
		"@crew",
		"@agent",
		"@task",
		"@CrewBase",
		"@before_kickoff",
		"@after_kickoff",
	}

	// workflowBaseMarkers match base class fragments of workflow classes.
	workflowBaseMarkers = []string{
		"(Flow",
		"Flow[",
		"(CrewBase",
		"Crew(",
	}
)

// LooksLikeWorkflowSource reports whether content plausibly defines a
// crew or flow.
//
// This is the first stage of the two-stage discovery filter: a pure
// substring check over raw bytes, run before any parsing is paid for.
// Returning true only means "worth parsing", not "is a workflow".
func LooksLikeWorkflowSource(content []byte) bool {
	text := string(content)

	for _, marker := range workflowImportMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	for _, marker := range workflowDecoratorMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	for _, marker := range workflowBaseMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// LooksLikeConfigFile reports whether a YAML file name follows the
// conventional agents/tasks/crews configuration naming.
func LooksLikeConfigFile(name string) bool {
	switch name {
	case "agents.yaml", "agents.yml", "tasks.yaml", "tasks.yml", "crews.yaml", "crews.yml":
		return true
	}
	return false
}
