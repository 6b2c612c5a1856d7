// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package signals extracts structured workflow signals from parsed Python
// source. It consumes the typed symbol model produced by the ast package
// together with the raw file text: some signals (literal return strings,
// state attribute chains, listen argument lists) live in expression detail
// the symbol model deliberately elides, so they are recovered by text
// matching over method source spans.
//
// Every extraction in this package is heuristic. Detector keyword lists are
// intentionally a superset of real indicators: a false positive costs a
// reviewer a glance, a false negative hides a workflow. Extracted signals
// carry no execution-time guarantee.
package signals

// MethodSignal describes one method of a workflow class.
//
// Decorators holds bare decorator names ("start", "listen"); DecoratorCalls
// holds the full verbatim decorator expressions ("listen(and_(a, b))") in
// the same order.
type MethodSignal struct {
	Name           string   `json:"name"`
	Decorators     []string `json:"decorators,omitempty"`
	DecoratorCalls []string `json:"decorator_calls,omitempty"`
	Parameters     []string `json:"parameters,omitempty"`
	IsAsync        bool     `json:"is_async"`
	DocComment     string   `json:"doc_comment,omitempty"`
	Line           int      `json:"line"`
	EndLine        int      `json:"end_line"`
}

// ClassSignal describes the workflow-defining class of a file. One file
// yields at most one ClassSignal; when several classes qualify the first
// match wins and the rest are ignored.
type ClassSignal struct {
	Name       string         `json:"name"`
	Decorators []string       `json:"decorators,omitempty"`
	Bases      []string       `json:"bases,omitempty"`
	Methods    []MethodSignal `json:"methods"`
	Line       int            `json:"line"`
}

// BehavioralPatterns is the coarse flag set computed by substring presence
// over the whole file text. Flags are a superset policy: each keyword list
// errs toward matching.
type BehavioralPatterns struct {
	CollectsInput           bool `json:"collects_input"`
	MakesLLMCalls           bool `json:"makes_llm_calls"`
	HasFileIO               bool `json:"has_file_io"`
	HasConditionalLogic     bool `json:"has_conditional_logic"`
	HasLoops                bool `json:"has_loops"`
	ExecutesCrews           bool `json:"executes_crews"`
	CrewCount               int  `json:"crew_count"`
	CrewChaining            bool `json:"crew_chaining"`
	ParallelCrews           bool `json:"parallel_crews"`
	HasHumanInLoop          bool `json:"has_human_in_loop"`
	HasExternalIntegrations bool `json:"has_external_integrations"`
	HasStateEvolution       bool `json:"has_state_evolution"`
	HasParallelExecution    bool `json:"has_parallel_execution"`
	HasInfiniteLoop         bool `json:"has_infinite_loop"`
}

// ExternalService is a single inferred external dependency of a flow.
type ExternalService struct {
	Name       string   `json:"name"`
	EnvVar     string   `json:"env_var,omitempty"`
	Operations []string `json:"operations,omitempty"`
}

// ExternalInteractions inventories everything a flow appears to touch
// outside its own process.
type ExternalInteractions struct {
	CrewReferences []string          `json:"crew_references,omitempty"`
	APIReferences  []string          `json:"api_references,omitempty"`
	UsesDatabase   bool              `json:"uses_database"`
	ReadsFiles     bool              `json:"reads_files"`
	WritesFiles    bool              `json:"writes_files"`
	FileFormats    []string          `json:"file_formats,omitempty"`
	Services       []ExternalService `json:"services,omitempty"`
}

// StateManagement captures how a flow handles its state object.
type StateManagement struct {
	Structured bool     `json:"structured"`
	ModelName  string   `json:"model_name,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	Evolution  []string `json:"evolution,omitempty"`
}

// ConditionalStatement is a raw `if` condition captured from a method body.
type ConditionalStatement struct {
	Condition string `json:"condition"`
	Line      int    `json:"line"`
}

// RoutingLogic aggregates routing-relevant raw material: router method
// names, every string literal returned anywhere in the class, and captured
// conditional statements.
type RoutingLogic struct {
	RouterMethods []string               `json:"router_methods,omitempty"`
	ReturnLabels  []string               `json:"return_labels,omitempty"`
	Conditionals  []ConditionalStatement `json:"conditionals,omitempty"`
}

// ListenerSignal is one @listen-decorated method with its parsed
// dependencies. Dependencies holds both string-literal labels and bare
// method identifiers; Combinator is "and_", "or_", or empty.
type ListenerSignal struct {
	Method       string   `json:"method"`
	Dependencies []string `json:"dependencies"`
	Combinator   string   `json:"combinator,omitempty"`
}

// RouterSignal is one @router-decorated method with the labels it can
// return, the conditions guarding them, and its upstream dependencies
// parsed from the decorator arguments.
type RouterSignal struct {
	Method       string                 `json:"method"`
	Labels       []string               `json:"labels,omitempty"`
	Conditions   []ConditionalStatement `json:"conditions,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
}

// CrewAISpecificSignals buckets methods by framework decorator.
type CrewAISpecificSignals struct {
	Starts         []string         `json:"starts,omitempty"`
	Listeners      []ListenerSignal `json:"listeners,omitempty"`
	Routers        []RouterSignal   `json:"routers,omitempty"`
	Persisters     []string         `json:"persisters,omitempty"`
	UsesCombinator bool             `json:"uses_combinator"`
	AsyncMethods   []string         `json:"async_methods,omitempty"`
	YAMLConfigRefs []string         `json:"yaml_config_refs,omitempty"`
}

// FlowSignals is the full signal record for one flow file. It is
// meaningless without its originating file path, so FilePath is embedded
// rather than carried side-by-side by every caller.
type FlowSignals struct {
	FilePath          string                `json:"file_path"`
	ClassName         string                `json:"class_name"`
	Class             ClassSignal           `json:"class"`
	Behavioral        BehavioralPatterns    `json:"behavioral"`
	External          ExternalInteractions  `json:"external"`
	State             StateManagement       `json:"state"`
	Routing           RoutingLogic          `json:"routing"`
	FrameworkSpecific CrewAISpecificSignals `json:"framework_specific"`
}

// Methods returns the method signals of the flow class.
func (f *FlowSignals) Methods() []MethodSignal {
	return f.Class.Methods
}

// MethodNames returns the method names of the flow class in declaration
// order.
func (f *FlowSignals) MethodNames() []string {
	names := make([]string, 0, len(f.Class.Methods))
	for _, m := range f.Class.Methods {
		names = append(names, m.Name)
	}
	return names
}
