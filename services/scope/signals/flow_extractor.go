// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package signals

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/crewscope/services/scope/ast"
)

// ErrNoFlowClass is returned when a file contains no class that looks like
// a flow. It is a normal outcome for batch discovery, not a failure.
var ErrNoFlowClass = errors.New("no flow class found in file")

var (
	returnLiteralRe = regexp.MustCompile(`return\s+["']([^"']+)["']`)
	ifConditionRe   = regexp.MustCompile(`^\s*(?:el)?if\s+(.+?):`)
	stateFieldRe    = regexp.MustCompile(`\bself\.state\.(\w+)|\bstate\.(\w+)`)
	crewNameRe      = regexp.MustCompile(`\b(\w+Crew)\b`)
	yamlRefRe       = regexp.MustCompile(`["']([\w./-]+\.ya?ml)["']`)
	stringLiteralRe = regexp.MustCompile(`["']([^"']+)["']`)
	identifierRe    = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	flowSubscriptRe = regexp.MustCompile(`^Flow\[(\w+)\]$`)
)

// ExtractFlowSignals locates the flow class in a parsed file and derives
// the full signal record for it.
//
// Description:
//
//	A class "is a flow" when a base class name contains "Flow", or the
//	class's own name contains "Flow" without containing "State" or
//	"Model". The first qualifying class in declaration order wins.
//	Signals that need expression detail (listen arguments, returned
//	string literals, state attribute chains) are recovered by pattern
//	matching over the raw source, scoped to the relevant method span.
//
// Inputs:
//   - ctx: Context for tracing. Extraction itself does not block.
//   - result: Parse result from ast.PythonParser.Parse.
//   - source: The raw file content the result was parsed from.
//
// Outputs:
//   - *FlowSignals: Signal record for the flow class.
//   - error: ErrNoFlowClass when no class qualifies. Callers treat this
//     as "file is not a flow", never as a pipeline failure.
//
// Thread Safety: Safe for concurrent use; no shared state.
func ExtractFlowSignals(ctx context.Context, result *ast.ParseResult, source []byte) (*FlowSignals, error) {
	_, span := startExtractSpan(ctx, "flow", result.FilePath)
	defer span.End()
	started := time.Now()

	text := string(source)
	lines := strings.Split(text, "\n")

	cls := findFlowClass(result)
	if cls == nil {
		recordExtract(ctx, "flow", time.Since(started), false)
		return nil, ErrNoFlowClass
	}

	classSig := buildClassSignal(cls)
	fw := classifyDecorators(classSig, lines)

	sig := &FlowSignals{
		FilePath:          result.FilePath,
		ClassName:         cls.Name,
		Class:             classSig,
		Behavioral:        detectBehavioral(text),
		External:          detectExternal(text),
		State:             detectState(result, cls, text),
		Routing:           buildRoutingLogic(cls, fw, lines),
		FrameworkSpecific: fw,
	}

	recordExtract(ctx, "flow", time.Since(started), true)
	return sig, nil
}

// findFlowClass returns the first class symbol that qualifies as a flow.
func findFlowClass(result *ast.ParseResult) *ast.Symbol {
	for _, cls := range result.Classes() {
		if cls.Metadata != nil {
			for _, base := range cls.Metadata.Bases {
				if strings.Contains(base, "Flow") {
					return cls
				}
			}
		}
		if strings.Contains(cls.Name, "Flow") &&
			!strings.Contains(cls.Name, "State") &&
			!strings.Contains(cls.Name, "Model") {
			return cls
		}
	}
	return nil
}

func buildClassSignal(cls *ast.Symbol) ClassSignal {
	sig := ClassSignal{
		Name: cls.Name,
		Line: cls.StartLine,
	}
	if cls.Metadata != nil {
		sig.Decorators = cls.Metadata.Decorators
		sig.Bases = cls.Metadata.Bases
	}
	for _, child := range cls.Children {
		if child.Kind != ast.SymbolKindMethod {
			continue
		}
		m := MethodSignal{
			Name:       child.Name,
			DocComment: child.DocComment,
			Line:       child.StartLine,
			EndLine:    child.EndLine,
		}
		if child.Metadata != nil {
			m.Decorators = child.Metadata.Decorators
			m.DecoratorCalls = child.Metadata.DecoratorCalls
			m.Parameters = child.Metadata.Parameters
			m.IsAsync = child.Metadata.IsAsync
		}
		sig.Methods = append(sig.Methods, m)
	}
	return sig
}

// classifyDecorators buckets each method into the framework decorator
// categories and parses listen arguments and router bodies.
func classifyDecorators(cls ClassSignal, lines []string) CrewAISpecificSignals {
	var fw CrewAISpecificSignals

	for _, m := range cls.Methods {
		if m.IsAsync {
			fw.AsyncMethods = append(fw.AsyncMethods, m.Name)
		}
		for i, dec := range m.Decorators {
			call := ""
			if i < len(m.DecoratorCalls) {
				call = m.DecoratorCalls[i]
			}
			switch dec {
			case "start":
				fw.Starts = append(fw.Starts, m.Name)
			case "listen":
				deps, combinator := parseListenArgs(call)
				if combinator != "" {
					fw.UsesCombinator = true
				}
				fw.Listeners = append(fw.Listeners, ListenerSignal{
					Method:       m.Name,
					Dependencies: deps,
					Combinator:   combinator,
				})
			case "router":
				span := methodSpan(lines, m)
				deps, _ := parseListenArgs(call)
				fw.Routers = append(fw.Routers, RouterSignal{
					Method:       m.Name,
					Labels:       collectReturnLabels(span),
					Conditions:   collectConditions(span, m.Line),
					Dependencies: deps,
				})
			case "persist":
				fw.Persisters = append(fw.Persisters, m.Name)
			}
		}
	}

	fw.YAMLConfigRefs = collectYAMLRefs(strings.Join(lines, "\n"))
	return fw
}

// parseListenArgs parses the argument list of a listen decorator call.
// Both string-literal labels and bare identifier references may appear in
// the same call and both are recorded. and_/or_ combinators contribute
// their inner arguments plus the combinator tag.
func parseListenArgs(call string) (deps []string, combinator string) {
	open := strings.Index(call, "(")
	end := strings.LastIndex(call, ")")
	if open < 0 || end <= open {
		return nil, ""
	}
	args := call[open+1 : end]

	for _, comb := range []string{"and_", "or_"} {
		if strings.Contains(args, comb+"(") {
			combinator = comb
			inner := args[strings.Index(args, comb+"(")+len(comb)+1:]
			if end := strings.LastIndex(inner, ")"); end >= 0 {
				inner = inner[:end]
			}
			args = inner
			break
		}
	}

	seen := make(map[string]bool)
	add := func(dep string) {
		if dep != "" && !seen[dep] {
			seen[dep] = true
			deps = append(deps, dep)
		}
	}

	for _, lit := range stringLiteralRe.FindAllStringSubmatch(args, -1) {
		add(lit[1])
	}
	stripped := stringLiteralRe.ReplaceAllString(args, "")
	for _, part := range strings.Split(stripped, ",") {
		part = strings.TrimSpace(part)
		// Strip trailing call syntax from forms like "method_name()".
		part = strings.TrimSuffix(part, "()")
		if identifierRe.MatchString(part) {
			add(part)
		}
	}
	return deps, combinator
}

// methodSpan slices the source lines covering one method, decorators
// included. Lines are 1-based in the signal model.
func methodSpan(lines []string, m MethodSignal) []string {
	if m.EndLine >= m.Line {
		return sliceSpan(lines, m.Line, m.EndLine)
	}

	start := m.Line - 1
	if start < 0 || start >= len(lines) {
		return nil
	}
	// For a decorated method the span starts at the decorator, which sits
	// at the same indent as the def line. Measure the base indent from the
	// def itself so the walk does not stop there.
	head := start
	for head < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[head]), "@") {
		head++
	}
	if head >= len(lines) {
		return lines[start:]
	}
	// Walk forward until the indentation returns to the method's level or
	// above, skipping blank lines.
	base := indentOf(lines[head])
	end := head + 1
	for end < len(lines) {
		line := lines[end]
		if strings.TrimSpace(line) != "" && indentOf(line) <= base {
			break
		}
		end++
	}
	return lines[start:end]
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

// collectReturnLabels gathers every `return "<literal>"` inside a method
// span, deduplicated, in order of first appearance.
func collectReturnLabels(span []string) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, line := range span {
		for _, match := range returnLiteralRe.FindAllStringSubmatch(line, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				labels = append(labels, match[1])
			}
		}
	}
	return labels
}

// collectConditions gathers raw `if`/`elif` condition text with absolute
// line numbers. startLine is the 1-based line of the span's first entry.
func collectConditions(span []string, startLine int) []ConditionalStatement {
	var conds []ConditionalStatement
	for i, line := range span {
		if match := ifConditionRe.FindStringSubmatch(line); match != nil {
			conds = append(conds, ConditionalStatement{
				Condition: strings.TrimSpace(match[1]),
				Line:      startLine + i,
			})
		}
	}
	return conds
}

func collectYAMLRefs(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, match := range yamlRefRe.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			refs = append(refs, match[1])
		}
	}
	return refs
}

// detectBehavioral computes the coarse flag set by substring presence over
// the whole file text.
func detectBehavioral(text string) BehavioralPatterns {
	crewCount := 0
	for _, kw := range crewExecKeywords {
		crewCount += strings.Count(text, kw)
	}
	parallel := containsAny(text, parallelKeywords)

	return BehavioralPatterns{
		CollectsInput:           containsAny(text, inputKeywords),
		MakesLLMCalls:           containsAny(text, llmKeywords),
		HasFileIO:               containsAny(text, fileReadKeywords) || containsAny(text, fileWriteKeywords),
		HasConditionalLogic:     containsAny(text, conditionalKeywords),
		HasLoops:                containsAny(text, loopKeywords),
		ExecutesCrews:           crewCount > 0,
		CrewCount:               crewCount,
		CrewChaining:            crewCount > 1,
		ParallelCrews:           crewCount > 1 && parallel,
		HasHumanInLoop:          containsAny(text, humanLoopKeywords),
		HasExternalIntegrations: containsAny(text, apiKeywords) || containsAny(text, databaseKeywords),
		HasStateEvolution:       containsAny(text, stateEvolutionKeywords),
		HasParallelExecution:    parallel,
		HasInfiniteLoop:         containsAny(text, infiniteLoopKeywords),
	}
}

// detectExternal inventories external touch points from the file text.
func detectExternal(text string) ExternalInteractions {
	ext := ExternalInteractions{
		UsesDatabase: containsAny(text, databaseKeywords),
		ReadsFiles:   containsAny(text, fileReadKeywords),
		WritesFiles:  containsAny(text, fileWriteKeywords),
	}

	seen := make(map[string]bool)
	for _, match := range crewNameRe.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			ext.CrewReferences = append(ext.CrewReferences, match[1])
		}
	}

	for _, kw := range apiKeywords {
		if strings.Contains(text, kw) {
			ext.APIReferences = append(ext.APIReferences, kw)
		}
	}

	for marker, format := range fileFormatMarkers {
		if strings.Contains(text, marker) {
			ext.FileFormats = append(ext.FileFormats, format)
		}
	}
	sort.Strings(ext.FileFormats)
	ext.FileFormats = dedupeSorted(ext.FileFormats)

	svcSeen := make(map[string]bool)
	for _, sm := range serviceMarkers {
		if !strings.Contains(text, sm.Marker) || svcSeen[sm.Service] {
			continue
		}
		svcSeen[sm.Service] = true
		ext.Services = append(ext.Services, ExternalService{
			Name:       sm.Service,
			EnvVar:     sm.EnvVar,
			Operations: []string{sm.Marker},
		})
	}
	return ext
}

// detectState resolves the state model and referenced state fields.
// Structured state is a pydantic model: either the Flow[Model] subscript
// names it, or a BaseModel subclass is defined in the same file.
func detectState(result *ast.ParseResult, flowClass *ast.Symbol, text string) StateManagement {
	state := StateManagement{}

	if flowClass.Metadata != nil {
		for _, base := range flowClass.Metadata.Bases {
			if match := flowSubscriptRe.FindStringSubmatch(base); match != nil {
				state.Structured = true
				state.ModelName = match[1]
			}
		}
	}
	if !state.Structured {
		for _, cls := range result.Classes() {
			if cls.Metadata == nil {
				continue
			}
			for _, base := range cls.Metadata.Bases {
				if base == "BaseModel" {
					state.Structured = true
					state.ModelName = cls.Name
				}
			}
		}
	}

	seen := make(map[string]bool)
	for _, match := range stateFieldRe.FindAllStringSubmatch(text, -1) {
		field := match[1]
		if field == "" {
			field = match[2]
		}
		if field != "" && !seen[field] {
			seen[field] = true
			state.Fields = append(state.Fields, field)
		}
	}

	for _, kw := range stateEvolutionKeywords {
		if strings.Contains(text, kw) {
			state.Evolution = append(state.Evolution, kw)
		}
	}
	return state
}

// buildRoutingLogic aggregates routing raw material across the whole
// class: labels returned by any method, not just routers.
func buildRoutingLogic(cls *ast.Symbol, fw CrewAISpecificSignals, lines []string) RoutingLogic {
	logic := RoutingLogic{}
	for _, r := range fw.Routers {
		logic.RouterMethods = append(logic.RouterMethods, r.Method)
	}

	classSpan := sliceSpan(lines, cls.StartLine, cls.EndLine)
	logic.ReturnLabels = collectReturnLabels(classSpan)
	logic.Conditionals = collectConditions(classSpan, cls.StartLine)
	return logic
}

func sliceSpan(lines []string, startLine, endLine int) []string {
	start := startLine - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		end = start
	}
	return lines[start:end]
}

func dedupeSorted(values []string) []string {
	if len(values) < 2 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
