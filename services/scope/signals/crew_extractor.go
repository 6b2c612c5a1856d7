// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package signals

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/AleutianAI/crewscope/services/scope/ast"
)

var (
	toolClassRe  = regexp.MustCompile(`\b(\w+Tool)\b`)
	exceptRe     = regexp.MustCompile(`^\s*except\s*([\w.,()\s]*):`)
	crewCallRe   = regexp.MustCompile(`\bCrew\s*\(`)
	kwListItemRe = regexp.MustCompile(`self\.(\w+)\(\)|["'](\w+)["']|\b([a-z_]\w*)\b`)
)

// ExtractCrewSignals extracts crew definitions and supporting records from
// a parsed non-flow source file.
//
// A file qualifies when it contains a @CrewBase-decorated class, a class
// whose name ends in "Crew", or a bare Crew(...) construction at module
// level. Files with none of these yield an empty CrewAST, never an error:
// "not a crew file" is a normal outcome.
func ExtractCrewSignals(ctx context.Context, result *ast.ParseResult, source []byte) (*CrewAST, error) {
	_, span := startExtractSpan(ctx, "crew", result.FilePath)
	defer span.End()
	started := time.Now()

	text := string(source)
	lines := strings.Split(text, "\n")

	out := &CrewAST{FilePath: result.FilePath}

	for _, imp := range result.Imports {
		out.Imports = append(out.Imports, ImportRecord{
			Path:  imp.Path,
			Names: imp.Names,
			Line:  imp.Line,
		})
	}

	for _, cls := range result.Classes() {
		extractCrewClass(out, cls, lines)
	}
	if len(out.CrewDefinitions) == 0 {
		// Module-level Crew(...) without a class wrapper.
		if loc := crewCallRe.FindStringIndex(text); loc != nil {
			line := 1 + strings.Count(text[:loc[0]], "\n")
			out.CrewDefinitions = append(out.CrewDefinitions, CrewDefinition{
				Name:   strings.TrimSuffix(baseName(result.FilePath), ".py"),
				Line:   line,
				Config: parseCrewConstruction(text[loc[0]:]),
			})
		}
	}

	collectToolUsage(out, lines)
	collectExternalCalls(out, lines)
	collectControlFlow(out, lines)
	collectErrorHandling(out, lines, text)

	recordExtract(ctx, "crew", time.Since(started), true)
	return out, nil
}

// extractCrewClass buckets a class's decorated methods and parses any
// Crew(...) construction inside a @crew method.
func extractCrewClass(out *CrewAST, cls *ast.Symbol, lines []string) {
	isCrewClass := strings.HasSuffix(cls.Name, "Crew")
	if cls.Metadata != nil {
		for _, dec := range cls.Metadata.Decorators {
			if dec == "CrewBase" {
				isCrewClass = true
			}
		}
	}

	for _, child := range cls.Children {
		if child.Kind != ast.SymbolKindMethod || child.Metadata == nil {
			continue
		}
		for _, dec := range child.Metadata.Decorators {
			switch dec {
			case "agent":
				out.AgentMethods = append(out.AgentMethods, child.Name)
			case "task":
				out.TaskMethods = append(out.TaskMethods, child.Name)
			case "crew":
				out.CrewMethods = append(out.CrewMethods, child.Name)
				span := strings.Join(sliceSpan(lines, child.StartLine, child.EndLine), "\n")
				if loc := crewCallRe.FindStringIndex(span); loc != nil {
					name := cls.Name
					if !isCrewClass {
						name = child.Name
					}
					out.CrewDefinitions = append(out.CrewDefinitions, CrewDefinition{
						Name:   name,
						Line:   child.StartLine,
						Config: parseCrewConstruction(span[loc[0]:]),
					})
				}
			}
		}
	}
}

// parseCrewConstruction parses the keyword arguments of a Crew(...) call
// starting at the "Crew(" token. The argument text is bounded by balanced
// parentheses so nested calls inside list values stay intact.
func parseCrewConstruction(text string) CrewConfiguration {
	cfg := CrewConfiguration{Process: ProcessUnknown}

	args := balancedArgs(text)
	if args == "" {
		return cfg
	}

	cfg.Agents = parseListArg(args, "agents")
	cfg.Tasks = parseListArg(args, "tasks")

	switch {
	case strings.Contains(args, "Process.sequential"):
		cfg.Process = ProcessSequential
	case strings.Contains(args, "Process.hierarchical"):
		cfg.Process = ProcessHierarchical
	}

	cfg.Memory = parseBoolArg(args, "memory")
	cfg.Cache = parseBoolArg(args, "cache")
	cfg.Verbose = parseBoolArg(args, "verbose")
	cfg.Planning = parseBoolArg(args, "planning")
	cfg.ManagerLLM = parseStringArg(args, "manager_llm")
	cfg.ManagerAgent = parseStringArg(args, "manager_agent")
	return cfg
}

// balancedArgs returns the text between the first "(" and its matching
// ")", or everything after the "(" when the call is unterminated.
func balancedArgs(text string) string {
	open := strings.Index(text, "(")
	if open < 0 {
		return ""
	}
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return text[open+1 : i]
			}
		}
	}
	return text[open+1:]
}

// parseListArg extracts member names from a keyword list argument such as
// `agents=[self.researcher(), self.writer()]` or `agents=self.agents`.
func parseListArg(args, key string) []string {
	idx := strings.Index(args, key+"=")
	if idx < 0 {
		return nil
	}
	rest := args[idx+len(key)+1:]

	var value string
	if strings.HasPrefix(rest, "[") {
		value = rest[1:]
		depth := 1
		for i := 1; i < len(rest); i++ {
			switch rest[i] {
			case '[', '(':
				depth++
			case ']', ')':
				depth--
			}
			if depth == 0 {
				value = rest[1:i]
				break
			}
		}
	} else {
		if end := strings.IndexAny(rest, ",\n)"); end >= 0 {
			value = rest[:end]
		} else {
			value = rest
		}
		// agents=self.agents refers to the auto-collected bucket, which
		// has no literal member list to extract.
		if strings.TrimSpace(value) == "self."+key {
			return nil
		}
	}

	var names []string
	seen := make(map[string]bool)
	for _, match := range kwListItemRe.FindAllStringSubmatch(value, -1) {
		name := match[1]
		if name == "" {
			name = match[2]
		}
		if name == "" {
			name = match[3]
		}
		if name == "" || name == "self" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func parseBoolArg(args, key string) *bool {
	idx := strings.Index(args, key+"=")
	if idx < 0 {
		return nil
	}
	rest := args[idx+len(key)+1:]
	v := true
	switch {
	case strings.HasPrefix(rest, "True"):
		return &v
	case strings.HasPrefix(rest, "False"):
		v = false
		return &v
	}
	return nil
}

func parseStringArg(args, key string) string {
	idx := strings.Index(args, key+"=")
	if idx < 0 {
		return ""
	}
	rest := args[idx+len(key)+1:]
	if match := stringLiteralRe.FindStringSubmatch(rest); match != nil && stringLiteralRe.FindStringIndex(rest)[0] == 0 {
		return match[1]
	}
	if end := strings.IndexAny(rest, ",\n)"); end >= 0 {
		return strings.TrimSpace(rest[:end])
	}
	return strings.TrimSpace(rest)
}

func collectToolUsage(out *CrewAST, lines []string) {
	seen := make(map[string]bool)
	for i, line := range lines {
		for _, match := range toolClassRe.FindAllStringSubmatch(line, -1) {
			if seen[match[1]] {
				continue
			}
			seen[match[1]] = true
			out.ToolUsage = append(out.ToolUsage, ToolUsage{Name: match[1], Line: i + 1})
		}
	}
}

func collectExternalCalls(out *CrewAST, lines []string) {
	for i, line := range lines {
		for _, kw := range apiKeywords {
			if strings.Contains(line, kw) {
				out.ExternalCalls = append(out.ExternalCalls, ExternalCall{
					Target: kw,
					Kind:   "api",
					Line:   i + 1,
				})
				break
			}
		}
		for _, kw := range databaseKeywords {
			if strings.Contains(line, kw) {
				out.ExternalCalls = append(out.ExternalCalls, ExternalCall{
					Target: kw,
					Kind:   "database",
					Line:   i + 1,
				})
				break
			}
		}
	}
}

func collectControlFlow(out *CrewAST, lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		var kind string
		switch {
		case strings.HasPrefix(trimmed, "if ") || strings.HasPrefix(trimmed, "elif "):
			kind = "conditional"
		case strings.HasPrefix(trimmed, "for "):
			kind = "loop"
		case strings.HasPrefix(trimmed, "while "):
			kind = "loop"
		default:
			continue
		}
		out.ControlFlow = append(out.ControlFlow, ControlFlowRecord{
			Kind: kind,
			Text: strings.TrimSuffix(trimmed, ":"),
			Line: i + 1,
		})
	}
}

func collectErrorHandling(out *CrewAST, lines []string, text string) {
	hasRetry := strings.Contains(text, "retry") || strings.Contains(text, "Retry")
	hasFallback := strings.Contains(text, "fallback") || strings.Contains(text, "Fallback")

	for i, line := range lines {
		match := exceptRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		var types []string
		raw := strings.Trim(strings.TrimSpace(match[1]), "()")
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			// "except Exception as e" keeps only the type name.
			if cut := strings.Index(part, " as "); cut >= 0 {
				part = part[:cut]
			}
			if part != "" {
				types = append(types, part)
			}
		}
		out.ErrorHandling = append(out.ErrorHandling, ErrorHandlingRecord{
			ExceptionTypes: types,
			HasRetry:       hasRetry,
			HasFallback:    hasFallback,
			Line:           i + 1,
		})
	}
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
