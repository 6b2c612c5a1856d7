package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultParseTimeout bounds a single tree-sitter parse. Parsing a
// workflow file should take milliseconds; anything near this limit is
// treated as "no tree available" by callers.
const DefaultParseTimeout = 10 * time.Second

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewPythonParser(WithMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithParseTimeout sets the hard per-parse timeout.
//
// Parameters:
//   - d: Timeout duration. Must be positive.
func WithParseTimeout(d time.Duration) PythonParserOption {
	return func(p *PythonParser) {
		if d > 0 {
			p.parseTimeout = d
		}
	}
}

// PythonParser extracts workflow-relevant symbols from Python source.
//
// Description:
//
//	PythonParser uses tree-sitter to parse Python source files and extract
//	classes, methods, decorators (with full call text), fields and imports.
//	It is error-tolerant and returns partial results for syntactically
//	invalid code.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Each Parse call
//	creates its own tree-sitter parser instance internally.
//
// Example:
//
//	parser := NewPythonParser()
//	result, err := parser.Parse(ctx, content, "src/report/flow.py")
//	if err != nil {
//	    return err // caller treats this as "no signals for this file"
//	}
//	for _, cls := range result.Classes() {
//	    fmt.Println(cls.Name, cls.Metadata.Bases)
//	}
type PythonParser struct {
	maxFileSize  int64
	parseTimeout time.Duration
}

// NewPythonParser creates a new PythonParser with the given options.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize,
//     WithParseTimeout)
//
// Outputs:
//   - *PythonParser: Configured parser instance, never nil
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize:  DefaultMaxFileSize,
		parseTimeout: DefaultParseTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns the canonical language name for this parser.
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions this parser handles.
func (p *PythonParser) Extensions() []string {
	return []string{".py"}
}

// Parse extracts symbols from Python source code.
//
// Description:
//
//	Parse runs tree-sitter over the provided source and extracts all
//	classes (with base lists and decorators), methods (with full decorator
//	call text, parameter names, async flag, docstring, source span),
//	module-level functions, class fields and imports.
//
// Inputs:
//   - ctx: Context for cancellation. A hard parse timeout is layered on
//     top (see WithParseTimeout); tree-sitter parsing itself cannot be
//     interrupted mid-parse.
//   - content: Raw Python source bytes. Must be valid UTF-8.
//   - filePath: Path to the file relative to project root, forward
//     slashes. Used for ID generation and error reporting.
//
// Outputs:
//   - *ParseResult: Extracted symbols and metadata. Never nil on success.
//     May contain partial results with Errors set for invalid code.
//   - error: Non-nil for complete failures (ErrFileTooLarge,
//     ErrInvalidContent, context errors, parser failure). Callers in the
//     discovery pipeline treat any error as "no signals for this file",
//     never as a whole-scan failure.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large workflow file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, filePath)
	}

	// Compute hash before parsing (captures input)
	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	parseCtx, cancel := context.WithTimeout(ctx, p.parseTimeout)
	defer cancel()

	start := time.Now()

	// New tree-sitter parser instance per call for thread safety
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(parseCtx, nil, content)
	if err != nil {
		recordParse(ctx, filePath, time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	result := &ParseResult{
		FilePath:      filePath,
		Language:      "python",
		Hash:          hashStr,
		ParsedAtMilli: time.Now().UnixMilli(),
		Symbols:       make([]*Symbol, 0),
		Imports:       make([]Import, 0),
		Errors:        make([]string, 0),
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		result.Errors = append(result.Errors, "tree-sitter returned nil root node")
		recordParse(ctx, filePath, time.Since(start), false)
		return result, nil
	}

	if rootNode.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors")
	}

	lines := strings.Split(string(content), "\n")

	p.extractImports(rootNode, content, result)
	p.extractTopLevel(rootNode, content, lines, filePath, result)

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("result validation failed: %w", err)
	}

	recordParse(ctx, filePath, time.Since(start), true)
	return result, nil
}

// extractImports extracts import statements from the module level.
func (p *PythonParser) extractImports(root *sitter.Node, content []byte, result *ParseResult) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "import_statement":
			p.processImportStatement(child, content, result)
		case "import_from_statement":
			p.processImportFromStatement(child, content, result)
		}
	}
}

// processImportStatement handles 'import foo' or 'import foo as bar'.
func (p *PythonParser) processImportStatement(node *sitter.Node, content []byte, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			result.Imports = append(result.Imports, Import{
				Path: nodeText(child, content),
				Line: int(node.StartPoint().Row + 1),
			})
		case "aliased_import":
			var path, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				switch grandchild.Type() {
				case "dotted_name":
					path = nodeText(grandchild, content)
				case "identifier":
					alias = nodeText(grandchild, content)
				}
			}
			if path != "" {
				result.Imports = append(result.Imports, Import{
					Path:  path,
					Alias: alias,
					Line:  int(node.StartPoint().Row + 1),
				})
			}
		}
	}
}

// processImportFromStatement handles 'from x import y' style imports.
func (p *PythonParser) processImportFromStatement(node *sitter.Node, content []byte, result *ParseResult) {
	var modulePath string
	var names []string
	var isRelative bool
	var sawImport bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			isRelative = true
			modulePath = nodeText(child, content)
		case "dotted_name":
			if !sawImport {
				modulePath = nodeText(child, content)
			} else {
				names = append(names, nodeText(child, content))
			}
		case "aliased_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "dotted_name" || grandchild.Type() == "identifier" {
					names = append(names, nodeText(grandchild, content))
					break
				}
			}
		case "identifier":
			if sawImport {
				names = append(names, nodeText(child, content))
			}
		}
	}

	if modulePath == "" && isRelative {
		modulePath = "."
	}
	if modulePath != "" {
		result.Imports = append(result.Imports, Import{
			Path:       modulePath,
			Names:      names,
			IsRelative: isRelative,
			Line:       int(node.StartPoint().Row + 1),
		})
	}
}

// extractTopLevel extracts classes, functions and variables at module level.
func (p *PythonParser) extractTopLevel(root *sitter.Node, content []byte, lines []string, filePath string, result *ParseResult) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "class_definition":
			if cls := p.processClass(child, child, content, lines, filePath, nil); cls != nil {
				result.Symbols = append(result.Symbols, cls)
			}
		case "function_definition":
			if fn := p.processFunction(child, child, content, lines, filePath, nil, false); fn != nil {
				result.Symbols = append(result.Symbols, fn)
			}
		case "decorated_definition":
			decorators, calls := p.extractDecorators(child, content)
			for j := 0; j < int(child.ChildCount()); j++ {
				inner := child.Child(j)
				switch inner.Type() {
				case "class_definition":
					if cls := p.processClass(inner, child, content, lines, filePath, decoratorMeta(decorators, calls)); cls != nil {
						result.Symbols = append(result.Symbols, cls)
					}
				case "function_definition":
					if fn := p.processFunction(inner, child, content, lines, filePath, decoratorMeta(decorators, calls), false); fn != nil {
						result.Symbols = append(result.Symbols, fn)
					}
				}
			}
		case "expression_statement":
			if v := p.processModuleVariable(child, content, filePath); v != nil {
				result.Symbols = append(result.Symbols, v)
			}
		}
	}
}

// decoratorMeta builds a SymbolMetadata carrying decorator information.
// Returns nil when there are no decorators.
func decoratorMeta(decorators, calls []string) *SymbolMetadata {
	if len(decorators) == 0 {
		return nil
	}
	return &SymbolMetadata{
		Decorators:     decorators,
		DecoratorCalls: calls,
	}
}

// processClass extracts a class definition with its members.
//
// spanNode is the node whose source range defines the symbol span; for
// decorated classes it is the decorated_definition so the span includes
// the decorators.
func (p *PythonParser) processClass(node, spanNode *sitter.Node, content []byte, lines []string, filePath string, meta *SymbolMetadata) *Symbol {
	var name string
	var bases []string
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = nodeText(child, content)
		case "argument_list":
			// Base class expressions, verbatim: identifier, attribute
			// access (crewai.Flow) or subscript (Flow[ReportState]).
			for j := 0; j < int(child.ChildCount()); j++ {
				arg := child.Child(j)
				switch arg.Type() {
				case "identifier", "attribute", "subscript", "keyword_argument":
					bases = append(bases, nodeText(arg, content))
				}
			}
		case "block":
			bodyNode = child
		}
	}

	if name == "" {
		return nil
	}

	startLine := int(spanNode.StartPoint().Row + 1)
	endLine := int(spanNode.EndPoint().Row + 1)

	if meta == nil {
		meta = &SymbolMetadata{}
	}
	meta.Bases = bases

	sym := &Symbol{
		ID:        GenerateID(filePath, startLine, name),
		Name:      name,
		Kind:      SymbolKindClass,
		FilePath:  filePath,
		Exported:  pythonExported(name),
		Signature: firstLine(lines, int(node.StartPoint().Row+1)),
		StartLine: startLine,
		EndLine:   endLine,
		Metadata:  meta,
		Children:  make([]*Symbol, 0),
	}

	if bodyNode != nil {
		sym.DocComment = p.extractDocstring(bodyNode, content)
		p.extractClassMembers(bodyNode, content, lines, filePath, sym)
	}
	return sym
}

// extractClassMembers extracts methods and class fields from a class body.
func (p *PythonParser) extractClassMembers(body *sitter.Node, content []byte, lines []string, filePath string, classSym *Symbol) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition":
			if m := p.processFunction(child, child, content, lines, filePath, nil, true); m != nil {
				classSym.Children = append(classSym.Children, m)
			}
		case "decorated_definition":
			decorators, calls := p.extractDecorators(child, content)
			for j := 0; j < int(child.ChildCount()); j++ {
				inner := child.Child(j)
				if inner.Type() == "function_definition" {
					if m := p.processFunction(inner, child, content, lines, filePath, decoratorMeta(decorators, calls), true); m != nil {
						classSym.Children = append(classSym.Children, m)
					}
					break
				}
			}
		case "expression_statement":
			if f := p.processClassField(child, content, filePath); f != nil {
				classSym.Children = append(classSym.Children, f)
			}
		}
	}
}

// processClassField extracts a class-level attribute assignment.
func (p *PythonParser) processClassField(stmt *sitter.Node, content []byte, filePath string) *Symbol {
	if stmt.ChildCount() == 0 {
		return nil
	}
	assign := stmt.Child(0)
	if assign.Type() != "assignment" && assign.Type() != "augmented_assignment" {
		return nil
	}

	var name, typeStr string
	for i := 0; i < int(assign.ChildCount()); i++ {
		child := assign.Child(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = nodeText(child, content)
			}
		case "type":
			typeStr = nodeText(child, content)
		}
	}
	if name == "" {
		return nil
	}

	return &Symbol{
		ID:        GenerateID(filePath, int(assign.StartPoint().Row+1), name),
		Name:      name,
		Kind:      SymbolKindField,
		FilePath:  filePath,
		Exported:  pythonExported(name),
		Signature: typeStr,
		StartLine: int(assign.StartPoint().Row + 1),
		EndLine:   int(assign.EndPoint().Row + 1),
	}
}

// processFunction extracts a function or method definition.
//
// spanNode is the decorated_definition for decorated functions so the
// recorded source span includes the decorator lines; otherwise it is
// the function_definition itself.
func (p *PythonParser) processFunction(node, spanNode *sitter.Node, content []byte, lines []string, filePath string, meta *SymbolMetadata, isMethod bool) *Symbol {
	var name string
	var params []string
	var returnType string
	var docstring string
	var isAsync bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			isAsync = true
		case "identifier":
			name = nodeText(child, content)
		case "parameters":
			params = p.extractParameterNames(child, content)
		case "type":
			returnType = nodeText(child, content)
		case "block":
			docstring = p.extractDocstring(child, content)
		}
	}

	if name == "" {
		return nil
	}

	kind := SymbolKindFunction
	if isMethod {
		kind = SymbolKindMethod
	}

	if meta == nil {
		meta = &SymbolMetadata{}
	}
	meta.Parameters = params
	meta.ReturnType = returnType
	meta.IsAsync = isAsync

	startLine := int(spanNode.StartPoint().Row + 1)

	return &Symbol{
		ID:         GenerateID(filePath, startLine, name),
		Name:       name,
		Kind:       kind,
		FilePath:   filePath,
		Exported:   pythonExported(name),
		Signature:  firstLine(lines, int(node.StartPoint().Row+1)),
		DocComment: docstring,
		StartLine:  startLine,
		EndLine:    int(spanNode.EndPoint().Row + 1),
		Metadata:   meta,
	}
}

// extractParameterNames collects parameter names in declaration order.
func (p *PythonParser) extractParameterNames(paramsNode *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, nodeText(child, content))
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			// First identifier child is the parameter name
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "identifier" {
					names = append(names, nodeText(child.Child(j), content))
					break
				}
			}
		}
	}
	return names
}

// processModuleVariable extracts a module-level variable assignment.
func (p *PythonParser) processModuleVariable(stmt *sitter.Node, content []byte, filePath string) *Symbol {
	if stmt.ChildCount() == 0 {
		return nil
	}
	expr := stmt.Child(0)
	if expr.Type() != "assignment" {
		return nil
	}

	var name string
	for i := 0; i < int(expr.ChildCount()); i++ {
		child := expr.Child(i)
		if child.Type() == "identifier" {
			name = nodeText(child, content)
			break
		}
	}
	if name == "" {
		return nil
	}

	kind := SymbolKindVariable
	if isAllCaps(name) {
		kind = SymbolKindConstant
	}

	return &Symbol{
		ID:        GenerateID(filePath, int(expr.StartPoint().Row+1), name),
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		Exported:  pythonExported(name),
		StartLine: int(expr.StartPoint().Row + 1),
		EndLine:   int(expr.EndPoint().Row + 1),
	}
}

// extractDecorators extracts decorator names and full call text from a
// decorated_definition.
//
// Returns two parallel slices: base names with arguments stripped
// ("listen") and the verbatim decorator expressions ("listen(or_(a, b))").
// The full text matters because listener dependency lists and router
// labels live in the argument text.
func (p *PythonParser) extractDecorators(node *sitter.Node, content []byte) ([]string, []string) {
	var names []string
	var calls []string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			grandchild := child.Child(j)
			switch grandchild.Type() {
			case "identifier", "attribute":
				names = append(names, nodeText(grandchild, content))
				calls = append(calls, nodeText(grandchild, content))
			case "call":
				full := nodeText(grandchild, content)
				calls = append(calls, full)
				// Base name: text up to the first open paren
				base := full
				if idx := strings.Index(full, "("); idx > 0 {
					base = full[:idx]
				}
				names = append(names, base)
			}
		}
	}
	return names, calls
}

// extractDocstring extracts the docstring from a block node.
func (p *PythonParser) extractDocstring(block *sitter.Node, content []byte) string {
	if block.ChildCount() == 0 {
		return ""
	}
	first := block.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	strNode := first.Child(0)
	if strNode.Type() != "string" {
		return ""
	}
	return strings.Trim(nodeText(strNode, content), `"'`)
}

// nodeText returns the source text covered by a node.
func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// firstLine returns the trimmed source line at the given 1-indexed line
// number, or "" when out of range.
func firstLine(lines []string, lineno int) string {
	if lineno < 1 || lineno > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[lineno-1])
}

// pythonExported determines if a Python name is conventionally public.
//
// Dunder names (__init__) are public; name-mangled (__x) and single
// underscore (_x) names are not.
func pythonExported(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return true
	}
	return !strings.HasPrefix(name, "_")
}

// isAllCaps returns true if the name is all uppercase (underscores and
// digits allowed).
func isAllCaps(name string) bool {
	for _, r := range name {
		if r != '_' && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(name) > 0
}
