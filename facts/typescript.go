package facts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	DefaultRegistry.Register("typescript",
		[]string{".ts", ".tsx", ".mts", ".cts"},
		func() Extractor { return &TSExtractor{} })
	DefaultRegistry.Register("javascript",
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		func() Extractor { return &TSExtractor{} })
}

// TSExtractor builds fact bundles from TypeScript and JavaScript source via
// tree-sitter.
type TSExtractor struct{}

// Extract parses one TS/JS file and collects its facts.
func (e *TSExtractor) Extract(ctx context.Context, path string, src []byte) (*Bundle, error) {
	p := sitter.NewParser()
	p.SetLanguage(tsLanguage(path))

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	text := string(src)
	total, code := countLines(text)
	bundle := &Bundle{
		Path:       path,
		Language:   tsLanguageName(path),
		Text:       text,
		TotalLines: total,
		CodeLines:  code,
	}

	walk(tree.RootNode(), src, bundle, walkState{})

	bundle.HasTestCompanion = e.testCompanionExists(path)
	return bundle, nil
}

// walkState carries ancestry facts down the tree.
type walkState struct {
	// inTry is true inside a try_statement body.
	inTry bool

	// exported is true inside an export_statement.
	exported bool
}

func walk(node *sitter.Node, src []byte, bundle *Bundle, st walkState) {
	switch node.Type() {
	case "import_statement":
		if source := node.ChildByFieldName("source"); source != nil {
			bundle.Imports = append(bundle.Imports, trimQuotes(source.Content(src)))
		}

	case "export_statement":
		st.exported = true

	case "try_statement":
		if body := node.ChildByFieldName("body"); body != nil {
			inner := st
			inner.inTry = true
			walk(body, src, bundle, inner)
			// Handler and finalizer walk with the outer state below; skip
			// re-walking the body.
			for i := 0; i < int(node.ChildCount()); i++ {
				child := node.Child(i)
				if child.StartByte() != body.StartByte() || child.EndByte() != body.EndByte() {
					walk(child, src, bundle, st)
				}
			}
			return
		}

	case "class_declaration", "abstract_class_declaration":
		extractTSClass(node, src, bundle, st)

	case "interface_declaration":
		extractTSNamed(node, src, bundle, st, "interface")

	case "enum_declaration":
		extractTSNamed(node, src, bundle, st, "enum")

	case "type_alias_declaration":
		extractTSNamed(node, src, bundle, st, "type")

	case "function_declaration":
		extractTSNamed(node, src, bundle, st, "func")

	case "lexical_declaration", "variable_declaration":
		extractTSVariables(node, src, bundle, st)

	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			name := calleeName(fn, src)
			if name != "" {
				bundle.Calls = append(bundle.Calls, CallSite{
					Name: name,
					Line: int(node.StartPoint().Row) + 1,
				})
				if st.inTry {
					bundle.HandledCalls = append(bundle.HandledCalls, name)
				}
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), src, bundle, st)
	}
}

func extractTSClass(node *sitter.Node, src []byte, bundle *Bundle, st walkState) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	decl := Declaration{
		Name:     nameNode.Content(src),
		Kind:     "class",
		Line:     int(node.StartPoint().Row) + 1,
		Exported: st.exported,
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			switch clause.Type() {
			case "extends_clause":
				decl.Extends = append(decl.Extends, clauseTypes(clause, src)...)
			case "implements_clause":
				decl.Implements = append(decl.Implements, clauseTypes(clause, src)...)
			}
		}
	}

	addTSDeclaration(bundle, decl)
	countTSMethods(node, src, bundle)
}

func extractTSNamed(node *sitter.Node, src []byte, bundle *Bundle, st walkState, kind string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	decl := Declaration{
		Name:     nameNode.Content(src),
		Kind:     kind,
		Line:     int(node.StartPoint().Row) + 1,
		Exported: st.exported,
	}
	if kind == "interface" {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "extends_clause" || child.Type() == "extends_type_clause" {
				decl.Extends = append(decl.Extends, clauseTypes(child, src)...)
			}
		}
	}
	addTSDeclaration(bundle, decl)
}

func extractTSVariables(node *sitter.Node, src []byte, bundle *Bundle, st walkState) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		addTSDeclaration(bundle, Declaration{
			Name:     nameNode.Content(src),
			Kind:     "var",
			Line:     int(child.StartPoint().Row) + 1,
			Exported: st.exported,
		})
	}
}

// countTSMethods counts externally visible methods of a class body.
func countTSMethods(classNode *sitter.Node, src []byte, bundle *Bundle) {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "method_definition" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(src)
		if name == "constructor" || strings.HasPrefix(name, "#") {
			continue
		}
		if hasModifier(child, src, "private") || hasModifier(child, src, "protected") {
			continue
		}
		bundle.PublicMethods++
	}
}

func addTSDeclaration(bundle *Bundle, decl Declaration) {
	bundle.Declarations = append(bundle.Declarations, decl)
	if decl.Exported {
		bundle.Exports = append(bundle.Exports, decl.Name)
	}
}

// clauseTypes extracts the identifier names of an extends/implements clause.
func clauseTypes(clause *sitter.Node, src []byte) []string {
	var types []string
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier", "type_identifier":
			types = append(types, child.Content(src))
		case "generic_type":
			if name := child.ChildByFieldName("name"); name != nil {
				types = append(types, name.Content(src))
			}
		}
	}
	return types
}

// calleeName renders a call target: bare identifiers and member chains.
func calleeName(fn *sitter.Node, src []byte) string {
	switch fn.Type() {
	case "identifier":
		return fn.Content(src)
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return ""
		}
		if obj != nil && obj.Type() == "identifier" {
			return obj.Content(src) + "." + prop.Content(src)
		}
		return prop.Content(src)
	}
	return ""
}

func hasModifier(node *sitter.Node, src []byte, modifier string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "accessibility_modifier" && child.Content(src) == modifier {
			return true
		}
	}
	return false
}

func tsLanguage(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func tsLanguageName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return "typescript"
	default:
		return "javascript"
	}
}

// testCompanionExists checks the common TS/JS test naming conventions next
// to the file.
func (e *TSExtractor) testCompanionExists(path string) bool {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if strings.HasSuffix(base, ".test") || strings.HasSuffix(base, ".spec") {
		return true
	}
	dir := filepath.Dir(path)
	name := filepath.Base(base)
	return fileExists(
		base+".test"+ext,
		base+".spec"+ext,
		filepath.Join(dir, "__tests__", name+".test"+ext),
		filepath.Join(dir, "__tests__", name+".spec"+ext),
	)
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}
