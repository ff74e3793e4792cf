package facts

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

func init() {
	DefaultRegistry.Register("go", []string{".go"}, func() Extractor {
		return &GoExtractor{}
	})
}

// GoExtractor builds fact bundles from Go source via the standard AST.
type GoExtractor struct {
	// importMap holds the current file's imports keyed by local name.
	importMap map[string]string
}

// Extract parses one Go file and collects its facts.
func (g *GoExtractor) Extract(_ context.Context, path string, src []byte) (*Bundle, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	text := string(src)
	total, code := countLines(text)
	bundle := &Bundle{
		Path:       path,
		Language:   "go",
		Text:       text,
		TotalLines: total,
		CodeLines:  code,
	}

	g.importMap = make(map[string]string)
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		bundle.Imports = append(bundle.Imports, importPath)

		localName := ""
		if imp.Name != nil && imp.Name.Name != "." && imp.Name.Name != "_" {
			localName = imp.Name.Name
		} else {
			parts := strings.Split(importPath, "/")
			localName = parts[len(parts)-1]
		}
		g.importMap[localName] = importPath
	}

	for _, decl := range file.Decls {
		g.extractDeclaration(fset, decl, bundle)
	}

	if !strings.HasSuffix(path, "_test.go") {
		base := strings.TrimSuffix(path, ".go")
		bundle.HasTestCompanion = fileExists(base + "_test.go")
	} else {
		bundle.HasTestCompanion = true
	}

	return bundle, nil
}

func (g *GoExtractor) extractDeclaration(fset *token.FileSet, decl ast.Decl, bundle *Bundle) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		g.extractFunc(fset, d, bundle)

	case *ast.GenDecl:
		for _, spec := range d.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				g.extractTypeSpec(fset, s, bundle)
			case *ast.ValueSpec:
				kind := "var"
				if d.Tok == token.CONST {
					kind = "const"
				}
				for _, name := range s.Names {
					g.addDeclaration(bundle, Declaration{
						Name:     name.Name,
						Kind:     kind,
						Line:     fset.Position(name.Pos()).Line,
						Exported: name.IsExported(),
					})
				}
			}
		}
	}
}

func (g *GoExtractor) extractFunc(fset *token.FileSet, fn *ast.FuncDecl, bundle *Bundle) {
	kind := "func"
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		kind = "method"
		if fn.Name.IsExported() {
			bundle.PublicMethods++
		}
	}
	g.addDeclaration(bundle, Declaration{
		Name:     fn.Name.Name,
		Kind:     kind,
		Line:     fset.Position(fn.Pos()).Line,
		Exported: fn.Name.IsExported(),
	})

	if fn.Body != nil {
		g.extractCalls(fset, fn.Body, bundle)
	}
}

func (g *GoExtractor) extractTypeSpec(fset *token.FileSet, ts *ast.TypeSpec, bundle *Bundle) {
	decl := Declaration{
		Name:     ts.Name.Name,
		Line:     fset.Position(ts.Pos()).Line,
		Exported: ts.Name.IsExported(),
	}

	switch t := ts.Type.(type) {
	case *ast.StructType:
		decl.Kind = "struct"
		// Embedded fields act as Go's extension mechanism.
		if t.Fields != nil {
			for _, field := range t.Fields.List {
				if len(field.Names) == 0 {
					if name := typeName(field.Type); name != "" {
						decl.Extends = append(decl.Extends, name)
					}
				}
			}
		}
	case *ast.InterfaceType:
		decl.Kind = "interface"
		if t.Methods != nil {
			for _, m := range t.Methods.List {
				if len(m.Names) == 0 {
					if name := typeName(m.Type); name != "" {
						decl.Extends = append(decl.Extends, name)
					}
				}
			}
		}
	default:
		decl.Kind = "type"
	}

	g.addDeclaration(bundle, decl)
}

// extractCalls walks a function body collecting call sites in source order,
// and marks a call handled when its error result feeds an err check in the
// following statement.
func (g *GoExtractor) extractCalls(fset *token.FileSet, body *ast.BlockStmt, bundle *Bundle) {
	handled := make(map[ast.Node]bool)

	ast.Inspect(body, func(n ast.Node) bool {
		block, ok := n.(*ast.BlockStmt)
		if !ok {
			return true
		}
		for i, stmt := range block.List {
			assign, ok := stmt.(*ast.AssignStmt)
			if !ok {
				continue
			}
			if i+1 >= len(block.List) || !isErrCheck(block.List[i+1]) {
				continue
			}
			for _, rhs := range assign.Rhs {
				if call, ok := rhs.(*ast.CallExpr); ok {
					handled[call] = true
				}
			}
		}
		return true
	})

	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := callName(call)
		if name == "" {
			return true
		}
		bundle.Calls = append(bundle.Calls, CallSite{
			Name: name,
			Line: fset.Position(call.Pos()).Line,
		})
		if handled[call] {
			bundle.HandledCalls = append(bundle.HandledCalls, name)
		}
		return true
	})
}

func (g *GoExtractor) addDeclaration(bundle *Bundle, decl Declaration) {
	bundle.Declarations = append(bundle.Declarations, decl)
	if decl.Exported {
		bundle.Exports = append(bundle.Exports, decl.Name)
	}
}

// isErrCheck recognizes `if err != nil { ... }`.
func isErrCheck(stmt ast.Stmt) bool {
	ifStmt, ok := stmt.(*ast.IfStmt)
	if !ok {
		return false
	}
	bin, ok := ifStmt.Cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}
	return isIdent(bin.X, "err") && isIdent(bin.Y, "nil") ||
		isIdent(bin.X, "nil") && isIdent(bin.Y, "err")
}

func isIdent(expr ast.Expr, name string) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == name
}

func callName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		if x, ok := fn.X.(*ast.Ident); ok {
			return x.Name + "." + fn.Sel.Name
		}
		return fn.Sel.Name
	}
	return ""
}

func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	case *ast.StarExpr:
		return typeName(t.X)
	}
	return ""
}
