// Package instrument rewrites a snippet's syntax tree to call tracing hooks
// at runtime. A line hook is inserted before every statement and a variable
// hook after every statement that assigns, so hooks observe post-assignment
// values. The transform works on the tree, not the text: multi-line
// statements, nested blocks, and comments never confuse it.
package instrument

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"strconv"
	"strings"

	"github.com/ashita-ai/kaiseki/internal/snippet"
)

// Hook names the instrumented code calls. The interpreter's host registers
// natives under these names before running instrumented output.
const (
	LineHook     = "__traceLine"
	VarHook      = "__traceVar"
	SnapshotHook = "__memSnapshot"
	RecordHook   = "__memRecord"
)

// Trace instruments src for execution tracing: LineHook before each
// statement, VarHook after each assigning statement.
func Trace(src string) (string, error) {
	return apply(src, LineHook, VarHook, false)
}

// Memory instruments src for memory tracking: SnapshotHook before each
// statement, RecordHook after each assigning statement, and one trailing
// SnapshotHook past the last line capturing the final state.
func Memory(src string) (string, error) {
	return apply(src, SnapshotHook, RecordHook, true)
}

func apply(src, lineHook, varHook string, endSnapshot bool) (string, error) {
	parsed, err := snippet.Parse(src)
	if err != nil {
		return "", err
	}

	// Empty or comment-only input has no tree to rewrite. The normalized
	// text goes back as-is so comments survive the transform, with a
	// synthetic entry point carrying the trailing snapshot when the memory
	// variant needs one.
	if len(parsed.File.Decls) == 0 {
		out := parsed.Source
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		if endSnapshot {
			end := snippet.LineCount(src) + 1
			out += fmt.Sprintf("\nfunc main() {\n\t%s(%d)\n}\n", lineHook, end)
		}
		return out, nil
	}

	in := &inserter{parsed: parsed, lineHook: lineHook, varHook: varHook}
	for _, decl := range parsed.File.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Body != nil {
			in.block(fd.Body)
		}
	}

	if endSnapshot {
		end := snippet.LineCount(src) + 1
		body := mainBody(parsed)
		if body == nil {
			// Declarations-only snippet: synthesize a main that records the
			// final state and nothing else.
			body = &ast.BlockStmt{}
			parsed.File.Decls = append(parsed.File.Decls, &ast.FuncDecl{
				Name: ast.NewIdent("main"),
				Type: &ast.FuncType{Params: &ast.FieldList{}},
				Body: body,
			})
		}
		body.List = append(body.List, callStmt(lineHook, intLit(end)))
	}

	var buf bytes.Buffer
	if err := printer.Fprint(&buf, parsed.Fset, parsed.File); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// mainBody is where the trailing snapshot goes: the entry point's block.
func mainBody(parsed *snippet.Parsed) *ast.BlockStmt {
	if parsed.Wrapped {
		return parsed.Body()
	}
	for _, decl := range parsed.File.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Name.Name == "main" {
			return fd.Body
		}
	}
	return nil
}

type inserter struct {
	parsed   *snippet.Parsed
	lineHook string
	varHook  string
}

func (in *inserter) block(b *ast.BlockStmt) {
	b.List = in.list(b.List)
}

func (in *inserter) list(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts)*2)
	for _, s := range stmts {
		in.nested(s)
		if line := in.parsed.Line(s.Pos()); line >= 1 {
			out = append(out, callStmt(in.lineHook, intLit(line)))
		}
		out = append(out, s)
		for _, name := range assignedNames(s) {
			out = append(out, callStmt(in.varHook, strLit(name), ast.NewIdent(name)))
		}
	}
	return out
}

// nested descends into a statement's sub-blocks before the statement itself
// is wrapped, so inserted hooks are never re-instrumented.
func (in *inserter) nested(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		in.block(s)
	case *ast.IfStmt:
		in.block(s.Body)
		if s.Else != nil {
			in.nested(s.Else)
		}
	case *ast.ForStmt:
		in.block(s.Body)
	case *ast.RangeStmt:
		in.block(s.Body)
	case *ast.SwitchStmt:
		for _, clause := range s.Body.List {
			if cc, ok := clause.(*ast.CaseClause); ok {
				cc.Body = in.list(cc.Body)
			}
		}
	case *ast.LabeledStmt:
		in.nested(s.Stmt)
	}
}

// assignedNames lists plain identifiers a statement writes to, in source
// order. Blank identifiers and indexed or field targets are skipped.
func assignedNames(s ast.Stmt) []string {
	var names []string
	add := func(expr ast.Expr) {
		if id, ok := expr.(*ast.Ident); ok && id.Name != "_" {
			names = append(names, id.Name)
		}
	}
	switch s := s.(type) {
	case *ast.AssignStmt:
		for _, lhs := range s.Lhs {
			add(lhs)
		}
	case *ast.IncDecStmt:
		add(s.X)
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
			break
		}
		for _, spec := range gd.Specs {
			if vs, ok := spec.(*ast.ValueSpec); ok {
				for _, id := range vs.Names {
					if id.Name != "_" {
						names = append(names, id.Name)
					}
				}
			}
		}
	}
	return names
}

func callStmt(name string, args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{Fun: ast.NewIdent(name), Args: args}}
}

func intLit(n int) ast.Expr {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

func strLit(s string) ast.Expr {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}
