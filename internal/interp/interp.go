// Package interp executes a Go subset in-process with a hard step budget.
//
// It is the restricted execution environment behind snippet analysis: a
// tree-walking evaluator over go/ast with no access to the filesystem,
// network, or OS — the only host capabilities a snippet can reach are the
// natives explicitly registered on the Interp (trace hooks and a curated
// fmt/sort/strings/math surface). Runs are bounded by a step limit and a
// context, so a snippet that loops forever terminates with ErrStepLimit
// instead of blocking its request.
package interp

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
)

// ErrStepLimit is returned when a run exhausts its step budget.
var ErrStepLimit = errors.New("interp: step limit exceeded")

// DefaultStepLimit bounds evaluation steps per run. One step is roughly one
// statement or loop iteration; instructional snippets use a tiny fraction.
const DefaultStepLimit = 1_000_000

// Env is a lexical scope chained to its parent.
type Env struct {
	vars   map[string]any
	parent *Env
}

func newEnv(parent *Env) *Env {
	return &Env{vars: map[string]any{}, parent: parent}
}

func (e *Env) lookup(name string) (any, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// assign updates the nearest scope defining name, declaring in the current
// scope when no definition exists.
func (e *Env) assign(name string, v any) {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}

func (e *Env) declare(name string, v any) { e.vars[name] = v }

// Interp is a single-use interpreter instance. Construct one per run;
// instances are not safe for concurrent use and hold no global state.
type Interp struct {
	globals   *Env
	funcs     map[string]*Function
	packages  map[string]map[string]any
	stdout    io.Writer
	stepLimit int
	steps     int
	ctx       context.Context
}

// Option configures an Interp.
type Option func(*Interp)

// WithStdout directs the curated fmt package's output to w.
func WithStdout(w io.Writer) Option {
	return func(i *Interp) { i.stdout = w }
}

// WithStepLimit overrides the default step budget. Non-positive values keep
// the default.
func WithStepLimit(n int) Option {
	return func(i *Interp) {
		if n > 0 {
			i.stepLimit = n
		}
	}
}

// New creates an interpreter with the curated package surface installed.
func New(opts ...Option) *Interp {
	in := &Interp{
		globals:   newEnv(nil),
		funcs:     map[string]*Function{},
		packages:  map[string]map[string]any{},
		stdout:    io.Discard,
		stepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.installPackages()
	return in
}

// RegisterNative exposes a host function to snippets under a bare name.
// Trace hooks are injected this way before running instrumented source.
func (i *Interp) RegisterNative(name string, fn NativeFunc) {
	i.globals.declare(name, &Function{Name: name, Native: fn})
}

// Run parses src as a single main-package file and executes it: top-level
// declarations first, then main() when one is declared. The context bounds
// execution together with the step budget.
func (i *Interp) Run(ctx context.Context, src string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, 0)
	if err != nil {
		return fmt.Errorf("interp: parse: %w", err)
	}
	if file.Name.Name != "main" {
		return errors.New("interp: snippet must be package main")
	}

	i.ctx = ctx
	i.steps = 0

	// Imports are accepted syntactically; only the curated packages resolve.
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.VAR && d.Tok != token.CONST {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for idx, name := range vs.Names {
					var val any
					if idx < len(vs.Values) {
						val, err = i.evalExpr(vs.Values[idx], i.globals)
						if err != nil {
							return err
						}
					} else {
						val = zeroValue(typeText(vs.Type))
					}
					if name.Name != "_" {
						i.globals.declare(name.Name, val)
					}
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil {
				return fmt.Errorf("interp: methods are not supported (func %s)", d.Name.Name)
			}
			fn := &Function{Name: d.Name.Name, Body: d.Body, Env: i.globals}
			if d.Type.Params != nil {
				for pi, field := range d.Type.Params.List {
					for _, n := range field.Names {
						fn.Params = append(fn.Params, n.Name)
					}
					if pi == len(d.Type.Params.List)-1 {
						if _, ok := field.Type.(*ast.Ellipsis); ok {
							fn.Variadic = true
						}
					}
				}
			}
			i.funcs[d.Name.Name] = fn
			i.globals.declare(d.Name.Name, fn)
		}
	}

	// A file without main is a declarations-only snippet: globals are
	// evaluated and functions installed, and execution ends there.
	mainFn, ok := i.funcs["main"]
	if !ok {
		return nil
	}
	_, err = i.call(mainFn, nil)
	return err
}

// step charges one unit against the budget and checks for cancellation.
func (i *Interp) step() error {
	i.steps++
	if i.steps > i.stepLimit {
		return ErrStepLimit
	}
	if i.steps%1024 == 0 && i.ctx != nil {
		if err := i.ctx.Err(); err != nil {
			return fmt.Errorf("interp: canceled: %w", err)
		}
	}
	return nil
}

// typeText renders a type expression to its source text form, enough to
// classify composite literals and zero values.
func typeText(e ast.Expr) string {
	switch t := e.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return t.Name
	case *ast.ArrayType:
		return "[]" + typeText(t.Elt)
	case *ast.MapType:
		return "map[" + typeText(t.Key) + "]" + typeText(t.Value)
	case *ast.InterfaceType:
		return "any"
	case *ast.SelectorExpr:
		return typeText(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeText(t.X)
	default:
		return fmt.Sprintf("%T", e)
	}
}
