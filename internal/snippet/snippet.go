// Package snippet normalizes user-submitted source into a parseable
// main-package file. Submissions may be complete files, bare top-level
// declarations, or a plain statement list; the latter two are wrapped and
// the added line offset tracked so every downstream consumer (classifier,
// instrumenter, tracers) reports line numbers in the user's own coordinates.
package snippet

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Parsed is a normalized, parsed snippet.
type Parsed struct {
	File   *ast.File
	Fset   *token.FileSet
	Source string // normalized source text
	Offset int    // lines prepended before the user's first line
	// Wrapped reports that the user's statements were wrapped in a
	// synthetic func main.
	Wrapped bool
}

// Line converts a token position to a 1-based line in the user's snippet.
func (p *Parsed) Line(pos token.Pos) int {
	return p.Fset.Position(pos).Line - p.Offset
}

// Body returns the statement list holding the user's code: the synthetic
// main body for wrapped snippets, nil for complete files.
func (p *Parsed) Body() *ast.BlockStmt {
	if !p.Wrapped {
		return nil
	}
	for _, decl := range p.File.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Name.Name == "main" {
			return fd.Body
		}
	}
	return nil
}

const (
	declOffset = 2 // "package main" + blank line
	stmtOffset = 3 // package clause, blank line, "func main() {"
)

// Parse normalizes and parses src. Resolution order: complete file, bare
// top-level declarations, statement list. The error of the final attempt is
// returned when nothing parses.
func Parse(src string) (*Parsed, error) {
	if strings.HasPrefix(strings.TrimSpace(src), "package ") {
		return parseAs(src, 0, false)
	}

	decls := "package main\n\n" + src
	if p, err := parseAs(decls, declOffset, false); err == nil {
		return p, nil
	}

	wrapped := "package main\n\nfunc main() {\n" + src + "\n}\n"
	p, err := parseAs(wrapped, stmtOffset, true)
	if err != nil {
		return nil, fmt.Errorf("snippet: %w", err)
	}
	return p, nil
}

func parseAs(src string, offset int, wrapped bool) (*Parsed, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "snippet.go", src, 0)
	if err != nil {
		return nil, err
	}
	return &Parsed{File: file, Fset: fset, Source: src, Offset: offset, Wrapped: wrapped}, nil
}

// LineCount reports the number of physical lines in the user's snippet.
func LineCount(src string) int {
	if src == "" {
		return 0
	}
	return strings.Count(src, "\n") + 1
}
