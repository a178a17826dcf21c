package snippet

import (
	"go/ast"
	"strings"
	"testing"
)

func TestParseCompleteFile(t *testing.T) {
	src := "package main\n\nfunc main() {\n\tx := 1\n\t_ = x\n}\n"
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Wrapped {
		t.Error("complete file should not be wrapped")
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}
	if p.Body() != nil {
		t.Error("Body() should be nil for complete files")
	}
}

func TestParseBareDeclarations(t *testing.T) {
	src := "func double(n int) int {\n\treturn n * 2\n}\n"
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Wrapped {
		t.Error("declaration snippet should not be wrapped")
	}
	if p.Offset != 2 {
		t.Errorf("offset = %d, want 2", p.Offset)
	}

	fd, ok := p.File.Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("first decl is %T, want *ast.FuncDecl", p.File.Decls[0])
	}
	// Line numbers come back in the user's own coordinates.
	if got := p.Line(fd.Pos()); got != 1 {
		t.Errorf("func line = %d, want 1", got)
	}
	if got := p.Line(fd.Body.List[0].Pos()); got != 2 {
		t.Errorf("return line = %d, want 2", got)
	}
}

func TestParseStatementList(t *testing.T) {
	src := "x := 10\nfor i := 0; i < 3; i++ {\n\tx = x + i\n}"
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !p.Wrapped {
		t.Error("statement snippet should be wrapped")
	}
	if p.Offset != 3 {
		t.Errorf("offset = %d, want 3", p.Offset)
	}

	body := p.Body()
	if body == nil {
		t.Fatal("Body() is nil for wrapped snippet")
	}
	if len(body.List) != 2 {
		t.Fatalf("got %d statements, want 2", len(body.List))
	}
	if got := p.Line(body.List[0].Pos()); got != 1 {
		t.Errorf("first statement line = %d, want 1", got)
	}
	if got := p.Line(body.List[1].Pos()); got != 2 {
		t.Errorf("loop line = %d, want 2", got)
	}
}

func TestParseInvalidSource(t *testing.T) {
	_, err := Parse("for {")
	if err == nil {
		t.Fatal("expected error for unterminated loop")
	}
	if !strings.HasPrefix(err.Error(), "snippet: ") {
		t.Errorf("error %q does not carry package prefix", err)
	}
}

func TestLineCount(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"", 0},
		{"x := 1", 1},
		{"x := 1\n", 2},
		{"a\nb\nc", 3},
	}
	for _, tc := range cases {
		if got := LineCount(tc.src); got != tc.want {
			t.Errorf("LineCount(%q) = %d, want %d", tc.src, got, tc.want)
		}
	}
}
