package astview

import (
	"strings"
	"testing"
)

func TestBuildWrappedSnippetElidesWrapper(t *testing.T) {
	root, err := Build("x := 1\nfmt.Println(x)")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if root.Type != "File" {
		t.Errorf("root type = %q, want File", root.Type)
	}
	if len(root.Children) != 2 {
		t.Fatalf("got %d children, want 2 user statements", len(root.Children))
	}
	// No synthetic main wrapper in the tree.
	for _, c := range root.Children {
		if c.Type == "FuncDecl" {
			t.Errorf("wrapper FuncDecl leaked into tree: %+v", c)
		}
		if c.Field != "decls" {
			t.Errorf("child field = %q, want decls", c.Field)
		}
	}

	assign := root.Children[0]
	if assign.Type != "AssignStmt" {
		t.Errorf("first child type = %q, want AssignStmt", assign.Type)
	}
	if assign.Target != "x" {
		t.Errorf("assign target = %q, want x", assign.Target)
	}
	if assign.Line != 1 {
		t.Errorf("assign line = %d, want 1", assign.Line)
	}
	if root.Children[1].Line != 2 {
		t.Errorf("second statement line = %d, want 2", root.Children[1].Line)
	}
}

func TestBuildAssignsUniquePreOrderIDs(t *testing.T) {
	root, err := Build("x := 1")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	seen := map[int]bool{}
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if n.ID <= 0 {
			t.Errorf("node %q has id %d", n.Type, n.ID)
		}
		if seen[n.ID] {
			t.Errorf("duplicate id %d", n.ID)
		}
		seen[n.ID] = true
		if n.Depth != depth {
			t.Errorf("node %q depth = %d, want %d", n.Type, n.Depth, depth)
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
	if root.ID != 1 {
		t.Errorf("root id = %d, want 1", root.ID)
	}
}

func TestBuildFullFileKeepsDeclarations(t *testing.T) {
	src := "package main\n\nfunc main() {\n\tfmt.Println(1)\n}\n"
	root, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var foundMain bool
	for _, c := range root.Children {
		if c.Type == "FuncDecl" && c.Name == "main" {
			foundMain = true
		}
	}
	if !foundMain {
		t.Error("complete file should keep its FuncDecl")
	}
}

func TestRenderAnnotations(t *testing.T) {
	lines := Lines("x := 42\nprintln(x)")
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		"└── File",
		"(assign to: x) [line 1]",
		"(value: 42)",
		"(call: println) [line 2]",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("rendered tree missing %q:\n%s", want, joined)
		}
	}

	// Indentation is two spaces per level.
	if !strings.HasPrefix(lines[1], "  └── ") {
		t.Errorf("second line not indented: %q", lines[1])
	}
}

func TestLinesParseFailure(t *testing.T) {
	lines := Lines("for {")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "AST parsing error: ") {
		t.Errorf("lines = %v", lines)
	}
}
