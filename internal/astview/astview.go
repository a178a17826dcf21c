// Package astview serializes a snippet's syntax tree into a JSON-friendly
// node structure and an indented text rendering for display.
package astview

import (
	"fmt"
	"go/ast"
	"reflect"
	"strings"

	"github.com/ashita-ai/kaiseki/internal/snippet"
)

// Node is one syntax tree node. IDs are assigned in pre-order starting at 1
// and are unique within a single Build call. Field names the slot of the
// parent this node occupies (lowercased Go AST field name).
type Node struct {
	ID       int     `json:"id"`
	Type     string  `json:"type"`
	Depth    int     `json:"depth"`
	Field    string  `json:"field,omitempty"`
	Name     string  `json:"name,omitempty"`
	Func     string  `json:"func,omitempty"`
	Target   string  `json:"target,omitempty"`
	Value    string  `json:"value,omitempty"`
	Line     int     `json:"lineno,omitempty"`
	Children []*Node `json:"children"`
}

// Build parses src and serializes its tree. For snippets that were wrapped
// in a synthetic main during normalization, the wrapper declarations are
// elided so the tree starts at the user's statements.
func Build(src string) (*Node, error) {
	parsed, err := snippet.Parse(src)
	if err != nil {
		return nil, err
	}
	return BuildParsed(parsed), nil
}

// BuildParsed serializes an already-normalized snippet.
func BuildParsed(parsed *snippet.Parsed) *Node {
	b := &builder{parsed: parsed}
	if body := parsed.Body(); parsed.Wrapped && body != nil {
		b.nextID++
		root := &Node{ID: b.nextID, Type: "File", Children: []*Node{}}
		for _, stmt := range body.List {
			child := b.walk(stmt, 1)
			child.Field = "decls"
			root.Children = append(root.Children, child)
		}
		return root
	}
	return b.walk(parsed.File, 0)
}

// Lines is the display form: Build then Render, with parse failures
// degraded to a one-element error list rather than propagated.
func Lines(src string) []string {
	root, err := Build(src)
	if err != nil {
		return []string{fmt.Sprintf("AST parsing error: %v", err)}
	}
	return Render(root)
}

type builder struct {
	parsed *snippet.Parsed
	nextID int
}

func (b *builder) walk(n ast.Node, depth int) *Node {
	b.nextID++
	out := &Node{
		ID:       b.nextID,
		Type:     nodeType(n),
		Depth:    depth,
		Children: []*Node{},
	}
	if n.Pos().IsValid() {
		if line := b.parsed.Line(n.Pos()); line > 0 {
			out.Line = line
		}
	}
	annotate(out, n)

	// Children come from the node's struct fields in declaration order,
	// which matches the grammar's sub-expression order.
	v := reflect.ValueOf(n).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := fieldName(t.Field(i).Name)
		if field.Kind() == reflect.Slice {
			for j := 0; j < field.Len(); j++ {
				if child, ok := childNode(field.Index(j)); ok {
					c := b.walk(child, depth+1)
					c.Field = name
					out.Children = append(out.Children, c)
				}
			}
			continue
		}
		if child, ok := childNode(field); ok {
			c := b.walk(child, depth+1)
			c.Field = name
			out.Children = append(out.Children, c)
		}
	}
	return out
}

// childNode reports whether a struct field value is a non-nil AST node.
func childNode(v reflect.Value) (ast.Node, bool) {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, false
		}
	default:
		return nil, false
	}
	n, ok := v.Interface().(ast.Node)
	if !ok || n == nil {
		return nil, false
	}
	return n, true
}

func nodeType(n ast.Node) string {
	t := reflect.TypeOf(n)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func fieldName(goName string) string {
	return strings.ToLower(goName[:1]) + goName[1:]
}

func annotate(out *Node, n ast.Node) {
	switch n := n.(type) {
	case *ast.Ident:
		out.Name = n.Name
	case *ast.FuncDecl:
		out.Name = n.Name.Name
	case *ast.CallExpr:
		if id, ok := n.Fun.(*ast.Ident); ok {
			out.Func = id.Name
		}
	case *ast.AssignStmt:
		if len(n.Lhs) > 0 {
			if id, ok := n.Lhs[0].(*ast.Ident); ok {
				out.Target = id.Name
			}
		}
	case *ast.BasicLit:
		out.Value = n.Value
	}
}

// Render produces the indented display lines, two spaces per depth level.
func Render(root *Node) []string {
	var lines []string
	renderNode(root, 0, &lines)
	return lines
}

func renderNode(node *Node, indent int, lines *[]string) {
	line := strings.Repeat("  ", indent) + "└── " + node.Type
	switch {
	case node.Name != "":
		line += fmt.Sprintf(" (%s)", node.Name)
	case node.Func != "":
		line += fmt.Sprintf(" (call: %s)", node.Func)
	case node.Target != "":
		line += fmt.Sprintf(" (assign to: %s)", node.Target)
	case node.Value != "":
		line += fmt.Sprintf(" (value: %s)", node.Value)
	}
	if node.Line > 0 {
		line += fmt.Sprintf(" [line %d]", node.Line)
	}
	*lines = append(*lines, line)
	for _, child := range node.Children {
		renderNode(child, indent+1, lines)
	}
}
