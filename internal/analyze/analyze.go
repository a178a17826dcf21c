// Package analyze derives coarse time/space complexity estimates from a
// snippet's syntax tree. The labels are heuristic teaching aids, not proven
// bounds: a single walk counts loop nesting, calls to user-defined function
// names, sort calls, and composite literals, and maps the counts onto a
// fixed set of big-O strings.
package analyze

import (
	"fmt"
	"go/ast"
	"sort"

	"github.com/ashita-ai/kaiseki/internal/snippet"
)

// Report is the classifier's result for one snippet. Immutable once
// produced; one per analysis request.
type Report struct {
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// sortNames are callee base names treated as an O(n log n) sort. Selector
// callees match on the attribute name, so sort.Ints and slices.Sort both hit.
var sortNames = map[string]bool{
	"Sort":           true,
	"SortFunc":       true,
	"SortStableFunc": true,
	"Slice":          true,
	"SliceStable":    true,
	"Ints":           true,
	"Strings":        true,
	"Float64s":       true,
	"Sorted":         true,
	"sort":           true,
	"sorted":         true,
}

// Source parses and classifies a snippet. Parse failures degrade to an
// "Unknown" report carrying the error; they are never propagated.
func Source(src string) Report {
	parsed, err := snippet.Parse(src)
	if err != nil {
		return Report{
			TimeComplexity:  "Unknown",
			SpaceComplexity: "Unknown",
			Issues:          []string{fmt.Sprintf("Analysis error: %v", err)},
			Recommendations: []string{"Check syntax errors"},
		}
	}
	return File(parsed.File)
}

// File classifies an already-parsed file.
func File(file *ast.File) Report {
	report := Report{
		TimeComplexity:  "O(1)",
		SpaceComplexity: "O(1)",
		Issues:          []string{},
		Recommendations: []string{},
	}

	funcNames := map[string]bool{}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Recv == nil {
			funcNames[fd.Name.Name] = true
		}
	}

	var (
		maxLoopDepth   int
		recursiveCalls int
		literalCount   int
		calleeCounts   = map[string]int{}
	)

	// Single traversal. Inspect reports subtree exit with a nil node, so a
	// node stack recovers true syntactic loop nesting depth.
	var (
		stack     []ast.Node
		loopDepth int
	)
	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if isLoop(top) {
				loopDepth--
			}
			return false
		}
		stack = append(stack, n)
		switch node := n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			loopDepth++
			if loopDepth > maxLoopDepth {
				maxLoopDepth = loopDepth
			}
		case *ast.CallExpr:
			if name := calleeName(node); name != "" {
				calleeCounts[name]++
			}
			// Recursion matches bare identifiers only. A selector call like
			// sort.Ints names a different function even when a user function
			// shares the attribute name.
			if ident, ok := node.Fun.(*ast.Ident); ok && funcNames[ident.Name] {
				recursiveCalls++
			}
		case *ast.CompositeLit:
			if node.Type != nil {
				literalCount++
			}
		}
		return true
	})

	switch {
	case recursiveCalls > 0:
		report.TimeComplexity = "O(2^n)"
		report.Issues = append(report.Issues,
			"Recursive calls may lead to exponential time complexity")
		report.Recommendations = append(report.Recommendations,
			"Consider using iterative approaches or memoization")
	case maxLoopDepth > 1:
		report.TimeComplexity = fmt.Sprintf("O(n^%d)", maxLoopDepth)
		report.Issues = append(report.Issues,
			fmt.Sprintf("Nested loops (depth %d) can lead to polynomial time complexity", maxLoopDepth))
		report.Recommendations = append(report.Recommendations,
			"Consider optimizing with more efficient algorithms")
	case maxLoopDepth == 1:
		report.TimeComplexity = "O(n)"
	}

	// One adjustment per distinct sorting callee, in deterministic order.
	// The label is informational text, deliberately concatenated rather
	// than algebraically composed.
	var sorted []string
	for name := range calleeCounts {
		if sortNames[name] {
			sorted = append(sorted, name)
		}
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		if report.TimeComplexity == "O(1)" {
			report.TimeComplexity = "O(n log n)"
		} else {
			report.TimeComplexity += " + O(n log n)"
		}
		report.Issues = append(report.Issues,
			fmt.Sprintf("Using %s adds O(n log n) time complexity", name))
	}

	if literalCount > 3 {
		report.SpaceComplexity = "O(n)"
		report.Issues = append(report.Issues,
			"Multiple data structures may increase space complexity")
		report.Recommendations = append(report.Recommendations,
			"Consider reusing data structures or streaming data")
	} else if literalCount > 0 {
		report.SpaceComplexity = "O(n)"
	}

	return report
}

func isLoop(n ast.Node) bool {
	switch n.(type) {
	case *ast.ForStmt, *ast.RangeStmt:
		return true
	}
	return false
}

// calleeName extracts the matchable name of a call target: the identifier
// itself for bare calls, the attribute name for selector calls. Anything
// else (call results, indexed values) has no name.
func calleeName(call *ast.CallExpr) string {
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		return fun.Name
	case *ast.SelectorExpr:
		return fun.Sel.Name
	default:
		return ""
	}
}
