package interp

import (
	"fmt"
	"go/ast"
	"strconv"
)

// Runtime values are represented as:
//
//	int, float64, string, bool, nil — Go scalars
//	*Slice, *Map                    — dynamic containers
//	*Function                       — user-defined or native callable
//
// The representation is deliberately dynamic: snippets are untyped from the
// interpreter's point of view, and type errors surface as runtime errors.

// Slice is a dynamically typed slice value.
type Slice struct {
	Elem string
	Data []any
}

// Map is a dynamically typed map value. Entries preserve insertion order so
// range iteration and memory snapshots are deterministic across runs.
type Map struct {
	Key   string
	Elem  string
	order []string
	data  map[string]mapEntry
}

type mapEntry struct {
	key any
	val any
}

func newMap(key, elem string) *Map {
	return &Map{Key: key, Elem: elem, data: map[string]mapEntry{}}
}

func (m *Map) Len() int { return len(m.data) }

func (m *Map) Get(k any) (any, bool) {
	e, ok := m.data[mapHash(k)]
	if !ok {
		return nil, false
	}
	return e.val, true
}

func (m *Map) Set(k, v any) {
	h := mapHash(k)
	if _, ok := m.data[h]; !ok {
		m.order = append(m.order, h)
	}
	m.data[h] = mapEntry{key: k, val: v}
}

func (m *Map) Delete(k any) {
	h := mapHash(k)
	if _, ok := m.data[h]; !ok {
		return
	}
	delete(m.data, h)
	for i, o := range m.order {
		if o == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Each calls fn for every entry in insertion order.
func (m *Map) Each(fn func(k, v any) error) error {
	for _, h := range m.order {
		e := m.data[h]
		if err := fn(e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

func mapHash(k any) string {
	switch v := k.(type) {
	case int:
		return "i" + strconv.Itoa(v)
	case float64:
		return "f" + strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "s" + v
	case bool:
		if v {
			return "b1"
		}
		return "b0"
	default:
		return fmt.Sprintf("x%T%v", k, k)
	}
}

// Function is a callable: either a user-defined function with an AST body and
// a closure environment, or a host-provided native.
type Function struct {
	Name     string
	Params   []string
	Variadic bool
	Body     *ast.BlockStmt
	Env      *Env
	Native   NativeFunc
}

// NativeFunc is the signature for host functions injected into the
// interpreter's environment (trace hooks, curated package members).
type NativeFunc func(args []any) (any, error)

// TypeName reports the display type of a runtime value.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case int:
		return "int"
	case float64:
		return "float64"
	case string:
		return "string"
	case bool:
		return "bool"
	case *Slice:
		return "[]" + t.Elem
	case *Map:
		return "map[" + t.Key + "]" + t.Elem
	case *Function:
		return "func"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Truth reports the boolean interpretation of a condition value.
// Only bool values are truthy inputs; anything else is a type error, which
// the evaluator reports at the condition site.
func truth(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func equal(a, b any) bool {
	switch x := a.(type) {
	case int:
		switch y := b.(type) {
		case int:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int:
			return x == float64(y)
		}
		return false
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	default:
		return a == b
	}
}

func zeroValue(typ string) any {
	switch typ {
	case "int", "int64", "byte", "rune":
		return 0
	case "float64", "float32":
		return 0.0
	case "string":
		return ""
	case "bool":
		return false
	default:
		return nil
	}
}
