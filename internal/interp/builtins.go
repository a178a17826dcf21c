package interp

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"math"
	"sort"
	"strings"
)

func (i *Interp) evalCall(call *ast.CallExpr, env *Env) (any, error) {
	if id, ok := call.Fun.(*ast.Ident); ok {
		if handled, v, err := i.evalBuiltin(id.Name, call, env); handled {
			return v, err
		}
		// Type conversions for the scalar types.
		if conv, ok := conversions[id.Name]; ok {
			if _, shadowed := env.lookup(id.Name); !shadowed {
				args, err := i.evalArgs(call, env)
				if err != nil {
					return nil, err
				}
				if len(args) != 1 {
					return nil, fmt.Errorf("interp: %s conversion expects one argument", id.Name)
				}
				return conv(args[0])
			}
		}
	}

	callee, err := i.evalExpr(call.Fun, env)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*Function)
	if !ok {
		return nil, fmt.Errorf("interp: cannot call %s", TypeName(callee))
	}
	args, err := i.evalArgs(call, env)
	if err != nil {
		return nil, err
	}
	return i.call(fn, args)
}

func (i *Interp) evalArgs(call *ast.CallExpr, env *Env) ([]any, error) {
	args := make([]any, 0, len(call.Args))
	for idx, a := range call.Args {
		v, err := i.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		if call.Ellipsis.IsValid() && idx == len(call.Args)-1 {
			s, ok := v.(*Slice)
			if !ok {
				return nil, errors.New("interp: ... argument must be a slice")
			}
			args = append(args, s.Data...)
			continue
		}
		args = append(args, v)
	}
	return args, nil
}

// evalBuiltin handles the language builtins. Returns handled=false when the
// name is not a builtin (or is shadowed by a user definition).
func (i *Interp) evalBuiltin(name string, call *ast.CallExpr, env *Env) (bool, any, error) {
	switch name {
	case "len", "cap", "append", "copy", "delete", "make", "min", "max", "panic", "println", "print":
		if _, shadowed := env.lookup(name); shadowed {
			return false, nil, nil
		}
	default:
		return false, nil, nil
	}

	// make's first argument is a type expression, not a value.
	if name == "make" {
		if len(call.Args) == 0 {
			return true, nil, errors.New("interp: make requires a type")
		}
		typ := typeText(call.Args[0])
		switch {
		case strings.HasPrefix(typ, "[]"):
			length := 0
			if len(call.Args) > 1 {
				v, err := i.evalExpr(call.Args[1], env)
				if err != nil {
					return true, nil, err
				}
				n, ok := v.(int)
				if !ok || n < 0 {
					return true, nil, errors.New("interp: make length must be a non-negative int")
				}
				length = n
			}
			s := &Slice{Elem: typ[2:], Data: make([]any, length)}
			for idx := range s.Data {
				s.Data[idx] = zeroValue(s.Elem)
			}
			return true, s, nil
		case strings.HasPrefix(typ, "map["):
			key, elem := splitMapType(typ)
			return true, newMap(key, elem), nil
		default:
			return true, nil, fmt.Errorf("interp: cannot make %s", typ)
		}
	}

	args, err := i.evalArgs(call, env)
	if err != nil {
		return true, nil, err
	}

	switch name {
	case "len":
		if len(args) != 1 {
			return true, nil, errors.New("interp: len expects one argument")
		}
		switch v := args[0].(type) {
		case string:
			return true, len(v), nil
		case *Slice:
			return true, len(v.Data), nil
		case *Map:
			return true, v.Len(), nil
		case nil:
			return true, 0, nil
		default:
			return true, nil, fmt.Errorf("interp: len of %s", TypeName(args[0]))
		}
	case "cap":
		if len(args) != 1 {
			return true, nil, errors.New("interp: cap expects one argument")
		}
		if s, ok := args[0].(*Slice); ok {
			return true, cap(s.Data), nil
		}
		return true, nil, fmt.Errorf("interp: cap of %s", TypeName(args[0]))
	case "append":
		if len(args) == 0 {
			return true, nil, errors.New("interp: append expects a slice")
		}
		base, ok := args[0].(*Slice)
		if !ok {
			return true, nil, fmt.Errorf("interp: append to %s", TypeName(args[0]))
		}
		out := &Slice{Elem: base.Elem, Data: append(append([]any{}, base.Data...), args[1:]...)}
		return true, out, nil
	case "copy":
		if len(args) != 2 {
			return true, nil, errors.New("interp: copy expects two arguments")
		}
		dst, ok1 := args[0].(*Slice)
		src, ok2 := args[1].(*Slice)
		if !ok1 || !ok2 {
			return true, nil, errors.New("interp: copy expects slices")
		}
		n := copy(dst.Data, src.Data)
		return true, n, nil
	case "delete":
		if len(args) != 2 {
			return true, nil, errors.New("interp: delete expects a map and key")
		}
		m, ok := args[0].(*Map)
		if !ok {
			return true, nil, errors.New("interp: delete expects a map")
		}
		m.Delete(args[1])
		return true, nil, nil
	case "min", "max":
		if len(args) == 0 {
			return true, nil, fmt.Errorf("interp: %s expects arguments", name)
		}
		best := args[0]
		for _, a := range args[1:] {
			less, err := binaryOp(token.LSS, a, best)
			if err != nil {
				return true, nil, err
			}
			take := less.(bool)
			if name == "max" {
				take = !take
			}
			if take {
				best = a
			}
		}
		return true, best, nil
	case "panic":
		msg := "panic"
		if len(args) > 0 {
			msg = Display(args[0])
		}
		return true, nil, fmt.Errorf("interp: panic: %s", msg)
	case "println", "print":
		parts := make([]string, len(args))
		for idx, a := range args {
			parts[idx] = Display(a)
		}
		sep := " "
		out := strings.Join(parts, sep)
		if name == "println" {
			out += "\n"
		}
		_, _ = i.stdout.Write([]byte(out))
		return true, nil, nil
	}
	return false, nil, nil
}

var conversions = map[string]func(any) (any, error){
	"int": func(v any) (any, error) {
		switch n := v.(type) {
		case int:
			return n, nil
		case float64:
			return int(n), nil
		case bool:
			if n {
				return 1, nil
			}
			return 0, nil
		}
		return nil, fmt.Errorf("interp: cannot convert %s to int", TypeName(v))
	},
	"float64": func(v any) (any, error) {
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("interp: cannot convert %s to float64", TypeName(v))
		}
		return f, nil
	},
	"string": func(v any) (any, error) {
		if n, ok := v.(int); ok {
			return string(rune(n)), nil
		}
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("interp: cannot convert %s to string", TypeName(v))
	},
	"bool": func(v any) (any, error) {
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("interp: cannot convert %s to bool", TypeName(v))
	},
}

func (i *Interp) installPackages() {
	native := func(name string, fn NativeFunc) *Function {
		return &Function{Name: name, Native: fn}
	}

	i.packages["fmt"] = map[string]any{
		"Println": native("fmt.Println", func(args []any) (any, error) {
			parts := make([]string, len(args))
			for idx, a := range args {
				parts[idx] = Display(a)
			}
			_, _ = fmt.Fprintln(i.stdout, strings.Join(parts, " "))
			return nil, nil
		}),
		"Print": native("fmt.Print", func(args []any) (any, error) {
			for _, a := range args {
				_, _ = fmt.Fprint(i.stdout, Display(a))
			}
			return nil, nil
		}),
		"Printf": native("fmt.Printf", func(args []any) (any, error) {
			s, err := hostSprintf(args)
			if err != nil {
				return nil, err
			}
			_, _ = fmt.Fprint(i.stdout, s)
			return nil, nil
		}),
		"Sprintf": native("fmt.Sprintf", func(args []any) (any, error) {
			return hostSprintfAny(args)
		}),
		"Sprint": native("fmt.Sprint", func(args []any) (any, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(Display(a))
			}
			return b.String(), nil
		}),
	}

	i.packages["sort"] = map[string]any{
		"Ints": native("sort.Ints", func(args []any) (any, error) {
			s, err := sliceArg("sort.Ints", args)
			if err != nil {
				return nil, err
			}
			sort.SliceStable(s.Data, func(a, b int) bool {
				x, _ := asFloat(s.Data[a])
				y, _ := asFloat(s.Data[b])
				return x < y
			})
			return nil, nil
		}),
		"Float64s": native("sort.Float64s", func(args []any) (any, error) {
			s, err := sliceArg("sort.Float64s", args)
			if err != nil {
				return nil, err
			}
			sort.SliceStable(s.Data, func(a, b int) bool {
				x, _ := asFloat(s.Data[a])
				y, _ := asFloat(s.Data[b])
				return x < y
			})
			return nil, nil
		}),
		"Strings": native("sort.Strings", func(args []any) (any, error) {
			s, err := sliceArg("sort.Strings", args)
			if err != nil {
				return nil, err
			}
			sort.SliceStable(s.Data, func(a, b int) bool {
				x, _ := s.Data[a].(string)
				y, _ := s.Data[b].(string)
				return x < y
			})
			return nil, nil
		}),
	}

	i.packages["strings"] = map[string]any{
		"ToUpper":   stringFunc("strings.ToUpper", strings.ToUpper),
		"ToLower":   stringFunc("strings.ToLower", strings.ToLower),
		"TrimSpace": stringFunc("strings.TrimSpace", strings.TrimSpace),
		"Contains": native("strings.Contains", func(args []any) (any, error) {
			a, b, err := twoStrings("strings.Contains", args)
			if err != nil {
				return nil, err
			}
			return strings.Contains(a, b), nil
		}),
		"Repeat": native("strings.Repeat", func(args []any) (any, error) {
			if len(args) != 2 {
				return nil, errors.New("interp: strings.Repeat expects two arguments")
			}
			s, ok1 := args[0].(string)
			n, ok2 := args[1].(int)
			if !ok1 || !ok2 || n < 0 || n > 1<<20 {
				return nil, errors.New("interp: bad strings.Repeat arguments")
			}
			return strings.Repeat(s, n), nil
		}),
		"Split": native("strings.Split", func(args []any) (any, error) {
			a, b, err := twoStrings("strings.Split", args)
			if err != nil {
				return nil, err
			}
			out := &Slice{Elem: "string"}
			for _, part := range strings.Split(a, b) {
				out.Data = append(out.Data, part)
			}
			return out, nil
		}),
		"Join": native("strings.Join", func(args []any) (any, error) {
			if len(args) != 2 {
				return nil, errors.New("interp: strings.Join expects two arguments")
			}
			s, ok1 := args[0].(*Slice)
			sep, ok2 := args[1].(string)
			if !ok1 || !ok2 {
				return nil, errors.New("interp: bad strings.Join arguments")
			}
			parts := make([]string, len(s.Data))
			for idx, e := range s.Data {
				str, ok := e.(string)
				if !ok {
					return nil, errors.New("interp: strings.Join requires a string slice")
				}
				parts[idx] = str
			}
			return strings.Join(parts, sep), nil
		}),
	}

	i.packages["math"] = map[string]any{
		"Pi":    math.Pi,
		"Abs":   floatFunc("math.Abs", math.Abs),
		"Sqrt":  floatFunc("math.Sqrt", math.Sqrt),
		"Floor": floatFunc("math.Floor", math.Floor),
		"Ceil":  floatFunc("math.Ceil", math.Ceil),
		"Pow": native("math.Pow", func(args []any) (any, error) {
			if len(args) != 2 {
				return nil, errors.New("interp: math.Pow expects two arguments")
			}
			x, ok1 := asFloat(args[0])
			y, ok2 := asFloat(args[1])
			if !ok1 || !ok2 {
				return nil, errors.New("interp: math.Pow expects numbers")
			}
			return math.Pow(x, y), nil
		}),
		"MaxInt": math.MaxInt64,
		"MinInt": math.MinInt64,
	}
}

func stringFunc(name string, fn func(string) string) *Function {
	return &Function{Name: name, Native: func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("interp: %s expects one argument", name)
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("interp: %s expects a string", name)
		}
		return fn(s), nil
	}}
}

func floatFunc(name string, fn func(float64) float64) *Function {
	return &Function{Name: name, Native: func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("interp: %s expects one argument", name)
		}
		f, ok := asFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("interp: %s expects a number", name)
		}
		return fn(f), nil
	}}
}

func sliceArg(name string, args []any) (*Slice, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("interp: %s expects one argument", name)
	}
	s, ok := args[0].(*Slice)
	if !ok {
		return nil, fmt.Errorf("interp: %s expects a slice", name)
	}
	return s, nil
}

func twoStrings(name string, args []any) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("interp: %s expects two arguments", name)
	}
	a, ok1 := args[0].(string)
	b, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return "", "", fmt.Errorf("interp: %s expects strings", name)
	}
	return a, b, nil
}

// hostSprintf formats with the host fmt verbs over display-converted values.
func hostSprintf(args []any) (string, error) {
	s, err := hostSprintfAny(args)
	if err != nil {
		return "", err
	}
	return s, nil
}

func hostSprintfAny(args []any) (string, error) {
	if len(args) == 0 {
		return "", errors.New("interp: Printf expects a format string")
	}
	format, ok := args[0].(string)
	if !ok {
		return "", errors.New("interp: Printf format must be a string")
	}
	rest := make([]any, len(args)-1)
	for idx, a := range args[1:] {
		switch a.(type) {
		case int, float64, string, bool, nil:
			rest[idx] = a
		default:
			rest[idx] = Display(a)
		}
	}
	return fmt.Sprintf(format, rest...), nil
}
