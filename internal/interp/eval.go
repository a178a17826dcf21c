package interp

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
)

type signalKind int

const (
	sigNone signalKind = iota
	sigReturn
	sigBreak
	sigContinue
)

type signal struct {
	kind signalKind
	val  any
}

func (i *Interp) evalStmt(s ast.Stmt, env *Env) (signal, error) {
	if err := i.step(); err != nil {
		return signal{}, err
	}

	switch st := s.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(st.X, env)
		return signal{}, err

	case *ast.AssignStmt:
		return signal{}, i.evalAssign(st, env)

	case *ast.IncDecStmt:
		set, cur, err := i.resolveTarget(st.X, env)
		if err != nil {
			return signal{}, err
		}
		n, ok := cur.(int)
		if !ok {
			return signal{}, fmt.Errorf("interp: %s requires an int, got %s", st.Tok, TypeName(cur))
		}
		if st.Tok == token.INC {
			n++
		} else {
			n--
		}
		return signal{}, set(n)

	case *ast.DeclStmt:
		gd, ok := st.Decl.(*ast.GenDecl)
		if !ok || (gd.Tok != token.VAR && gd.Tok != token.CONST) {
			return signal{}, errors.New("interp: unsupported declaration")
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for idx, name := range vs.Names {
				var val any
				if idx < len(vs.Values) {
					v, err := i.evalExpr(vs.Values[idx], env)
					if err != nil {
						return signal{}, err
					}
					val = v
				} else {
					val = zeroValue(typeText(vs.Type))
				}
				if name.Name != "_" {
					env.declare(name.Name, val)
				}
			}
		}
		return signal{}, nil

	case *ast.BlockStmt:
		local := newEnv(env)
		for _, inner := range st.List {
			sig, err := i.evalStmt(inner, local)
			if err != nil {
				return signal{}, err
			}
			if sig.kind != sigNone {
				return sig, nil
			}
		}
		return signal{}, nil

	case *ast.IfStmt:
		local := newEnv(env)
		if st.Init != nil {
			if _, err := i.evalStmt(st.Init, local); err != nil {
				return signal{}, err
			}
		}
		cond, err := i.evalCond(st.Cond, local)
		if err != nil {
			return signal{}, err
		}
		if cond {
			return i.evalStmt(st.Body, local)
		}
		if st.Else != nil {
			return i.evalStmt(st.Else, local)
		}
		return signal{}, nil

	case *ast.ForStmt:
		local := newEnv(env)
		if st.Init != nil {
			if _, err := i.evalStmt(st.Init, local); err != nil {
				return signal{}, err
			}
		}
		for {
			if err := i.step(); err != nil {
				return signal{}, err
			}
			if st.Cond != nil {
				cond, err := i.evalCond(st.Cond, local)
				if err != nil {
					return signal{}, err
				}
				if !cond {
					break
				}
			}
			sig, err := i.evalStmt(st.Body, local)
			if err != nil {
				return signal{}, err
			}
			if sig.kind == sigBreak {
				break
			}
			if sig.kind == sigReturn {
				return sig, nil
			}
			if st.Post != nil {
				if _, err := i.evalStmt(st.Post, local); err != nil {
					return signal{}, err
				}
			}
		}
		return signal{}, nil

	case *ast.RangeStmt:
		return i.evalRange(st, env)

	case *ast.SwitchStmt:
		return i.evalSwitch(st, env)

	case *ast.ReturnStmt:
		if len(st.Results) == 0 {
			return signal{kind: sigReturn}, nil
		}
		if len(st.Results) > 1 {
			return signal{}, errors.New("interp: multiple return values are not supported")
		}
		v, err := i.evalExpr(st.Results[0], env)
		if err != nil {
			return signal{}, err
		}
		return signal{kind: sigReturn, val: v}, nil

	case *ast.BranchStmt:
		switch st.Tok {
		case token.BREAK:
			return signal{kind: sigBreak}, nil
		case token.CONTINUE:
			return signal{kind: sigContinue}, nil
		default:
			return signal{}, fmt.Errorf("interp: unsupported branch %s", st.Tok)
		}

	case *ast.EmptyStmt:
		return signal{}, nil

	default:
		return signal{}, fmt.Errorf("interp: unsupported statement %T", s)
	}
}

func (i *Interp) evalAssign(st *ast.AssignStmt, env *Env) error {
	if len(st.Lhs) != len(st.Rhs) && len(st.Rhs) != 1 {
		return errors.New("interp: assignment arity mismatch")
	}

	// v, ok := m[k] is the one supported multi-value form.
	if len(st.Lhs) == 2 && len(st.Rhs) == 1 {
		if ie, ok := st.Rhs[0].(*ast.IndexExpr); ok {
			cont, err := i.evalExpr(ie.X, env)
			if err != nil {
				return err
			}
			if m, ok := cont.(*Map); ok {
				key, err := i.evalExpr(ie.Index, env)
				if err != nil {
					return err
				}
				val, found := m.Get(key)
				if val == nil {
					val = zeroValue(m.Elem)
				}
				return i.bindPair(st, env, val, found)
			}
		}
	}

	vals := make([]any, len(st.Rhs))
	for idx, r := range st.Rhs {
		v, err := i.evalExpr(r, env)
		if err != nil {
			return err
		}
		vals[idx] = v
	}

	switch st.Tok {
	case token.DEFINE:
		for idx, l := range st.Lhs {
			id, ok := l.(*ast.Ident)
			if !ok {
				return errors.New("interp: := target must be an identifier")
			}
			if id.Name == "_" {
				continue
			}
			env.declare(id.Name, vals[idx])
		}
		return nil
	case token.ASSIGN:
		for idx, l := range st.Lhs {
			if id, ok := l.(*ast.Ident); ok && id.Name == "_" {
				continue
			}
			set, _, err := i.resolveTarget(l, env)
			if err != nil {
				return err
			}
			if err := set(vals[idx]); err != nil {
				return err
			}
		}
		return nil
	default:
		if len(st.Lhs) != 1 || len(vals) != 1 {
			return errors.New("interp: compound assignment expects single operands")
		}
		base, ok := compoundOp(st.Tok)
		if !ok {
			return fmt.Errorf("interp: unsupported assignment %s", st.Tok)
		}
		set, cur, err := i.resolveTarget(st.Lhs[0], env)
		if err != nil {
			return err
		}
		next, err := binaryOp(base, cur, vals[0])
		if err != nil {
			return err
		}
		return set(next)
	}
}

func (i *Interp) bindPair(st *ast.AssignStmt, env *Env, a, b any) error {
	for idx, l := range st.Lhs {
		id, ok := l.(*ast.Ident)
		if !ok {
			return errors.New("interp: two-value assignment target must be an identifier")
		}
		if id.Name == "_" {
			continue
		}
		v := a
		if idx == 1 {
			v = b
		}
		if st.Tok == token.DEFINE {
			env.declare(id.Name, v)
		} else {
			env.assign(id.Name, v)
		}
	}
	return nil
}

func compoundOp(tok token.Token) (token.Token, bool) {
	switch tok {
	case token.ADD_ASSIGN:
		return token.ADD, true
	case token.SUB_ASSIGN:
		return token.SUB, true
	case token.MUL_ASSIGN:
		return token.MUL, true
	case token.QUO_ASSIGN:
		return token.QUO, true
	case token.REM_ASSIGN:
		return token.REM, true
	default:
		return token.ILLEGAL, false
	}
}

// resolveTarget returns a setter and current value for an assignable
// expression: a variable, a slice element, or a map key.
func (i *Interp) resolveTarget(e ast.Expr, env *Env) (func(any) error, any, error) {
	switch t := e.(type) {
	case *ast.Ident:
		cur, _ := env.lookup(t.Name)
		name := t.Name
		return func(v any) error { env.assign(name, v); return nil }, cur, nil
	case *ast.IndexExpr:
		cont, err := i.evalExpr(t.X, env)
		if err != nil {
			return nil, nil, err
		}
		idx, err := i.evalExpr(t.Index, env)
		if err != nil {
			return nil, nil, err
		}
		switch c := cont.(type) {
		case *Slice:
			n, ok := idx.(int)
			if !ok || n < 0 || n >= len(c.Data) {
				return nil, nil, fmt.Errorf("interp: index out of range [%v] with length %d", idx, len(c.Data))
			}
			return func(v any) error { c.Data[n] = v; return nil }, c.Data[n], nil
		case *Map:
			cur, _ := c.Get(idx)
			return func(v any) error { c.Set(idx, v); return nil }, cur, nil
		default:
			return nil, nil, fmt.Errorf("interp: cannot index %s", TypeName(cont))
		}
	default:
		return nil, nil, errors.New("interp: invalid assignment target")
	}
}

func (i *Interp) evalRange(st *ast.RangeStmt, env *Env) (signal, error) {
	local := newEnv(env)
	subject, err := i.evalExpr(st.X, local)
	if err != nil {
		return signal{}, err
	}

	bind := func(k, v any) error {
		if st.Key != nil {
			if id, ok := st.Key.(*ast.Ident); ok && id.Name != "_" {
				if st.Tok == token.DEFINE {
					local.declare(id.Name, k)
				} else {
					local.assign(id.Name, k)
				}
			}
		}
		if st.Value != nil {
			if id, ok := st.Value.(*ast.Ident); ok && id.Name != "_" {
				if st.Tok == token.DEFINE {
					local.declare(id.Name, v)
				} else {
					local.assign(id.Name, v)
				}
			}
		}
		return nil
	}

	iterate := func(k, v any) (bool, error) {
		if err := i.step(); err != nil {
			return false, err
		}
		if err := bind(k, v); err != nil {
			return false, err
		}
		sig, err := i.evalStmt(st.Body, local)
		if err != nil {
			return false, err
		}
		switch sig.kind {
		case sigBreak:
			return false, nil
		case sigReturn:
			return false, &returnCarrier{sig: sig}
		}
		return true, nil
	}

	var loopErr error
	switch s := subject.(type) {
	case *Slice:
		for idx, el := range s.Data {
			cont, err := iterate(idx, el)
			if err != nil {
				loopErr = err
			}
			if err != nil || !cont {
				break
			}
		}
	case *Map:
		err := s.Each(func(k, v any) error {
			cont, err := iterate(k, v)
			if err != nil {
				return err
			}
			if !cont {
				return errRangeDone
			}
			return nil
		})
		if err != nil && !errors.Is(err, errRangeDone) {
			loopErr = err
		}
	case string:
		for idx, r := range s {
			cont, err := iterate(idx, int(r))
			if err != nil {
				loopErr = err
			}
			if err != nil || !cont {
				break
			}
		}
	case int:
		for n := 0; n < s; n++ {
			cont, err := iterate(n, nil)
			if err != nil {
				loopErr = err
			}
			if err != nil || !cont {
				break
			}
		}
	default:
		return signal{}, fmt.Errorf("interp: cannot range over %s", TypeName(subject))
	}

	if loopErr != nil {
		var rc *returnCarrier
		if errors.As(loopErr, &rc) {
			return rc.sig, nil
		}
		return signal{}, loopErr
	}
	return signal{}, nil
}

var errRangeDone = errors.New("range done")

// returnCarrier smuggles a return signal out of closure-driven iteration.
type returnCarrier struct{ sig signal }

func (r *returnCarrier) Error() string { return "return" }

func (i *Interp) evalSwitch(st *ast.SwitchStmt, env *Env) (signal, error) {
	local := newEnv(env)
	if st.Init != nil {
		if _, err := i.evalStmt(st.Init, local); err != nil {
			return signal{}, err
		}
	}
	var tag any
	hasTag := st.Tag != nil
	if hasTag {
		v, err := i.evalExpr(st.Tag, local)
		if err != nil {
			return signal{}, err
		}
		tag = v
	}

	var defaultClause *ast.CaseClause
	for _, raw := range st.Body.List {
		clause := raw.(*ast.CaseClause)
		if clause.List == nil {
			defaultClause = clause
			continue
		}
		for _, ce := range clause.List {
			v, err := i.evalExpr(ce, local)
			if err != nil {
				return signal{}, err
			}
			matched := false
			if hasTag {
				matched = equal(tag, v)
			} else {
				b, ok := truth(v)
				if !ok {
					return signal{}, errors.New("interp: switch case must be boolean")
				}
				matched = b
			}
			if matched {
				return i.runClause(clause, local)
			}
		}
	}
	if defaultClause != nil {
		return i.runClause(defaultClause, local)
	}
	return signal{}, nil
}

func (i *Interp) runClause(clause *ast.CaseClause, env *Env) (signal, error) {
	sig, err := i.evalStmt(&ast.BlockStmt{List: clause.Body}, env)
	if err != nil {
		return signal{}, err
	}
	if sig.kind == sigBreak {
		return signal{}, nil
	}
	return sig, nil
}

func (i *Interp) evalCond(e ast.Expr, env *Env) (bool, error) {
	v, err := i.evalExpr(e, env)
	if err != nil {
		return false, err
	}
	b, ok := truth(v)
	if !ok {
		return false, fmt.Errorf("interp: condition must be boolean, got %s", TypeName(v))
	}
	return b, nil
}

func (i *Interp) evalExpr(e ast.Expr, env *Env) (any, error) {
	switch ex := e.(type) {
	case *ast.BasicLit:
		return evalLiteral(ex)

	case *ast.Ident:
		switch ex.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		if v, ok := env.lookup(ex.Name); ok {
			return v, nil
		}
		if fn, ok := i.funcs[ex.Name]; ok {
			return fn, nil
		}
		return nil, fmt.Errorf("interp: undefined: %s", ex.Name)

	case *ast.ParenExpr:
		return i.evalExpr(ex.X, env)

	case *ast.UnaryExpr:
		v, err := i.evalExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case token.SUB:
			switch n := v.(type) {
			case int:
				return -n, nil
			case float64:
				return -n, nil
			}
			return nil, fmt.Errorf("interp: cannot negate %s", TypeName(v))
		case token.ADD:
			return v, nil
		case token.NOT:
			b, ok := truth(v)
			if !ok {
				return nil, fmt.Errorf("interp: ! requires bool, got %s", TypeName(v))
			}
			return !b, nil
		default:
			return nil, fmt.Errorf("interp: unsupported unary %s", ex.Op)
		}

	case *ast.BinaryExpr:
		// Short-circuit logic before evaluating the right operand.
		if ex.Op == token.LAND || ex.Op == token.LOR {
			l, err := i.evalCond(ex.X, env)
			if err != nil {
				return nil, err
			}
			if ex.Op == token.LAND && !l {
				return false, nil
			}
			if ex.Op == token.LOR && l {
				return true, nil
			}
			return i.evalCond(ex.Y, env)
		}
		l, err := i.evalExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		r, err := i.evalExpr(ex.Y, env)
		if err != nil {
			return nil, err
		}
		return binaryOp(ex.Op, l, r)

	case *ast.CallExpr:
		return i.evalCall(ex, env)

	case *ast.IndexExpr:
		cont, err := i.evalExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		idx, err := i.evalExpr(ex.Index, env)
		if err != nil {
			return nil, err
		}
		switch c := cont.(type) {
		case *Slice:
			n, ok := idx.(int)
			if !ok || n < 0 || n >= len(c.Data) {
				return nil, fmt.Errorf("interp: index out of range [%v] with length %d", idx, len(c.Data))
			}
			return c.Data[n], nil
		case *Map:
			v, ok := c.Get(idx)
			if !ok {
				return zeroValue(c.Elem), nil
			}
			return v, nil
		case string:
			n, ok := idx.(int)
			if !ok || n < 0 || n >= len(c) {
				return nil, fmt.Errorf("interp: index out of range [%v] with length %d", idx, len(c))
			}
			return int(c[n]), nil
		default:
			return nil, fmt.Errorf("interp: cannot index %s", TypeName(cont))
		}

	case *ast.SliceExpr:
		cont, err := i.evalExpr(ex.X, env)
		if err != nil {
			return nil, err
		}
		lo, hi := 0, -1
		if ex.Low != nil {
			v, err := i.evalExpr(ex.Low, env)
			if err != nil {
				return nil, err
			}
			n, ok := v.(int)
			if !ok {
				return nil, errors.New("interp: slice bound must be int")
			}
			lo = n
		}
		if ex.High != nil {
			v, err := i.evalExpr(ex.High, env)
			if err != nil {
				return nil, err
			}
			n, ok := v.(int)
			if !ok {
				return nil, errors.New("interp: slice bound must be int")
			}
			hi = n
		}
		switch c := cont.(type) {
		case *Slice:
			if hi < 0 || hi > len(c.Data) {
				hi = len(c.Data)
			}
			if lo < 0 || lo > hi {
				return nil, fmt.Errorf("interp: slice bounds out of range [%d:%d]", lo, hi)
			}
			return &Slice{Elem: c.Elem, Data: c.Data[lo:hi]}, nil
		case string:
			if hi < 0 || hi > len(c) {
				hi = len(c)
			}
			if lo < 0 || lo > hi {
				return nil, fmt.Errorf("interp: slice bounds out of range [%d:%d]", lo, hi)
			}
			return c[lo:hi], nil
		default:
			return nil, fmt.Errorf("interp: cannot slice %s", TypeName(cont))
		}

	case *ast.SelectorExpr:
		if pkg, ok := ex.X.(*ast.Ident); ok {
			if members, ok := i.packages[pkg.Name]; ok {
				if m, ok := members[ex.Sel.Name]; ok {
					return m, nil
				}
				return nil, fmt.Errorf("interp: undefined: %s.%s", pkg.Name, ex.Sel.Name)
			}
		}
		return nil, errors.New("interp: field access is not supported")

	case *ast.CompositeLit:
		return i.evalComposite(ex, env)

	case *ast.FuncLit:
		return nil, errors.New("interp: function literals are not supported")

	default:
		return nil, fmt.Errorf("interp: unsupported expression %T", e)
	}
}

func evalLiteral(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("interp: bad integer literal %s", lit.Value)
		}
		return int(n), nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("interp: bad float literal %s", lit.Value)
		}
		return f, nil
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("interp: bad string literal %s", lit.Value)
		}
		return s, nil
	case token.CHAR:
		s, err := strconv.Unquote(lit.Value)
		if err != nil || len(s) == 0 {
			return nil, fmt.Errorf("interp: bad rune literal %s", lit.Value)
		}
		return int([]rune(s)[0]), nil
	default:
		return nil, fmt.Errorf("interp: unsupported literal kind %s", lit.Kind)
	}
}

func (i *Interp) evalComposite(lit *ast.CompositeLit, env *Env) (any, error) {
	typ := typeText(lit.Type)
	switch {
	case len(typ) > 2 && typ[:2] == "[]":
		out := &Slice{Elem: typ[2:]}
		for _, el := range lit.Elts {
			v, err := i.evalExpr(el, env)
			if err != nil {
				return nil, err
			}
			out.Data = append(out.Data, v)
		}
		return out, nil
	case len(typ) > 4 && typ[:4] == "map[":
		key, elem := splitMapType(typ)
		out := newMap(key, elem)
		for _, el := range lit.Elts {
			kv, ok := el.(*ast.KeyValueExpr)
			if !ok {
				return nil, errors.New("interp: map literal requires key: value entries")
			}
			k, err := i.evalExpr(kv.Key, env)
			if err != nil {
				return nil, err
			}
			v, err := i.evalExpr(kv.Value, env)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("interp: unsupported composite literal type %s", typ)
	}
}

func splitMapType(typ string) (string, string) {
	depth := 0
	for idx := 4; idx < len(typ); idx++ {
		switch typ[idx] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return typ[4:idx], typ[idx+1:]
			}
			depth--
		}
	}
	return "any", "any"
}

func binaryOp(op token.Token, l, r any) (any, error) {
	switch op {
	case token.EQL:
		return equal(l, r), nil
	case token.NEQ:
		return !equal(l, r), nil
	}

	if ls, ok := l.(string); ok {
		rs, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("interp: invalid operation %s %s %s", TypeName(l), op, TypeName(r))
		}
		switch op {
		case token.ADD:
			return ls + rs, nil
		case token.LSS:
			return ls < rs, nil
		case token.LEQ:
			return ls <= rs, nil
		case token.GTR:
			return ls > rs, nil
		case token.GEQ:
			return ls >= rs, nil
		}
		return nil, fmt.Errorf("interp: invalid string operation %s", op)
	}

	li, lInt := l.(int)
	ri, rInt := r.(int)
	if lInt && rInt {
		switch op {
		case token.ADD:
			return li + ri, nil
		case token.SUB:
			return li - ri, nil
		case token.MUL:
			return li * ri, nil
		case token.QUO:
			if ri == 0 {
				return nil, errors.New("interp: integer divide by zero")
			}
			return li / ri, nil
		case token.REM:
			if ri == 0 {
				return nil, errors.New("interp: integer divide by zero")
			}
			return li % ri, nil
		case token.LSS:
			return li < ri, nil
		case token.LEQ:
			return li <= ri, nil
		case token.GTR:
			return li > ri, nil
		case token.GEQ:
			return li >= ri, nil
		case token.AND:
			return li & ri, nil
		case token.OR:
			return li | ri, nil
		case token.XOR:
			return li ^ ri, nil
		case token.SHL:
			return li << uint(ri), nil
		case token.SHR:
			return li >> uint(ri), nil
		}
		return nil, fmt.Errorf("interp: unsupported operator %s", op)
	}

	lf, lNum := asFloat(l)
	rf, rNum := asFloat(r)
	if lNum && rNum {
		switch op {
		case token.ADD:
			return lf + rf, nil
		case token.SUB:
			return lf - rf, nil
		case token.MUL:
			return lf * rf, nil
		case token.QUO:
			if rf == 0 {
				return nil, errors.New("interp: float divide by zero")
			}
			return lf / rf, nil
		case token.LSS:
			return lf < rf, nil
		case token.LEQ:
			return lf <= rf, nil
		case token.GTR:
			return lf > rf, nil
		case token.GEQ:
			return lf >= rf, nil
		}
		return nil, fmt.Errorf("interp: unsupported operator %s", op)
	}

	return nil, fmt.Errorf("interp: invalid operation %s %s %s", TypeName(l), op, TypeName(r))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (i *Interp) call(fn *Function, args []any) (any, error) {
	if fn.Native != nil {
		return fn.Native(args)
	}

	local := newEnv(fn.Env)
	if fn.Variadic {
		fixed := len(fn.Params) - 1
		for idx := 0; idx < fixed; idx++ {
			var v any
			if idx < len(args) {
				v = args[idx]
			}
			local.declare(fn.Params[idx], v)
		}
		rest := &Slice{Elem: "any"}
		if len(args) > fixed {
			rest.Data = append(rest.Data, args[fixed:]...)
		}
		local.declare(fn.Params[fixed], rest)
	} else {
		if len(args) != len(fn.Params) {
			return nil, fmt.Errorf("interp: %s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
		}
		for idx, p := range fn.Params {
			local.declare(p, args[idx])
		}
	}

	sig, err := i.evalStmt(fn.Body, local)
	if err != nil {
		return nil, err
	}
	if sig.kind == sigReturn {
		return sig.val, nil
	}
	return nil, nil
}
