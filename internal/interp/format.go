package interp

import "strconv"

// Format renders a runtime value for trace display. Scalars and nil are shown
// by their literal representation; containers and functions are shown as an
// opaque placeholder so arbitrary object internals are never serialized into
// trace output.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return "<" + TypeName(v) + " object>"
	}
}

// SizeOf returns a rough byte-size estimate for a runtime value, analogous to
// a shallow sizeof. Container estimates count headers plus per-element slots,
// not the transitive closure.
func SizeOf(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, float64:
		return 8
	case string:
		return 16 + len(t)
	case *Slice:
		return 24 + 8*len(t.Data)
	case *Map:
		return 48 + 16*t.Len()
	default:
		return 8
	}
}

// Display renders a value the way the curated fmt package prints it:
// strings unquoted, containers expanded one level.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case *Slice:
		out := "["
		for i, e := range t.Data {
			if i > 0 {
				out += " "
			}
			out += Display(e)
		}
		return out + "]"
	case *Map:
		out := "map["
		first := true
		_ = t.Each(func(k, v any) error {
			if !first {
				out += " "
			}
			first = false
			out += Display(k) + ":" + Display(v)
			return nil
		})
		return out + "]"
	case *Function:
		if t.Name != "" {
			return "func " + t.Name
		}
		return "func"
	default:
		return "?"
	}
}
