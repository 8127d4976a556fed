package settings

// Merge returns the key-wise union of base and overlay. Keys present in
// overlay win; keys only present in base are kept. Neither input is modified.
func Merge(base, overlay Document) Document {
	out := make(Document, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// MergeStats counts how overlay changed base.
type MergeStats struct {
	Added   int
	Changed int
	Kept    int
}

// Diff reports how Merge(base, overlay) differs from base. Values are
// compared by their JSON-equivalent form.
func Diff(base, overlay Document) MergeStats {
	var st MergeStats
	for k, v := range overlay {
		old, ok := base[k]
		switch {
		case !ok:
			st.Added++
		case !sameValue(old, v):
			st.Changed++
		}
	}
	for k := range base {
		if _, ok := overlay[k]; !ok {
			st.Kept++
		}
	}
	return st
}

func sameValue(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	switch a.(type) {
	case []any, []int:
		return sameList(a, b)
	case string, bool, nil:
		return a == b
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func sameList(a, b any) bool {
	la, lb := asList(a), asList(b)
	if la == nil || lb == nil || len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !sameValue(la[i], lb[i]) {
			return false
		}
	}
	return true
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out
	default:
		return nil
	}
}
