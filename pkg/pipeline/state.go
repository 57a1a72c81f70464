package pipeline

// ValueKind enumerates the closed set of kinds a State value may hold, so
// serialization into any storage backend is unambiguous.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a typed variant used in the run-scoped State scratch space.
type Value struct {
	Kind ValueKind

	Str  string
	Num  float64
	Bool bool
	List []Value
	Map  map[string]Value
}

// String wraps s in a Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps n in a Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool wraps b in a Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// List wraps vs in a Value.
func List(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// Map wraps m in a Value.
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// Interface converts the variant to its plain Go representation.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, 0, len(v.List))
		for _, item := range v.List {
			out = append(out, item.Interface())
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// State is the untyped key/value scratch space stages use to pass
// intermediate artifacts between each other. Sequential stage execution is
// what makes it safe: exactly one stage owns it at a time.
type State map[string]Value

// GetString returns the string stored under key, or "" when absent or of a
// different kind.
func (s State) GetString(key string) string {
	v, ok := s[key]
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// GetNumber returns the number stored under key, or 0 when absent or of a
// different kind.
func (s State) GetNumber(key string) float64 {
	v, ok := s[key]
	if !ok || v.Kind != KindNumber {
		return 0
	}
	return v.Num
}

// GetBool returns the bool stored under key, or false when absent or of a
// different kind.
func (s State) GetBool(key string) bool {
	v, ok := s[key]
	if !ok || v.Kind != KindBool {
		return false
	}
	return v.Bool
}
