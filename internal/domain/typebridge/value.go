package typebridge

import "fmt"

// Value is a tagged union holding one runtime value from the
// interface-type lattice. Only the fields relevant to Kind are
// populated.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64   // s8/s16/s32/s64
	Uint  uint64  // u8/u16/u32/u64
	Float float64 // f32/f64
	Char  rune
	Str   string

	List  []*Value
	Tuple []*Value

	Record map[string]*Value

	VariantTag string
	VariantVal *Value // nil iff the case has no payload

	EnumCase string

	OptionSet bool // true iff Some
	OptionVal *Value

	ResultIsErr bool
	ResultOk    *Value // nil iff absent
	ResultErr   *Value // nil iff absent

	Flags []string

	ResourceID string
}

func valKey(i int) string { return fmt.Sprintf("val%d", i) }

// Zero produces the placeholder zero-value for t: 0 for numerics,
// empty string, empty list, the first enum case, None for option,
// Ok(zero) for result when an ok type is declared (err-only results
// default to an empty err case).
func Zero(t *Type) *Value {
	switch t.Kind {
	case KindBool:
		return &Value{Kind: t.Kind}
	case KindS8, KindS16, KindS32, KindS64:
		return &Value{Kind: t.Kind}
	case KindU8, KindU16, KindU32, KindU64:
		return &Value{Kind: t.Kind}
	case KindF32, KindF64:
		return &Value{Kind: t.Kind}
	case KindChar:
		return &Value{Kind: t.Kind, Char: ' '}
	case KindString:
		return &Value{Kind: t.Kind}
	case KindList:
		return &Value{Kind: t.Kind, List: []*Value{}}
	case KindTuple:
		members := make([]*Value, len(t.Tuple))
		for i, m := range t.Tuple {
			members[i] = Zero(m)
		}
		return &Value{Kind: t.Kind, Tuple: members}
	case KindRecord:
		rec := make(map[string]*Value, len(t.Fields))
		for _, f := range t.Fields {
			rec[f.Name] = Zero(f.Type)
		}
		return &Value{Kind: t.Kind, Record: rec}
	case KindVariant:
		if len(t.Variants) == 0 {
			return &Value{Kind: t.Kind}
		}
		first := t.Variants[0]
		v := &Value{Kind: t.Kind, VariantTag: first.Name}
		if first.Payload != nil {
			v.VariantVal = Zero(first.Payload)
		}
		return v
	case KindEnum:
		if len(t.EnumCases) == 0 {
			return &Value{Kind: t.Kind}
		}
		return &Value{Kind: t.Kind, EnumCase: t.EnumCases[0]}
	case KindOption:
		return &Value{Kind: t.Kind, OptionSet: false}
	case KindResult:
		if t.Ok != nil {
			return &Value{Kind: t.Kind, ResultOk: Zero(t.Ok)}
		}
		return &Value{Kind: t.Kind, ResultIsErr: true}
	case KindFlags:
		return &Value{Kind: t.Kind, Flags: []string{}}
	case KindResource:
		return &Value{Kind: t.Kind}
	default:
		return &Value{Kind: t.Kind}
	}
}

// ZeroResults builds the placeholder result value for a function's
// ordered return types, wrapped per the result-wrapping rule.
func ZeroResults(results []*Type) []*Value {
	vals := make([]*Value, len(results))
	for i, t := range results {
		vals[i] = Zero(t)
	}
	return vals
}
