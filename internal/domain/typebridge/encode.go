package typebridge

import "math"

// Encode converts a typed Value back into a JSON-ready `any` tree
// (suitable for encoding/json.Marshal), the inverse of Decode. NaN and
// +/-Inf floats are emitted as sentinel strings because encoding/json
// rejects non-finite float64 values outright; this is applied
// uniformly for every float-typed value in the bridge.
func Encode(v *Value) any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindS8, KindS16, KindS32, KindS64:
		return v.Int
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint
	case KindF32, KindF64:
		return encodeFloat(v.Float)
	case KindChar:
		return string(v.Char)
	case KindString:
		return v.Str
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = Encode(e)
		}
		return out
	case KindTuple:
		out := make([]any, len(v.Tuple))
		for i, e := range v.Tuple {
			out[i] = Encode(e)
		}
		return out
	case KindRecord:
		out := make(map[string]any, len(v.Record))
		for k, e := range v.Record {
			out[k] = Encode(e)
		}
		return out
	case KindVariant:
		out := map[string]any{"tag": v.VariantTag}
		if v.VariantVal != nil {
			out["val"] = Encode(v.VariantVal)
		}
		return out
	case KindEnum:
		return v.EnumCase
	case KindOption:
		if !v.OptionSet {
			return nil
		}
		return Encode(v.OptionVal)
	case KindResult:
		if v.ResultIsErr {
			if v.ResultErr == nil {
				return map[string]any{"err": nil}
			}
			return map[string]any{"err": Encode(v.ResultErr)}
		}
		if v.ResultOk == nil {
			return map[string]any{"ok": nil}
		}
		return map[string]any{"ok": Encode(v.ResultOk)}
	case KindFlags:
		out := make([]any, len(v.Flags))
		for i, f := range v.Flags {
			out[i] = f
		}
		return out
	case KindResource:
		return v.ResourceID
	default:
		return nil
	}
}

// sentinel strings used when a float result is non-finite, since
// encoding/json cannot represent NaN/Inf as a JSON number.
const (
	sentinelNaN    = "NaN"
	sentinelPosInf = "Infinity"
	sentinelNegInf = "-Infinity"
)

func encodeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return sentinelNaN
	case math.IsInf(f, 1):
		return sentinelPosInf
	case math.IsInf(f, -1):
		return sentinelNegInf
	default:
		return f
	}
}

// EncodeResults wraps a function's ordered result values per the
// result-wrapping rule: zero returns -> {}, one -> {result: v}, many
// -> {result: {val0: v0, val1: v1, ...}}.
func EncodeResults(values []*Value) map[string]any {
	switch len(values) {
	case 0:
		return map[string]any{}
	case 1:
		return map[string]any{"result": Encode(values[0])}
	default:
		vals := make(map[string]any, len(values))
		for i, v := range values {
			vals[valKey(i)] = Encode(v)
		}
		return map[string]any{"result": vals}
	}
}
