package typebridge

import (
	"math"
	"unicode/utf8"

	apperrors "github.com/wasmtool-dev/wasmtool/internal/application/errors"
)

// DecodeParams pulls values from a JSON object by name, in the order
// given by params, bounds-checking numeric conversions and rejecting
// unknown fields.
func DecodeParams(params []Param, args map[string]any) ([]*Value, error) {
	seen := make(map[string]bool, len(params))
	out := make([]*Value, len(params))
	for i, p := range params {
		seen[p.Name] = true
		raw, ok := args[p.Name]
		if !ok {
			return nil, apperrors.Newf(apperrors.KindMissingField, "missing required field %q", p.Name)
		}
		v, err := Decode(raw, p.Type)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	for k := range args {
		if !seen[k] {
			return nil, apperrors.Newf(apperrors.KindUnknownField, "unknown field %q", k)
		}
	}
	return out, nil
}

// Decode converts a JSON value (as produced by encoding/json.Unmarshal
// into `any`) into a typed Value, schema-directed by t.
func Decode(raw any, t *Type) (*Value, error) {
	switch t.Kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, mismatch(t, raw)
		}
		return &Value{Kind: t.Kind, Bool: b}, nil

	case KindS8, KindS16, KindS32, KindS64:
		return decodeSigned(raw, t)

	case KindU8, KindU16, KindU32, KindU64:
		return decodeUnsigned(raw, t)

	case KindF32, KindF64:
		n, ok := raw.(float64)
		if !ok {
			return nil, mismatch(t, raw)
		}
		return &Value{Kind: t.Kind, Float: n}, nil

	case KindChar:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(t, raw)
		}
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, apperrors.New(apperrors.KindTypeMismatch, "char must be exactly one unicode scalar")
		}
		return &Value{Kind: t.Kind, Char: r}, nil

	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(t, raw)
		}
		return &Value{Kind: t.Kind, Str: s}, nil

	case KindList:
		arr, ok := raw.([]any)
		if !ok {
			return nil, mismatch(t, raw)
		}
		items := make([]*Value, len(arr))
		for i, e := range arr {
			v, err := Decode(e, t.Elem)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &Value{Kind: t.Kind, List: items}, nil

	case KindTuple:
		arr, ok := raw.([]any)
		if !ok || len(arr) != len(t.Tuple) {
			return nil, apperrors.Newf(apperrors.KindTypeMismatch, "tuple expects %d elements", len(t.Tuple))
		}
		items := make([]*Value, len(arr))
		for i, e := range arr {
			v, err := Decode(e, t.Tuple[i])
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &Value{Kind: t.Kind, Tuple: items}, nil

	case KindRecord:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(t, raw)
		}
		rec := make(map[string]*Value, len(t.Fields))
		seen := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			seen[f.Name] = true
			fv, present := obj[f.Name]
			if !present {
				return nil, apperrors.Newf(apperrors.KindMissingField, "missing required field %q", f.Name)
			}
			v, err := Decode(fv, f.Type)
			if err != nil {
				return nil, err
			}
			rec[f.Name] = v
		}
		for k := range obj {
			if !seen[k] {
				return nil, apperrors.Newf(apperrors.KindUnknownField, "unknown field %q", k)
			}
		}
		return &Value{Kind: t.Kind, Record: rec}, nil

	case KindVariant:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(t, raw)
		}
		tag, ok := obj["tag"].(string)
		if !ok {
			return nil, apperrors.New(apperrors.KindTypeMismatch, "variant requires string \"tag\"")
		}
		var matched *VariantCase
		for i := range t.Variants {
			if t.Variants[i].Name == tag {
				matched = &t.Variants[i]
				break
			}
		}
		if matched == nil {
			return nil, apperrors.Newf(apperrors.KindTypeMismatch, "unknown variant case %q", tag)
		}
		val, hasVal := obj["val"]
		if matched.Payload != nil {
			if !hasVal {
				return nil, apperrors.Newf(apperrors.KindMissingField, "variant case %q requires \"val\"", tag)
			}
			v, err := Decode(val, matched.Payload)
			if err != nil {
				return nil, err
			}
			return &Value{Kind: t.Kind, VariantTag: tag, VariantVal: v}, nil
		}
		return &Value{Kind: t.Kind, VariantTag: tag}, nil

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(t, raw)
		}
		for _, c := range t.EnumCases {
			if c == s {
				return &Value{Kind: t.Kind, EnumCase: s}, nil
			}
		}
		return nil, apperrors.Newf(apperrors.KindTypeMismatch, "unknown enum case %q", s)

	case KindOption:
		if raw == nil {
			return &Value{Kind: t.Kind, OptionSet: false}, nil
		}
		v, err := Decode(raw, t.Elem)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: t.Kind, OptionSet: true, OptionVal: v}, nil

	case KindResult:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(t, raw)
		}
		if okRaw, present := obj["ok"]; present {
			if t.Ok == nil {
				return nil, apperrors.New(apperrors.KindTypeMismatch, "result has no ok type")
			}
			v, err := Decode(okRaw, t.Ok)
			if err != nil {
				return nil, err
			}
			return &Value{Kind: t.Kind, ResultOk: v}, nil
		}
		if errRaw, present := obj["err"]; present {
			if t.Err == nil {
				return nil, apperrors.New(apperrors.KindTypeMismatch, "result has no err type")
			}
			v, err := Decode(errRaw, t.Err)
			if err != nil {
				return nil, err
			}
			return &Value{Kind: t.Kind, ResultIsErr: true, ResultErr: v}, nil
		}
		return nil, apperrors.New(apperrors.KindMissingField, "result requires \"ok\" or \"err\"")

	case KindFlags:
		arr, ok := raw.([]any)
		if !ok {
			return nil, mismatch(t, raw)
		}
		valid := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			valid[f.Name] = true
		}
		var flags []string
		added := make(map[string]bool)
		for _, e := range arr {
			s, ok := e.(string)
			if !ok || !valid[s] {
				return nil, apperrors.Newf(apperrors.KindTypeMismatch, "invalid flag name %v", e)
			}
			if !added[s] { // duplicates are allowed and idempotent
				added[s] = true
				flags = append(flags, s)
			}
		}
		return &Value{Kind: t.Kind, Flags: flags}, nil

	case KindResource:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(t, raw)
		}
		return &Value{Kind: t.Kind, ResourceID: s}, nil

	default:
		return nil, apperrors.Newf(apperrors.KindUnsupportedType, "unsupported type kind %v", t.Kind)
	}
}

func decodeSigned(raw any, t *Type) (*Value, error) {
	n, ok := raw.(float64)
	if !ok {
		return nil, mismatch(t, raw)
	}
	if math.Trunc(n) != n {
		return nil, apperrors.New(apperrors.KindTypeMismatch, "expected an integer, got a fractional number")
	}
	i := int64(n)
	var lo, hi int64
	switch t.Kind {
	case KindS8:
		lo, hi = math.MinInt8, math.MaxInt8
	case KindS16:
		lo, hi = math.MinInt16, math.MaxInt16
	case KindS32:
		lo, hi = math.MinInt32, math.MaxInt32
	case KindS64:
		lo, hi = math.MinInt64, math.MaxInt64
	}
	if n < float64(lo) || n > float64(hi) {
		return nil, apperrors.Newf(apperrors.KindOutOfRange, "value %v out of range for %v", n, t.Kind)
	}
	return &Value{Kind: t.Kind, Int: i}, nil
}

func decodeUnsigned(raw any, t *Type) (*Value, error) {
	n, ok := raw.(float64)
	if !ok {
		return nil, mismatch(t, raw)
	}
	if math.Trunc(n) != n {
		return nil, apperrors.New(apperrors.KindTypeMismatch, "expected an integer, got a fractional number")
	}
	if n < 0 {
		return nil, apperrors.Newf(apperrors.KindOutOfRange, "unsigned value cannot be negative: %v", n)
	}
	var hi uint64
	switch t.Kind {
	case KindU8:
		hi = math.MaxUint8
	case KindU16:
		hi = math.MaxUint16
	case KindU32:
		hi = math.MaxUint32
	case KindU64:
		hi = math.MaxUint64
	}
	if n > float64(hi) {
		return nil, apperrors.Newf(apperrors.KindOutOfRange, "value %v out of range for %v", n, t.Kind)
	}
	return &Value{Kind: t.Kind, Uint: uint64(n)}, nil
}

func mismatch(t *Type, raw any) error {
	return apperrors.Newf(apperrors.KindTypeMismatch, "expected %v, got %T", t.Kind, raw)
}
