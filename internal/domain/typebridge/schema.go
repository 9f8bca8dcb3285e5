package typebridge

// JSON Schema is represented as an ordered-ish map; encoding/json on a
// map[string]any loses key order, which is fine here because every
// generated schema is consumed by a schema validator, not read for
// human field order.
type schemaMap = map[string]any

// Schema produces the JSON Schema shape for t, per the exhaustive
// mapping table.
func Schema(t *Type) schemaMap {
	switch t.Kind {
	case KindBool:
		return schemaMap{"type": "boolean"}
	case KindS8, KindS16, KindS32, KindS64, KindU8, KindU16, KindU32, KindU64, KindF32, KindF64:
		return schemaMap{"type": "number"}
	case KindChar:
		return schemaMap{"type": "string", "description": "1 unicode codepoint"}
	case KindString:
		return schemaMap{"type": "string"}
	case KindList:
		return schemaMap{"type": "array", "items": Schema(t.Elem)}
	case KindTuple:
		items := make([]schemaMap, len(t.Tuple))
		for i, m := range t.Tuple {
			items[i] = Schema(m)
		}
		return schemaMap{
			"type":        "array",
			"prefixItems": items,
			"minItems":    len(items),
			"maxItems":    len(items),
		}
	case KindRecord:
		props := schemaMap{}
		required := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			props[f.Name] = Schema(f.Type)
			required = append(required, f.Name)
		}
		return schemaMap{"type": "object", "properties": props, "required": required}
	case KindVariant:
		options := make([]schemaMap, len(t.Variants))
		for i, c := range t.Variants {
			props := schemaMap{"tag": schemaMap{"const": c.Name}}
			required := []string{"tag"}
			if c.Payload != nil {
				props["val"] = Schema(c.Payload)
				required = append(required, "val")
			}
			options[i] = schemaMap{"type": "object", "properties": props, "required": required}
		}
		return schemaMap{"oneOf": options}
	case KindEnum:
		return schemaMap{"type": "string", "enum": append([]string{}, t.EnumCases...)}
	case KindOption:
		return schemaMap{"anyOf": []schemaMap{{"type": "null"}, Schema(t.Elem)}}
	case KindResult:
		var okCase, errCase schemaMap
		if t.Ok != nil {
			okCase = schemaMap{
				"type":       "object",
				"properties": schemaMap{"ok": Schema(t.Ok)},
				"required":   []string{"ok"},
			}
		} else {
			okCase = schemaMap{"type": "object", "properties": schemaMap{}}
		}
		if t.Err != nil {
			errCase = schemaMap{
				"type":       "object",
				"properties": schemaMap{"err": Schema(t.Err)},
				"required":   []string{"err"},
			}
		} else {
			errCase = schemaMap{"type": "object", "properties": schemaMap{}}
		}
		return schemaMap{"oneOf": []schemaMap{okCase, errCase}}
	case KindFlags:
		return schemaMap{"type": "array", "items": schemaMap{"type": "string"}}
	case KindResource:
		return schemaMap{"type": "string", "description": "resource: " + t.ResourceName}
	default:
		return schemaMap{}
	}
}

// ResultSchema wraps a function's ordered return types per the result
// wrapping rule: zero returns -> empty object, one -> {result: T}, many
// -> {result: {val0: T0, val1: T1, ...}}.
func ResultSchema(results []*Type) schemaMap {
	switch len(results) {
	case 0:
		return schemaMap{"type": "object", "properties": schemaMap{}}
	case 1:
		return schemaMap{
			"type":       "object",
			"properties": schemaMap{"result": Schema(results[0])},
			"required":   []string{"result"},
		}
	default:
		valProps := schemaMap{}
		for i, r := range results {
			valProps[valKey(i)] = Schema(r)
		}
		return schemaMap{
			"type": "object",
			"properties": schemaMap{
				"result": schemaMap{"type": "object", "properties": valProps},
			},
			"required": []string{"result"},
		}
	}
}

// ParamsSchema builds the input schema object for a function's ordered
// parameter list: a record of the parameter names and types.
func ParamsSchema(params []Param) schemaMap {
	fields := make([]Field, len(params))
	for i, p := range params {
		fields[i] = Field{Name: p.Name, Type: p.Type}
	}
	return Schema(Record(fields...))
}
