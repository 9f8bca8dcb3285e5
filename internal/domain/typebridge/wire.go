package typebridge

import "fmt"

var kindNames = map[Kind]string{
	KindBool: "bool", KindS8: "s8", KindS16: "s16", KindS32: "s32", KindS64: "s64",
	KindU8: "u8", KindU16: "u16", KindU32: "u32", KindU64: "u64",
	KindF32: "f32", KindF64: "f64", KindChar: "char", KindString: "string",
	KindList: "list", KindTuple: "tuple", KindRecord: "record",
	KindVariant: "variant", KindEnum: "enum", KindOption: "option",
	KindResult: "result", KindFlags: "flags", KindResource: "resource",
}

var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// TypeWire is the JSON shape a component's exports manifest uses to
// describe one type in the interface-type lattice. It mirrors Type
// directly rather than a JSON Schema document, since the host needs
// the exact lattice node (not its schema projection) to decode and
// encode values against it.
type TypeWire struct {
	Kind         string          `json:"kind"`
	Elem         *TypeWire       `json:"elem,omitempty"`
	Tuple        []*TypeWire     `json:"tuple,omitempty"`
	Fields       []FieldWire     `json:"fields,omitempty"`
	Variants     []VariantWire   `json:"variants,omitempty"`
	EnumCases    []string        `json:"enum_cases,omitempty"`
	Ok           *TypeWire       `json:"ok,omitempty"`
	Err          *TypeWire       `json:"err,omitempty"`
	ResourceName string          `json:"resource_name,omitempty"`
}

// FieldWire is the wire form of Field.
type FieldWire struct {
	Name string    `json:"name"`
	Type *TypeWire `json:"type,omitempty"`
}

// VariantWire is the wire form of VariantCase.
type VariantWire struct {
	Name    string    `json:"name"`
	Payload *TypeWire `json:"payload,omitempty"`
}

// ParamWire is the wire form of Param.
type ParamWire struct {
	Name string    `json:"name"`
	Type *TypeWire `json:"type"`
}

// SignatureWire is the wire form of Signature, as returned by a
// component's manifest export.
type SignatureWire struct {
	Params  []ParamWire `json:"params"`
	Results []*TypeWire `json:"results,omitempty"`
}

// ToWire converts t into its wire representation.
func ToWire(t *Type) *TypeWire {
	if t == nil {
		return nil
	}
	w := &TypeWire{Kind: kindNames[t.Kind], ResourceName: t.ResourceName}
	w.Elem = ToWire(t.Elem)
	w.Ok = ToWire(t.Ok)
	w.Err = ToWire(t.Err)
	for _, m := range t.Tuple {
		w.Tuple = append(w.Tuple, ToWire(m))
	}
	for _, f := range t.Fields {
		w.Fields = append(w.Fields, FieldWire{Name: f.Name, Type: ToWire(f.Type)})
	}
	for _, v := range t.Variants {
		w.Variants = append(w.Variants, VariantWire{Name: v.Name, Payload: ToWire(v.Payload)})
	}
	w.EnumCases = append([]string(nil), t.EnumCases...)
	return w
}

// FromWire parses a wire type description into a *Type, rejecting
// unknown kind names so a malformed or hostile manifest never becomes
// a lattice node the rest of the bridge would mishandle.
func FromWire(w *TypeWire) (*Type, error) {
	if w == nil {
		return nil, nil
	}
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return nil, fmt.Errorf("typebridge: unknown type kind %q", w.Kind)
	}
	t := &Type{Kind: kind, ResourceName: w.ResourceName, EnumCases: w.EnumCases}

	var err error
	if t.Elem, err = FromWire(w.Elem); err != nil {
		return nil, err
	}
	if t.Ok, err = FromWire(w.Ok); err != nil {
		return nil, err
	}
	if t.Err, err = FromWire(w.Err); err != nil {
		return nil, err
	}
	for _, m := range w.Tuple {
		member, err := FromWire(m)
		if err != nil {
			return nil, err
		}
		t.Tuple = append(t.Tuple, member)
	}
	for _, f := range w.Fields {
		ft, err := FromWire(f.Type)
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, Field{Name: f.Name, Type: ft})
	}
	for _, v := range w.Variants {
		payload, err := FromWire(v.Payload)
		if err != nil {
			return nil, err
		}
		t.Variants = append(t.Variants, VariantCase{Name: v.Name, Payload: payload})
	}
	return t, nil
}

// SignatureFromWire parses a manifest-declared function signature.
func SignatureFromWire(w SignatureWire) (Signature, error) {
	sig := Signature{}
	for _, p := range w.Params {
		t, err := FromWire(p.Type)
		if err != nil {
			return Signature{}, fmt.Errorf("param %q: %w", p.Name, err)
		}
		sig.Params = append(sig.Params, Param{Name: p.Name, Type: t})
	}
	for i, r := range w.Results {
		t, err := FromWire(r)
		if err != nil {
			return Signature{}, fmt.Errorf("result %d: %w", i, err)
		}
		sig.Results = append(sig.Results, t)
	}
	return sig, nil
}
