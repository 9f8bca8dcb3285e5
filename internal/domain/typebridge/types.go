// Package typebridge converts between a component's typed interface
// values and the self-describing JSON representation the tool protocol
// speaks: generating JSON Schema for an interface type, decoding JSON
// arguments into typed values, and encoding typed results back to JSON.
package typebridge

// Kind identifies a member of the closed interface-type lattice the
// bridge understands.
type Kind int

const (
	KindBool Kind = iota
	KindS8
	KindS16
	KindS32
	KindS64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindChar
	KindString
	KindList
	KindTuple
	KindRecord
	KindVariant
	KindEnum
	KindOption
	KindResult
	KindFlags
	KindResource
)

// Field is a named, typed member of a record or flags type.
type Field struct {
	Name string
	Type *Type
}

// VariantCase is one arm of a variant type; Payload is nil when the
// case carries no value.
type VariantCase struct {
	Name    string
	Payload *Type
}

// Type is a node in the interface-type lattice. Only the fields
// relevant to Kind are populated; the zero value of the others is
// ignored.
type Type struct {
	Kind Kind

	// KindList: element type. KindOption: inner type.
	Elem *Type

	// KindTuple: ordered member types.
	Tuple []*Type

	// KindRecord, KindFlags: named fields (Flags ignores Field.Type).
	Fields []Field

	// KindVariant: ordered cases.
	Variants []VariantCase

	// KindEnum: ordered case names.
	EnumCases []string

	// KindResult: Ok/Err types, either may be nil (absent).
	Ok  *Type
	Err *Type

	// KindResource: the resource type name.
	ResourceName string
}

// Bool returns a bool type.
func Bool() *Type { return &Type{Kind: KindBool} }

// Integer width constructors.
func S8() *Type  { return &Type{Kind: KindS8} }
func S16() *Type { return &Type{Kind: KindS16} }
func S32() *Type { return &Type{Kind: KindS32} }
func S64() *Type { return &Type{Kind: KindS64} }
func U8() *Type  { return &Type{Kind: KindU8} }
func U16() *Type { return &Type{Kind: KindU16} }
func U32() *Type { return &Type{Kind: KindU32} }
func U64() *Type { return &Type{Kind: KindU64} }
func F32() *Type { return &Type{Kind: KindF32} }
func F64() *Type { return &Type{Kind: KindF64} }

// Char returns a unicode-scalar type.
func Char() *Type { return &Type{Kind: KindChar} }

// String returns a string type.
func String() *Type { return &Type{Kind: KindString} }

// List returns a list-of-elem type.
func List(elem *Type) *Type { return &Type{Kind: KindList, Elem: elem} }

// Tuple returns a fixed-length tuple type.
func Tuple(members ...*Type) *Type { return &Type{Kind: KindTuple, Tuple: members} }

// Record returns a record type with the given named fields.
func Record(fields ...Field) *Type { return &Type{Kind: KindRecord, Fields: fields} }

// Variant returns a variant type with the given ordered cases.
func Variant(cases ...VariantCase) *Type { return &Type{Kind: KindVariant, Variants: cases} }

// Enum returns an enum type with the given ordered case names.
func Enum(cases ...string) *Type { return &Type{Kind: KindEnum, EnumCases: cases} }

// Option returns an option-of-inner type.
func Option(inner *Type) *Type { return &Type{Kind: KindOption, Elem: inner} }

// Result returns a result type; ok or err may be nil.
func Result(ok, err *Type) *Type { return &Type{Kind: KindResult, Ok: ok, Err: err} }

// Flags returns a flag-set type with the given named flags.
func Flags(names ...string) *Type {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n}
	}
	return &Type{Kind: KindFlags, Fields: fields}
}

// Resource returns an opaque resource-handle type.
func Resource(name string) *Type { return &Type{Kind: KindResource, ResourceName: name} }

// Param is one formal parameter of an exported function: a name and
// its declared type, in declaration order.
type Param struct {
	Name string
	Type *Type
}

// Signature is the introspected shape of one exported function: its
// ordered parameters and ordered return types (zero, one, or many).
type Signature struct {
	Params  []Param
	Results []*Type
}
