package wasm

import "fmt"

// HeapType identifies a heap type definition inside a TypeStore.
type HeapType uint32

// NoHeapType marks the absence of a heap type.
const NoHeapType HeapType = 0

// HeapTypeKind enumerates all supported kinds of heap types.
type HeapTypeKind uint8

const (
	HeapKindInvalid HeapTypeKind = iota
	HeapKindBasic
	HeapKindSignature
	HeapKindStruct
	HeapKindArray
)

func (k HeapTypeKind) String() string {
	switch k {
	case HeapKindInvalid:
		return "invalid"
	case HeapKindBasic:
		return "basic"
	case HeapKindSignature:
		return "signature"
	case HeapKindStruct:
		return "struct"
	case HeapKindArray:
		return "array"
	default:
		return fmt.Sprintf("HeapTypeKind(%d)", k)
	}
}

// TypeKind enumerates all supported kinds of value types.
type TypeKind uint8

const (
	TypeNone TypeKind = iota
	TypeBasic
	TypeRef
	TypeRtt
	TypeTuple
)

func (k TypeKind) String() string {
	switch k {
	case TypeNone:
		return "none"
	case TypeBasic:
		return "basic"
	case TypeRef:
		return "ref"
	case TypeRtt:
		return "rtt"
	case TypeTuple:
		return "tuple"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// BasicType enumerates the primitive value types.
type BasicType uint8

const (
	BasicI32 BasicType = iota
	BasicI64
	BasicF32
	BasicF64
	BasicUnreachable
)

func (b BasicType) String() string {
	switch b {
	case BasicI32:
		return "i32"
	case BasicI64:
		return "i64"
	case BasicF32:
		return "f32"
	case BasicF64:
		return "f64"
	case BasicUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("BasicType(%d)", b)
	}
}

// Type is a compact descriptor for any value type. Ref and Rtt refer to a
// HeapType without owning it; Tuple carries its elements inline.
type Type struct {
	Kind     TypeKind
	Basic    BasicType
	Heap     HeapType
	Nullable bool
	Depth    uint32
	Tuple    []Type
}

// Common value types.
var (
	None = Type{Kind: TypeNone}
	I32  = Type{Kind: TypeBasic, Basic: BasicI32}
	I64  = Type{Kind: TypeBasic, Basic: BasicI64}
	F32  = Type{Kind: TypeBasic, Basic: BasicF32}
	F64  = Type{Kind: TypeBasic, Basic: BasicF64}
)

// MakeBasic describes a primitive value type.
func MakeBasic(b BasicType) Type {
	return Type{Kind: TypeBasic, Basic: b}
}

// MakeRef describes a reference to a heap type.
func MakeRef(heap HeapType, nullable bool) Type {
	return Type{Kind: TypeRef, Heap: heap, Nullable: nullable}
}

// MakeRtt describes a runtime-type descriptor for a heap type.
func MakeRtt(depth uint32, heap HeapType) Type {
	return Type{Kind: TypeRtt, Heap: heap, Depth: depth}
}

// MakeTuple collapses a type list into a value type: empty becomes None and a
// single element stands for itself.
func MakeTuple(elems []Type) Type {
	switch len(elems) {
	case 0:
		return None
	case 1:
		return elems[0]
	default:
		return Type{Kind: TypeTuple, Tuple: elems}
	}
}

// Equal reports structural equality of two value types.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeNone:
		return true
	case TypeBasic:
		return t.Basic == o.Basic
	case TypeRef:
		return t.Heap == o.Heap && t.Nullable == o.Nullable
	case TypeRtt:
		return t.Heap == o.Heap && t.Depth == o.Depth
	case TypeTuple:
		if len(t.Tuple) != len(o.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if !t.Tuple[i].Equal(o.Tuple[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Expand returns the element list of a type: the tuple elements for tuples,
// nothing for None, and the type itself otherwise.
func (t Type) Expand() []Type {
	switch t.Kind {
	case TypeNone:
		return nil
	case TypeTuple:
		return t.Tuple
	default:
		return []Type{t}
	}
}

// Pack describes field storage packing.
type Pack uint8

const (
	PackNone Pack = iota
	Pack8
	Pack16
)

// Field belongs to a struct or array definition. Mutability and packing are
// orthogonal to the field's type and travel with it unchanged.
type Field struct {
	Type    Type
	Mutable bool
	Packed  Pack
}

// Signature is a function type: parameter and result tuples.
type Signature struct {
	Params  Type
	Results Type
}

// StructDef is the definition payload of a struct heap type.
type StructDef struct {
	Fields []Field
}

// ArrayDef is the definition payload of an array heap type.
type ArrayDef struct {
	Element Field
}
