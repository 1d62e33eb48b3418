package wasm

import (
	"fmt"

	"fortio.org/safecast"
)

// Abstract stores HeapTypes for the built-in abstract heap types.
type Abstract struct {
	Func   HeapType
	Extern HeapType
	Any    HeapType
	Eq     HeapType
	I31    HeapType
}

type heapTypeDef struct {
	Kind   HeapTypeKind
	Sig    Signature
	Struct StructDef
	Array  ArrayDef
}

// TypeStore owns every heap type definition of a module. Definitions are
// append-only; a HeapType is an index into the store and stays valid for the
// store's lifetime.
type TypeStore struct {
	defs     []heapTypeDef
	abstract Abstract
}

// NewTypeStore constructs a store seeded with the abstract heap types.
func NewTypeStore() *TypeStore {
	s := &TypeStore{defs: make([]heapTypeDef, 0, 16)}
	s.defs = append(s.defs, heapTypeDef{Kind: HeapKindInvalid}) // reserve 0 as invalid sentinel
	s.abstract.Func = s.addRaw(heapTypeDef{Kind: HeapKindBasic})
	s.abstract.Extern = s.addRaw(heapTypeDef{Kind: HeapKindBasic})
	s.abstract.Any = s.addRaw(heapTypeDef{Kind: HeapKindBasic})
	s.abstract.Eq = s.addRaw(heapTypeDef{Kind: HeapKindBasic})
	s.abstract.I31 = s.addRaw(heapTypeDef{Kind: HeapKindBasic})
	return s
}

// Abstract returns HeapTypes for the built-in abstract heap types.
func (s *TypeStore) Abstract() Abstract {
	return s.abstract
}

func (s *TypeStore) addRaw(def heapTypeDef) HeapType {
	lenDefs, err := safecast.Conv[uint32](len(s.defs))
	if err != nil {
		panic(fmt.Errorf("len(defs) overflow: %w", err))
	}
	id := HeapType(lenDefs)
	s.defs = append(s.defs, def)
	return id
}

// AddSignature appends a signature heap type definition.
func (s *TypeStore) AddSignature(sig Signature) HeapType {
	return s.addRaw(heapTypeDef{Kind: HeapKindSignature, Sig: sig})
}

// AddStruct appends a struct heap type definition.
func (s *TypeStore) AddStruct(def StructDef) HeapType {
	return s.addRaw(heapTypeDef{Kind: HeapKindStruct, Struct: def})
}

// AddArray appends an array heap type definition.
func (s *TypeStore) AddArray(def ArrayDef) HeapType {
	return s.addRaw(heapTypeDef{Kind: HeapKindArray, Array: def})
}

// Len reports the number of slots in the store, including the invalid
// sentinel and the abstract seeds.
func (s *TypeStore) Len() int {
	return len(s.defs)
}

func (s *TypeStore) def(h HeapType) (heapTypeDef, bool) {
	if h == NoHeapType || int(h) >= len(s.defs) {
		return heapTypeDef{}, false
	}
	return s.defs[h], true
}

// Kind returns the kind of a heap type, HeapKindInvalid for out-of-range or
// not-yet-defined slots.
func (s *TypeStore) Kind(h HeapType) HeapTypeKind {
	def, ok := s.def(h)
	if !ok {
		return HeapKindInvalid
	}
	return def.Kind
}

// Signature returns the definition of a signature heap type.
func (s *TypeStore) Signature(h HeapType) (Signature, bool) {
	def, ok := s.def(h)
	if !ok || def.Kind != HeapKindSignature {
		return Signature{}, false
	}
	return def.Sig, true
}

// Struct returns the definition of a struct heap type.
func (s *TypeStore) Struct(h HeapType) (StructDef, bool) {
	def, ok := s.def(h)
	if !ok || def.Kind != HeapKindStruct {
		return StructDef{}, false
	}
	return def.Struct, true
}

// Array returns the definition of an array heap type.
func (s *TypeStore) Array(h HeapType) (ArrayDef, bool) {
	def, ok := s.def(h)
	if !ok || def.Kind != HeapKindArray {
		return ArrayDef{}, false
	}
	return def.Array, true
}

// IsBasic reports whether h is one of the abstract heap types.
func (s *TypeStore) IsBasic(h HeapType) bool {
	return s.Kind(h) == HeapKindBasic
}

// IsFunction reports whether h is a signature heap type.
func (s *TypeStore) IsFunction(h HeapType) bool {
	return s.Kind(h) == HeapKindSignature
}

// IsData reports whether h is a struct or array heap type.
func (s *TypeStore) IsData(h HeapType) bool {
	k := s.Kind(h)
	return k == HeapKindStruct || k == HeapKindArray
}

// IsFuncRef reports whether t is a reference to a signature heap type.
func (s *TypeStore) IsFuncRef(t Type) bool {
	return t.Kind == TypeRef && s.IsFunction(t.Heap)
}

// Defined returns every signature/struct/array heap type in the store, in
// definition order.
func (s *TypeStore) Defined() []HeapType {
	var out []HeapType
	for i := range s.defs {
		switch s.defs[i].Kind {
		case HeapKindSignature, HeapKindStruct, HeapKindArray:
			id, err := safecast.Conv[uint32](i)
			if err != nil {
				panic(fmt.Errorf("heap type index overflow: %w", err))
			}
			out = append(out, HeapType(id))
		}
	}
	return out
}
