package wasm

import (
	"errors"
	"fmt"
)

// TypeBuilder is a single construction session for a batch of possibly
// mutually recursive heap types. All slots are reserved in the store up
// front, so Temp can hand out the final HeapType of slot i before slot i is
// defined; that is what lets a definition reference another slot that will
// only be filled in later. Build finalizes the whole batch at once.
//
// A builder must not be shared between goroutines.
type TypeBuilder struct {
	store   *TypeStore
	slots   []HeapType
	defined []bool
}

// NewTypeBuilder reserves n heap type slots in the store and returns the
// session that will define them.
func NewTypeBuilder(store *TypeStore, n int) *TypeBuilder {
	b := &TypeBuilder{
		store:   store,
		slots:   make([]HeapType, n),
		defined: make([]bool, n),
	}
	for i := range b.slots {
		b.slots[i] = store.addRaw(heapTypeDef{Kind: HeapKindInvalid})
	}
	return b
}

// Size reports the number of slots in the session.
func (b *TypeBuilder) Size() int {
	return len(b.slots)
}

// Temp returns the heap type that slot i will resolve to. Valid to call
// before the slot is defined.
func (b *TypeBuilder) Temp(i int) HeapType {
	b.check(i)
	return b.slots[i]
}

func (b *TypeBuilder) check(i int) {
	if i < 0 || i >= len(b.slots) {
		panic(fmt.Errorf("type builder: slot %d out of range [0,%d)", i, len(b.slots)))
	}
}

func (b *TypeBuilder) set(i int, def heapTypeDef) {
	b.check(i)
	if b.defined[i] {
		panic(fmt.Errorf("type builder: slot %d defined twice", i))
	}
	b.store.defs[b.slots[i]] = def
	b.defined[i] = true
}

// SetSignature defines slot i as a signature heap type.
func (b *TypeBuilder) SetSignature(i int, sig Signature) {
	b.set(i, heapTypeDef{Kind: HeapKindSignature, Sig: sig})
}

// SetStruct defines slot i as a struct heap type.
func (b *TypeBuilder) SetStruct(i int, def StructDef) {
	b.set(i, heapTypeDef{Kind: HeapKindStruct, Struct: def})
}

// SetArray defines slot i as an array heap type.
func (b *TypeBuilder) SetArray(i int, def ArrayDef) {
	b.set(i, heapTypeDef{Kind: HeapKindArray, Array: def})
}

// Build finalizes the session and returns the heap types in slot order. It
// fails if any slot was left undefined; a failed batch stays invalid in the
// store and must not be referenced.
func (b *TypeBuilder) Build() ([]HeapType, error) {
	var errs []error
	for i, ok := range b.defined {
		if !ok {
			errs = append(errs, fmt.Errorf("type builder: slot %d left undefined", i))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	out := make([]HeapType, len(b.slots))
	copy(out, b.slots)
	return out, nil
}
