package wasm

import "testing"

func TestCollectTransitiveFromFunc(t *testing.T) {
	m := NewModule()
	inner := m.Types.AddStruct(StructDef{Fields: []Field{{Type: I32}}})
	outer := m.Types.AddStruct(StructDef{Fields: []Field{{Type: MakeRef(inner, true)}}})
	sig := m.Types.AddSignature(Signature{Params: MakeRef(outer, false)})

	// Only the signature is mentioned directly; the structs are reachable
	// through it alone.
	m.Funcs = append(m.Funcs, &Func{Name: "f", Type: sig})

	list, index := CollectHeapTypes(m)
	if len(list) != 3 {
		t.Fatalf("collected %d types, want 3: %v", len(list), list)
	}
	for i, h := range list {
		if index[h] != i {
			t.Fatalf("index of %d is %d, want %d", h, index[h], i)
		}
	}
	if list[0] != sig || list[1] != outer || list[2] != inner {
		t.Fatalf("first-visit order wrong: %v", list)
	}
}

func TestCollectFromBodiesAndCarriers(t *testing.T) {
	m := NewModule()
	sig := m.Types.AddSignature(Signature{})
	bodyOnly := m.Types.AddStruct(StructDef{Fields: []Field{{Type: I32}}})
	globalOnly := m.Types.AddArray(ArrayDef{Element: Field{Type: I32}})
	segOnly := m.Types.AddSignature(Signature{Results: I32})

	m.Funcs = append(m.Funcs, &Func{
		Name: "f",
		Type: sig,
		Body: &Expr{
			Kind:      ExprStructNew,
			Type:      MakeRef(bodyOnly, false),
			StructNew: StructNewExpr{Heap: bodyOnly, Operands: []*Expr{{Kind: ExprConst, Type: I32}}},
		},
	})
	m.Globals = append(m.Globals, &Global{Name: "g", Type: MakeRef(globalOnly, true)})
	m.ElementSegments = append(m.ElementSegments, &ElementSegment{Name: "e", Type: MakeRef(segOnly, true)})

	_, index := CollectHeapTypes(m)
	for _, h := range []HeapType{sig, bodyOnly, globalOnly, segOnly} {
		if _, ok := index[h]; !ok {
			t.Fatalf("heap type %d not collected", h)
		}
	}
}

func TestCollectSkipsAbstract(t *testing.T) {
	m := NewModule()
	sig := m.Types.AddSignature(Signature{})
	m.Funcs = append(m.Funcs, &Func{
		Name:   "f",
		Type:   sig,
		Locals: []Type{MakeRef(m.Types.Abstract().Any, true)},
	})

	list, _ := CollectHeapTypes(m)
	if len(list) != 1 || list[0] != sig {
		t.Fatalf("abstract heap types must not be enumerated: %v", list)
	}
}

func TestCollectDeduplicates(t *testing.T) {
	m := NewModule()
	st := m.Types.AddStruct(StructDef{})
	sig := m.Types.AddSignature(Signature{Params: MakeRef(st, false), Results: MakeRef(st, true)})
	m.Funcs = append(m.Funcs, &Func{Name: "a", Type: sig})
	m.Funcs = append(m.Funcs, &Func{Name: "b", Type: sig})

	list, _ := CollectHeapTypes(m)
	if len(list) != 2 {
		t.Fatalf("collected %v, want exactly [sig struct]", list)
	}
}
