package vtable

import (
	"context"
	"testing"

	"vtlower/internal/wasm"
)

// fixture is a module with one vtable-shaped struct: S1 holds a reference to
// function signature F1 (plus a plain i64 field), S2 holds a reference to
// S1. Bodies read both fields, a global and an element segment carry the
// types, and all three heap types are named.
type fixture struct {
	m          *wasm.Module
	f1, s1, s2 wasm.HeapType

	getS1     *wasm.Expr // struct.get of S1 field 0, typed (ref F1)
	getS2     *wasm.Expr // struct.get of S2 field 0, typed (ref null S1)
	structNew *wasm.Expr // struct.new of S1 with a ref.func operand
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := wasm.NewModule()

	f1 := m.Types.AddSignature(wasm.Signature{Params: wasm.I32, Results: wasm.I32})
	s1 := m.Types.AddStruct(wasm.StructDef{Fields: []wasm.Field{
		{Type: wasm.MakeRef(f1, false), Mutable: true},
		{Type: wasm.I64},
	}})
	s2 := m.Types.AddStruct(wasm.StructDef{Fields: []wasm.Field{
		{Type: wasm.MakeRef(s1, true)},
	}})
	m.TypeNames[f1] = "f1"
	m.TypeNames[s1] = "s1"
	m.TypeNames[s2] = "s2"

	sigVoid := m.Types.AddSignature(wasm.Signature{})

	m.Funcs = append(m.Funcs, &wasm.Func{
		Name:   "target",
		Type:   f1,
		Locals: []wasm.Type{wasm.I32},
		Body:   &wasm.Expr{Kind: wasm.ExprLocalGet, Type: wasm.I32},
	})

	structNew := &wasm.Expr{
		Kind: wasm.ExprStructNew,
		Type: wasm.MakeRef(s1, false),
		StructNew: wasm.StructNewExpr{
			Heap: s1,
			Operands: []*wasm.Expr{
				{Kind: wasm.ExprRefFunc, Type: wasm.MakeRef(f1, false), RefFunc: wasm.RefFuncExpr{Func: "target"}},
				{Kind: wasm.ExprConst, Type: wasm.I64},
			},
		},
	}
	m.Funcs = append(m.Funcs, &wasm.Func{
		Name: "make",
		Type: sigVoid,
		Body: &wasm.Expr{Kind: wasm.ExprDrop, Drop: wasm.DropExpr{Value: structNew}},
	})

	getS1 := &wasm.Expr{
		Kind: wasm.ExprStructGet,
		Type: wasm.MakeRef(f1, false),
		StructGet: wasm.StructGetExpr{
			Ref:   &wasm.Expr{Kind: wasm.ExprLocalGet, Type: wasm.MakeRef(s1, false)},
			Index: 0,
		},
	}
	getS2 := &wasm.Expr{
		Kind: wasm.ExprStructGet,
		Type: wasm.MakeRef(s1, true),
		StructGet: wasm.StructGetExpr{
			Ref:   &wasm.Expr{Kind: wasm.ExprLocalGet, Type: wasm.MakeRef(s2, false), LocalGet: wasm.LocalGetExpr{Index: 1}},
			Index: 0,
		},
	}
	m.Funcs = append(m.Funcs, &wasm.Func{
		Name:   "reads",
		Type:   sigVoid,
		Locals: []wasm.Type{wasm.MakeRef(s1, false), wasm.MakeRef(s2, false)},
		Body: &wasm.Expr{Kind: wasm.ExprBlock, Block: wasm.BlockExpr{List: []*wasm.Expr{
			{Kind: wasm.ExprDrop, Drop: wasm.DropExpr{Value: getS1}},
			{Kind: wasm.ExprDrop, Drop: wasm.DropExpr{Value: getS2}},
		}}},
	})

	m.Globals = append(m.Globals, &wasm.Global{
		Name: "gv",
		Type: wasm.MakeRef(s1, true),
		Init: &wasm.Expr{Kind: wasm.ExprRefNull, Type: wasm.MakeRef(s1, true), RefNull: wasm.RefNullExpr{Heap: s1}},
	})
	m.Tables = append(m.Tables, &wasm.Table{
		Name: "t0",
		Type: wasm.MakeRef(m.Types.Abstract().Func, true),
	})
	m.ElementSegments = append(m.ElementSegments, &wasm.ElementSegment{
		Name:   "e0",
		Table:  "t0",
		Type:   wasm.MakeRef(f1, true),
		Offset: &wasm.Expr{Kind: wasm.ExprConst, Type: wasm.I32},
		Funcs:  []string{"target"},
	})

	return &fixture{m: m, f1: f1, s1: s1, s2: s2, getS1: getS1, getS2: getS2, structNew: structNew}
}

func TestMappingTotality(t *testing.T) {
	fx := newFixture(t)
	old, _ := wasm.CollectHeapTypes(fx.m)

	mapping := rewriteTypeGraph(fx.m)
	if len(mapping) != len(old) {
		t.Fatalf("mapping has %d entries, want %d", len(mapping), len(old))
	}
	for _, h := range old {
		mapped, ok := mapping[h]
		if !ok {
			t.Fatalf("heap type %d missing from mapping", h)
		}
		if mapped == h {
			t.Fatalf("heap type %d mapped to itself", h)
		}
		if fx.m.Types.Kind(mapped) != fx.m.Types.Kind(h) {
			t.Fatalf("heap type %d changed kind: %s -> %s", h, fx.m.Types.Kind(h), fx.m.Types.Kind(mapped))
		}
	}
}

func TestShapePreservation(t *testing.T) {
	fx := newFixture(t)
	store := fx.m.Types
	mapping := rewriteTypeGraph(fx.m)

	newS1, _ := store.Struct(mapping[fx.s1])
	if len(newS1.Fields) != 2 {
		t.Fatalf("S1' has %d fields, want 2", len(newS1.Fields))
	}
	if !newS1.Fields[0].Type.Equal(wasm.I32) {
		t.Fatalf("S1' field 0 is %+v, want i32", newS1.Fields[0].Type)
	}
	if !newS1.Fields[0].Mutable {
		t.Fatalf("S1' field 0 lost mutability")
	}
	if !newS1.Fields[1].Type.Equal(wasm.I64) {
		t.Fatalf("S1' field 1 is %+v, want i64", newS1.Fields[1].Type)
	}

	newS2, _ := store.Struct(mapping[fx.s2])
	want := wasm.MakeRef(mapping[fx.s1], true)
	if !newS2.Fields[0].Type.Equal(want) {
		t.Fatalf("S2' field 0 is %+v, want %+v", newS2.Fields[0].Type, want)
	}

	newF1, _ := store.Signature(mapping[fx.f1])
	if !newF1.Params.Equal(wasm.I32) || !newF1.Results.Equal(wasm.I32) {
		t.Fatalf("F1' signature changed: %+v", newF1)
	}
}

func TestCyclePreservation(t *testing.T) {
	m := wasm.NewModule()
	b := wasm.NewTypeBuilder(m.Types, 1)
	node := b.Temp(0)
	b.SetStruct(0, wasm.StructDef{Fields: []wasm.Field{{Type: wasm.MakeRef(node, true)}}})
	if _, err := b.Build(); err != nil {
		t.Fatalf("fixture build: %v", err)
	}
	sig := m.Types.AddSignature(wasm.Signature{Params: wasm.MakeRef(node, false)})
	m.Funcs = append(m.Funcs, &wasm.Func{Name: "f", Type: sig})

	mapping := rewriteTypeGraph(m)
	newNode := mapping[node]
	def, ok := m.Types.Struct(newNode)
	if !ok {
		t.Fatalf("mapped node is not a struct")
	}
	if def.Fields[0].Type.Heap != newNode {
		t.Fatalf("self-reference broken: field points at %d, want %d", def.Fields[0].Type.Heap, newNode)
	}
}

func TestRunReadSiteConsistency(t *testing.T) {
	fx := newFixture(t)
	if err := Run(context.Background(), fx.m, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !fx.getS1.Type.Equal(wasm.I32) {
		t.Fatalf("read of lowered field has type %+v, want i32", fx.getS1.Type)
	}

	// The S2 read still yields a reference, now to the mapped S1.
	newS1 := fx.m.Globals[0].Type.Heap
	want := wasm.MakeRef(newS1, true)
	if !fx.getS2.Type.Equal(want) {
		t.Fatalf("read of non-function field has type %+v, want %+v", fx.getS2.Type, want)
	}
}

func TestRunSerialWorkerCap(t *testing.T) {
	fx := newFixture(t)
	if err := Run(context.Background(), fx.m, 1); err != nil {
		t.Fatalf("run with one worker: %v", err)
	}

	// A capped worker pool changes scheduling only; every function body is
	// still rewritten.
	if !fx.getS1.Type.Equal(wasm.I32) {
		t.Fatalf("read of lowered field has type %+v, want i32", fx.getS1.Type)
	}
	if err := wasm.Validate(fx.m); err != nil {
		t.Fatalf("lowered module invalid: %v", err)
	}
}

func TestRunCarrierConsistency(t *testing.T) {
	fx := newFixture(t)
	old, _ := wasm.CollectHeapTypes(fx.m)
	oldSet := make(map[wasm.HeapType]bool, len(old))
	for _, h := range old {
		oldSet[h] = true
	}

	if err := Run(context.Background(), fx.m, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, f := range fx.m.Funcs {
		if oldSet[f.Type] {
			t.Fatalf("function %s still declares old heap type %d", f.Name, f.Type)
		}
		for i, l := range f.Locals {
			if l.Kind == wasm.TypeRef && oldSet[l.Heap] {
				t.Fatalf("function %s local %d still uses old heap type %d", f.Name, i, l.Heap)
			}
		}
	}
	if g := fx.m.Globals[0]; oldSet[g.Type.Heap] {
		t.Fatalf("global still uses old heap type %d", g.Type.Heap)
	}
	if s := fx.m.ElementSegments[0]; oldSet[s.Type.Heap] {
		t.Fatalf("element segment still uses old heap type %d", s.Type.Heap)
	}
	// The funcref table referenced only an abstract heap type and must be
	// untouched.
	if got := fx.m.Tables[0].Type; !got.Equal(wasm.MakeRef(fx.m.Types.Abstract().Func, true)) {
		t.Fatalf("abstract table type changed: %+v", got)
	}

	if err := wasm.Validate(fx.m); err != nil {
		t.Fatalf("lowered module invalid: %v", err)
	}
}

func TestRunNamePreservation(t *testing.T) {
	fx := newFixture(t)
	if err := Run(context.Background(), fx.m, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	newS1 := fx.m.Globals[0].Type.Heap
	if got := fx.m.TypeNames[newS1]; got != "s1" {
		t.Fatalf("mapped S1 named %q, want %q", got, "s1")
	}
	// Old entries are kept, only the new keys are added.
	if got := fx.m.TypeNames[fx.s1]; got != "s1" {
		t.Fatalf("old S1 name entry removed: %q", got)
	}
}

func TestRunLeavesConstructionOperands(t *testing.T) {
	fx := newFixture(t)
	if err := Run(context.Background(), fx.m, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Value rewriting is the dispatch-table builder's job; the core pass
	// only touches types.
	op := fx.structNew.StructNew.Operands[0]
	if op.Kind != wasm.ExprRefFunc {
		t.Fatalf("construction operand rewritten to %s by the type pass", op.Kind)
	}
	if !fx.m.Types.IsFuncRef(op.Type) {
		t.Fatalf("ref.func operand type is %+v, want a function reference", op.Type)
	}
}

func TestRunNoopModuleIsIsomorphic(t *testing.T) {
	m := wasm.NewModule()
	other := m.Types.AddStruct(wasm.StructDef{Fields: []wasm.Field{{Type: wasm.F64}}})
	pair := m.Types.AddStruct(wasm.StructDef{Fields: []wasm.Field{
		{Type: wasm.I32},
		{Type: wasm.MakeRef(other, true), Mutable: true},
	}})
	sig := m.Types.AddSignature(wasm.Signature{Params: wasm.MakeRef(pair, false), Results: wasm.I32})

	get := &wasm.Expr{
		Kind: wasm.ExprStructGet,
		Type: wasm.I32,
		StructGet: wasm.StructGetExpr{
			Ref: &wasm.Expr{Kind: wasm.ExprLocalGet, Type: wasm.MakeRef(pair, false)},
		},
	}
	m.Funcs = append(m.Funcs, &wasm.Func{
		Name:   "f",
		Type:   sig,
		Locals: []wasm.Type{wasm.MakeRef(pair, false)},
		Body:   get,
	})

	if err := Run(context.Background(), m, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	newPairID := m.Funcs[0].Locals[0].Heap
	newPair, ok := m.Types.Struct(newPairID)
	if !ok {
		t.Fatalf("mapped pair is not a struct")
	}
	if !newPair.Fields[0].Type.Equal(wasm.I32) {
		t.Fatalf("pair field 0 changed: %+v", newPair.Fields[0].Type)
	}
	f1 := newPair.Fields[1]
	if f1.Type.Kind != wasm.TypeRef || !f1.Type.Nullable || !f1.Mutable {
		t.Fatalf("pair field 1 not an isomorphic copy: %+v", f1)
	}
	if !get.Type.Equal(wasm.I32) {
		t.Fatalf("i32 struct read changed type: %+v", get.Type)
	}
	if err := wasm.Validate(m); err != nil {
		t.Fatalf("lowered module invalid: %v", err)
	}
}
