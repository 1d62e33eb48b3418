package wasm

import "testing"

func TestWalkPostOrder(t *testing.T) {
	leaf := &Expr{Kind: ExprConst, Type: I32}
	drop := &Expr{Kind: ExprDrop, Drop: DropExpr{Value: leaf}}
	root := &Expr{Kind: ExprBlock, Block: BlockExpr{List: []*Expr{drop, {Kind: ExprNop}}}}

	var order []ExprKind
	Walk(root, func(e *Expr) {
		order = append(order, e.Kind)
	})

	want := []ExprKind{ExprConst, ExprDrop, ExprNop, ExprBlock}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}
}

func TestWalkNilSafe(t *testing.T) {
	Walk(nil, func(e *Expr) { t.Fatalf("callback on nil root") })
	// If with no else branch must not visit a nil child.
	root := &Expr{Kind: ExprIf, If: IfExpr{Cond: &Expr{Kind: ExprConst, Type: I32}, Then: &Expr{Kind: ExprNop}}}
	count := 0
	Walk(root, func(e *Expr) {
		if e == nil {
			t.Fatalf("visited nil expression")
		}
		count++
	})
	if count != 3 {
		t.Fatalf("visited %d nodes, want 3", count)
	}
}

func TestTypeAttrsPointersAreLive(t *testing.T) {
	s := NewTypeStore()
	sig := s.AddSignature(Signature{Params: I32})
	st := s.AddStruct(StructDef{})

	e := &Expr{
		Kind:         ExprCallIndirect,
		CallIndirect: CallIndirectExpr{Sig: Signature{Params: MakeRef(st, false)}},
	}
	TypeAttrs(e,
		func(ty *Type) {},
		func(ht *HeapType) {},
		func(sg *Signature) { sg.Params = MakeRef(sig, true) },
	)
	if e.CallIndirect.Sig.Params.Heap != sig {
		t.Fatalf("signature attribute not written through pointer")
	}

	n := &Expr{Kind: ExprStructNew, StructNew: StructNewExpr{Heap: st}}
	TypeAttrs(n,
		func(ty *Type) {},
		func(ht *HeapType) { *ht = sig },
		func(sg *Signature) {},
	)
	if n.StructNew.Heap != sig {
		t.Fatalf("heap type attribute not written through pointer")
	}
}
