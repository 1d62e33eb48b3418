package wasm

import "fmt"

// VisitChildren calls f on every direct child of e. The switch is closed
// over all expression kinds: adding a kind without extending it is a bug
// caught by the default case.
func VisitChildren(e *Expr, f func(*Expr)) {
	visit := func(c *Expr) {
		if c != nil {
			f(c)
		}
	}
	switch e.Kind {
	case ExprNop, ExprUnreachable, ExprConst, ExprLocalGet, ExprGlobalGet,
		ExprRefNull, ExprRefFunc, ExprRttCanon:
		// no children
	case ExprLocalSet:
		visit(e.LocalSet.Value)
	case ExprGlobalSet:
		visit(e.GlobalSet.Value)
	case ExprBlock:
		for _, c := range e.Block.List {
			visit(c)
		}
	case ExprIf:
		visit(e.If.Cond)
		visit(e.If.Then)
		visit(e.If.Else)
	case ExprBreak:
		visit(e.Break.Cond)
		visit(e.Break.Value)
	case ExprCall:
		for _, c := range e.Call.Args {
			visit(c)
		}
	case ExprCallIndirect:
		for _, c := range e.CallIndirect.Args {
			visit(c)
		}
		visit(e.CallIndirect.Target)
	case ExprReturn:
		visit(e.Return.Value)
	case ExprDrop:
		visit(e.Drop.Value)
	case ExprSelect:
		visit(e.Select.IfTrue)
		visit(e.Select.IfFalse)
		visit(e.Select.Cond)
	case ExprRefCast:
		visit(e.RefCast.Ref)
	case ExprStructNew:
		for _, c := range e.StructNew.Operands {
			visit(c)
		}
		visit(e.StructNew.Rtt)
	case ExprStructGet:
		visit(e.StructGet.Ref)
	case ExprStructSet:
		visit(e.StructSet.Ref)
		visit(e.StructSet.Value)
	case ExprArrayNew:
		visit(e.ArrayNew.Init)
		visit(e.ArrayNew.Size)
		visit(e.ArrayNew.Rtt)
	case ExprArrayGet:
		visit(e.ArrayGet.Ref)
		visit(e.ArrayGet.Index)
	case ExprArraySet:
		visit(e.ArraySet.Ref)
		visit(e.ArraySet.Index)
		visit(e.ArraySet.Value)
	case ExprArrayLen:
		visit(e.ArrayLen.Ref)
	default:
		panic(fmt.Errorf("wasm: unknown expression kind %d", e.Kind))
	}
}

// Walk visits e and every transitive child in post order.
func Walk(e *Expr, f func(*Expr)) {
	if e == nil || f == nil {
		return
	}
	VisitChildren(e, func(c *Expr) {
		Walk(c, f)
	})
	f(e)
}

// TypeAttrs calls the given callbacks on pointers to every type-bearing,
// heap-type-bearing, and signature-bearing attribute of e, excluding the
// node's own result type. Operand links, indices, literals, and names do not
// participate. The switch is closed over all kinds so that a new expression
// kind forces an explicit decision about which of its attributes carry types.
func TypeAttrs(e *Expr, ty func(*Type), ht func(*HeapType), sig func(*Signature)) {
	switch e.Kind {
	case ExprNop, ExprUnreachable, ExprConst, ExprLocalGet, ExprLocalSet,
		ExprGlobalGet, ExprGlobalSet, ExprBlock, ExprIf, ExprBreak, ExprCall,
		ExprReturn, ExprDrop, ExprRefFunc, ExprRttCanon,
		ExprStructGet, ExprStructSet, ExprArrayGet, ExprArraySet, ExprArrayLen:
		// result type only
	case ExprSelect:
		ty(&e.Select.Declared)
	case ExprCallIndirect:
		sig(&e.CallIndirect.Sig)
	case ExprRefNull:
		ht(&e.RefNull.Heap)
	case ExprRefCast:
		ht(&e.RefCast.Heap)
	case ExprStructNew:
		ht(&e.StructNew.Heap)
	case ExprArrayNew:
		ht(&e.ArrayNew.Heap)
	default:
		panic(fmt.Errorf("wasm: unknown expression kind %d", e.Kind))
	}
}
