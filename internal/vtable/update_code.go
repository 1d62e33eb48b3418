package vtable

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"vtlower/internal/wasm"
)

// codeUpdater substitutes the new heap types into every type-bearing
// location of the module. The mapping is read-only here, so function bodies
// can be processed concurrently; top-level carriers are updated after all
// function tasks join.
type codeUpdater struct {
	module  *wasm.Module
	types   *wasm.TypeStore
	mapping typeMap
}

func (u *codeUpdater) run(ctx context.Context, jobs int) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(u.module.Funcs), 1)))

	for _, fn := range u.module.Funcs {
		if fn == nil {
			continue
		}
		fn := fn
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			u.updateFuncBody(fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	u.updateCarriers()
	return nil
}

// updateFuncBody rewrites the locals and every expression of one function.
// No other function's state is touched, which is what makes the per-function
// tasks independent.
func (u *codeUpdater) updateFuncBody(fn *wasm.Func) {
	for i := range fn.Locals {
		fn.Locals[i] = u.updateType(fn.Locals[i])
	}
	wasm.Walk(fn.Body, u.updateExpr)
}

func (u *codeUpdater) updateExpr(e *wasm.Expr) {
	e.Type = u.updateType(e.Type)

	// A read of a field that held a function reference now yields the index
	// stored in that field. The general rule cannot produce this divergence,
	// so it is forced here.
	if e.Kind == wasm.ExprStructGet && u.types.IsFuncRef(e.Type) {
		e.Type = wasm.I32
	}

	wasm.TypeAttrs(e,
		func(t *wasm.Type) { *t = u.updateType(*t) },
		func(h *wasm.HeapType) { *h = u.updateHeapType(*h) },
		func(s *wasm.Signature) { *s = u.updateSignature(*s) },
	)
}

// updateCarriers rewrites the module-level type carriers and copies type
// names across the mapping. Runs single-threaded.
func (u *codeUpdater) updateCarriers() {
	for _, t := range u.module.Tables {
		if t != nil {
			t.Type = u.updateType(t.Type)
		}
	}
	for _, s := range u.module.ElementSegments {
		if s == nil {
			continue
		}
		s.Type = u.updateType(s.Type)
		wasm.Walk(s.Offset, u.updateExpr)
	}
	for _, g := range u.module.Globals {
		if g == nil {
			continue
		}
		g.Type = u.updateType(g.Type)
		wasm.Walk(g.Init, u.updateExpr)
	}
	for _, f := range u.module.Funcs {
		if f != nil {
			f.Type = u.updateHeapType(f.Type)
		}
	}

	for old, name := range collectNames(u.module, u.mapping) {
		u.module.TypeNames[u.mapping[old]] = name
	}
}

// collectNames snapshots the name entries for every mapped old heap type, so
// inserting the new keys does not interleave with iterating TypeNames.
func collectNames(m *wasm.Module, mapping typeMap) map[wasm.HeapType]string {
	out := make(map[wasm.HeapType]string)
	for old := range mapping {
		if name, ok := m.TypeNames[old]; ok {
			out[old] = name
		}
	}
	return out
}

func (u *codeUpdater) updateType(t wasm.Type) wasm.Type {
	switch t.Kind {
	case wasm.TypeRef:
		return wasm.MakeRef(u.updateHeapType(t.Heap), t.Nullable)
	case wasm.TypeRtt:
		return wasm.MakeRtt(t.Depth, u.updateHeapType(t.Heap))
	case wasm.TypeTuple:
		elems := make([]wasm.Type, len(t.Tuple))
		for i, e := range t.Tuple {
			elems[i] = u.updateType(e)
		}
		return wasm.MakeTuple(elems)
	default:
		return t
	}
}

func (u *codeUpdater) updateHeapType(h wasm.HeapType) wasm.HeapType {
	if h == wasm.NoHeapType || u.types.IsBasic(h) {
		return h
	}
	if u.types.IsFunction(h) || u.types.IsData(h) {
		mapped, ok := u.mapping[h]
		if !ok {
			panic(fmt.Errorf("vtable: heap type %d missing from mapping", h))
		}
		return mapped
	}
	return h
}

func (u *codeUpdater) updateSignature(s wasm.Signature) wasm.Signature {
	return wasm.Signature{
		Params:  u.updateType(s.Params),
		Results: u.updateType(s.Results),
	}
}
