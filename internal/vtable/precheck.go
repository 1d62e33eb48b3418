package vtable

import (
	"errors"
	"fmt"

	"vtlower/internal/wasm"
)

// Precheck reports every detectable violation of the assumptions Run relies
// on: a function-reference struct field written outside of construction, a
// construction operand for such a field that is not a constant ref.func, and
// an array whose element type is a function reference (arrays are out of
// contract for the lowering and would come through as plain references).
// Run itself never performs these checks.
func Precheck(m *wasm.Module) error {
	var errs []error
	store := m.Types

	for _, h := range store.Defined() {
		def, ok := store.Array(h)
		if ok && store.IsFuncRef(def.Element.Type) {
			errs = append(errs, fmt.Errorf("array type %d has function-reference elements", h))
		}
	}

	check := func(owner string, root *wasm.Expr) {
		wasm.Walk(root, func(e *wasm.Expr) {
			switch e.Kind {
			case wasm.ExprStructNew:
				def, ok := store.Struct(e.StructNew.Heap)
				if !ok {
					return
				}
				for i, op := range e.StructNew.Operands {
					if i >= len(def.Fields) {
						break
					}
					if op == nil {
						continue
					}
					if store.IsFuncRef(def.Fields[i].Type) && op.Kind != wasm.ExprRefFunc {
						errs = append(errs, fmt.Errorf(
							"%s: struct.new of type %d writes field %d with %s, want a constant ref.func",
							owner, e.StructNew.Heap, i, op.Kind))
					}
				}
			case wasm.ExprStructSet:
				ref := e.StructSet.Ref
				if ref == nil || ref.Type.Kind != wasm.TypeRef {
					return
				}
				def, ok := store.Struct(ref.Type.Heap)
				if !ok || int(e.StructSet.Index) >= len(def.Fields) {
					return
				}
				if store.IsFuncRef(def.Fields[e.StructSet.Index].Type) {
					errs = append(errs, fmt.Errorf(
						"%s: struct.set writes function-reference field %d of type %d outside construction",
						owner, e.StructSet.Index, ref.Type.Heap))
				}
			}
		})
	}

	for _, f := range m.Funcs {
		if f != nil {
			check("function "+f.Name, f.Body)
		}
	}
	for _, g := range m.Globals {
		if g != nil {
			check("global "+g.Name, g.Init)
		}
	}
	for _, s := range m.ElementSegments {
		if s != nil {
			check("element segment "+s.Name, s.Offset)
		}
	}

	return errors.Join(errs...)
}
