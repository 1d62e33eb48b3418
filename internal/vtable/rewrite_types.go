package vtable

import (
	"fmt"

	"vtlower/internal/wasm"
)

// typeMap is the total old-to-new heap type mapping produced by the type
// graph rewrite.
type typeMap map[wasm.HeapType]wasm.HeapType

// rewriteTypeGraph builds a structurally identical copy of every heap type
// reachable from the module, except that struct fields whose type referenced
// a function signature become i32. The copy is built in one builder session
// so that cycles in the old graph come out as the same cycles in the new one.
func rewriteTypeGraph(m *wasm.Module) typeMap {
	old, typeToIndex := wasm.CollectHeapTypes(m)
	store := m.Types

	builder := wasm.NewTypeBuilder(store, len(old))

	// Map an old type to a new one. References land on the temp handle for
	// the referenced heap type's slot, which is how forward and circular
	// references work before the session is built.
	var mapType func(wasm.Type) wasm.Type
	mapType = func(t wasm.Type) wasm.Type {
		switch t.Kind {
		case wasm.TypeNone, wasm.TypeBasic:
			return t
		case wasm.TypeRef:
			if store.IsBasic(t.Heap) {
				return t
			}
			return wasm.MakeRef(builder.Temp(slotOf(typeToIndex, t.Heap)), t.Nullable)
		case wasm.TypeRtt:
			if store.IsBasic(t.Heap) {
				return t
			}
			return wasm.MakeRtt(t.Depth, builder.Temp(slotOf(typeToIndex, t.Heap)))
		case wasm.TypeTuple:
			elems := make([]wasm.Type, len(t.Tuple))
			for i, e := range t.Tuple {
				elems[i] = mapType(e)
			}
			return wasm.MakeTuple(elems)
		default:
			panic(fmt.Errorf("vtable: bad type kind %s in type graph", t.Kind))
		}
	}

	// Map an old type in struct field position. This is the one place the
	// transformation changes shape: a function reference becomes an i32
	// index.
	mapFieldType := func(t wasm.Type) wasm.Type {
		if store.IsFuncRef(t) {
			return wasm.I32
		}
		return mapType(t)
	}

	for i, h := range old {
		switch store.Kind(h) {
		case wasm.HeapKindSignature:
			sig, _ := store.Signature(h)
			params := sig.Params.Expand()
			results := sig.Results.Expand()
			newParams := make([]wasm.Type, len(params))
			for j, p := range params {
				newParams[j] = mapType(p)
			}
			newResults := make([]wasm.Type, len(results))
			for j, r := range results {
				newResults[j] = mapType(r)
			}
			builder.SetSignature(i, wasm.Signature{
				Params:  wasm.MakeTuple(newParams),
				Results: wasm.MakeTuple(newResults),
			})
		case wasm.HeapKindStruct:
			def, _ := store.Struct(h)
			// Copy fields to keep mutability and packing, then substitute
			// each field's type.
			fields := make([]wasm.Field, len(def.Fields))
			copy(fields, def.Fields)
			for j := range fields {
				fields[j].Type = mapFieldType(fields[j].Type)
			}
			builder.SetStruct(i, wasm.StructDef{Fields: fields})
		case wasm.HeapKindArray:
			def, _ := store.Array(h)
			// Function references are assumed to appear only as struct
			// fields, so array elements take the plain mapping.
			elem := def.Element
			elem.Type = mapType(elem.Type)
			builder.SetArray(i, wasm.ArrayDef{Element: elem})
		default:
			panic(fmt.Errorf("vtable: bad heap type kind %s in type graph", store.Kind(h)))
		}
	}

	built, err := builder.Build()
	if err != nil {
		panic(fmt.Errorf("vtable: type graph finalize: %w", err))
	}

	out := make(typeMap, len(old))
	for i, h := range old {
		out[h] = built[i]
	}
	return out
}

func slotOf(typeToIndex map[wasm.HeapType]int, h wasm.HeapType) int {
	i, ok := typeToIndex[h]
	if !ok {
		panic(fmt.Errorf("vtable: heap type %d escaped enumeration", h))
	}
	return i
}
