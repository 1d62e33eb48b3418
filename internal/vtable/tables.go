package vtable

import (
	"fmt"

	"fortio.org/safecast"

	"vtlower/internal/wasm"
)

// FieldTable is the dispatch table created for one lowered struct field:
// the functions ever stored in that field, in index order.
type FieldTable struct {
	Heap  wasm.HeapType
	Field uint32
	Table string
	Funcs []string

	index map[string]int
}

// DispatchTables is the result of BuildDispatchTables: one table per
// (struct type, field) that had a constant function reference written at a
// construction site.
type DispatchTables struct {
	Fields []*FieldTable

	byKey map[fieldKey]*FieldTable
}

type fieldKey struct {
	heap  wasm.HeapType
	field uint32
}

// Lookup returns the table for a struct field, nil if the field has none.
func (d *DispatchTables) Lookup(heap wasm.HeapType, field uint32) *FieldTable {
	return d.byKey[fieldKey{heap: heap, field: field}]
}

// BuildDispatchTables completes the lowering started by Run. For every
// struct-construction operand that is still a constant function reference
// feeding an i32 field, it appends the function to that field's table
// (created on first use, with a backing element segment) and replaces the
// operand with the function's i32 index in the table. Must run after Run;
// on a module that Run has not processed there are no i32 fields fed by
// ref.func operands, so it does nothing.
func BuildDispatchTables(m *wasm.Module) *DispatchTables {
	d := &DispatchTables{byKey: make(map[fieldKey]*FieldTable)}

	rewrite := func(root *wasm.Expr) {
		wasm.Walk(root, func(e *wasm.Expr) {
			if e.Kind != wasm.ExprStructNew {
				return
			}
			def, ok := m.Types.Struct(e.StructNew.Heap)
			if !ok {
				return
			}
			for i, op := range e.StructNew.Operands {
				if i >= len(def.Fields) {
					break
				}
				if op == nil || op.Kind != wasm.ExprRefFunc || !def.Fields[i].Type.Equal(wasm.I32) {
					continue
				}
				fieldIndex, err := safecast.Conv[uint32](i)
				if err != nil {
					panic(fmt.Errorf("field index overflow: %w", err))
				}
				ft := d.table(m, e.StructNew.Heap, fieldIndex)
				slot := ft.add(op.RefFunc.Func)
				e.StructNew.Operands[i] = &wasm.Expr{
					Kind:  wasm.ExprConst,
					Type:  wasm.I32,
					Const: wasm.ConstExpr{I64: int64(slot)},
				}
			}
		})
	}

	for _, f := range m.Funcs {
		if f != nil {
			rewrite(f.Body)
		}
	}
	for _, g := range m.Globals {
		if g != nil {
			rewrite(g.Init)
		}
	}
	for _, s := range m.ElementSegments {
		if s != nil {
			rewrite(s.Offset)
		}
	}

	d.emit(m)
	return d
}

func (d *DispatchTables) table(m *wasm.Module, heap wasm.HeapType, field uint32) *FieldTable {
	key := fieldKey{heap: heap, field: field}
	if ft, ok := d.byKey[key]; ok {
		return ft
	}
	name := m.TypeNames[heap]
	if name == "" {
		name = fmt.Sprintf("t%d", heap)
	}
	ft := &FieldTable{
		Heap:  heap,
		Field: field,
		Table: fmt.Sprintf("vtable$%s$%d", name, field),
		index: make(map[string]int),
	}
	d.byKey[key] = ft
	d.Fields = append(d.Fields, ft)
	return ft
}

// add returns the index of fn in the table, appending it on first use.
func (ft *FieldTable) add(fn string) int {
	if slot, ok := ft.index[fn]; ok {
		return slot
	}
	slot := len(ft.Funcs)
	ft.Funcs = append(ft.Funcs, fn)
	ft.index[fn] = slot
	return slot
}

// emit appends a module table and element segment per field table.
func (d *DispatchTables) emit(m *wasm.Module) {
	funcRef := wasm.MakeRef(m.Types.Abstract().Func, true)
	for _, ft := range d.Fields {
		size, err := safecast.Conv[uint32](len(ft.Funcs))
		if err != nil {
			panic(fmt.Errorf("table size overflow: %w", err))
		}
		m.Tables = append(m.Tables, &wasm.Table{
			Name:    ft.Table,
			Type:    elemType(m, ft, funcRef),
			Initial: size,
			Max:     size,
		})
		m.ElementSegments = append(m.ElementSegments, &wasm.ElementSegment{
			Name:   ft.Table + "$elem",
			Table:  ft.Table,
			Type:   elemType(m, ft, funcRef),
			Offset: &wasm.Expr{Kind: wasm.ExprConst, Type: wasm.I32},
			Funcs:  append([]string(nil), ft.Funcs...),
		})
	}
}

// elemType picks the most specific reference type the table can declare:
// the shared signature of its functions when they agree, funcref otherwise.
func elemType(m *wasm.Module, ft *FieldTable, funcRef wasm.Type) wasm.Type {
	var sig wasm.HeapType
	for i, name := range ft.Funcs {
		fn := m.FuncByName(name)
		if fn == nil {
			return funcRef
		}
		if i == 0 {
			sig = fn.Type
			continue
		}
		if fn.Type != sig {
			return funcRef
		}
	}
	if sig == wasm.NoHeapType {
		return funcRef
	}
	return wasm.MakeRef(sig, false)
}
