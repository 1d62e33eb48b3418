package wasm

import (
	"fmt"
	"io"
	"strings"
)

// DumpModule writes a human-readable representation of a module.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}

	defined := m.Types.Defined()
	fmt.Fprintf(w, "types=%d\n", len(defined))
	for _, h := range defined {
		name := m.TypeNames[h]
		if name == "" {
			name = fmt.Sprintf("t%d", h)
		}
		fmt.Fprintf(w, "  $%s: %s\n", name, heapTypeStr(m, h))
	}

	if len(m.Globals) > 0 {
		fmt.Fprintf(w, "globals=%d\n", len(m.Globals))
		for _, g := range m.Globals {
			if g == nil {
				continue
			}
			flags := ""
			if g.Mutable {
				flags = " mut"
			}
			fmt.Fprintf(w, "  %s:%s %s\n", g.Name, flags, TypeStr(m, g.Type))
		}
	}

	if len(m.Tables) > 0 {
		fmt.Fprintf(w, "tables=%d\n", len(m.Tables))
		for _, t := range m.Tables {
			if t == nil {
				continue
			}
			fmt.Fprintf(w, "  %s: %s [%d..%d]\n", t.Name, TypeStr(m, t.Type), t.Initial, t.Max)
		}
	}

	if len(m.ElementSegments) > 0 {
		fmt.Fprintf(w, "elems=%d\n", len(m.ElementSegments))
		for _, s := range m.ElementSegments {
			if s == nil {
				continue
			}
			fmt.Fprintf(w, "  %s -> %s: %s funcs=%s\n",
				s.Name, s.Table, TypeStr(m, s.Type), strings.Join(s.Funcs, ","))
		}
	}

	fmt.Fprintf(w, "funcs=%d\n", len(m.Funcs))
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", f.Name, heapTypeStr(m, f.Type))
		for i, l := range f.Locals {
			fmt.Fprintf(w, "    local %d: %s\n", i, TypeStr(m, l))
		}
		dumpExpr(w, m, f.Body, 2)
	}
	return nil
}

func dumpExpr(w io.Writer, m *Module, e *Expr, depth int) {
	if e == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	attrs := exprAttrStr(m, e)
	fmt.Fprintf(w, "%s(%s%s) : %s\n", indent, e.Kind, attrs, TypeStr(m, e.Type))
	VisitChildren(e, func(c *Expr) {
		dumpExpr(w, m, c, depth+1)
	})
}

func exprAttrStr(m *Module, e *Expr) string {
	switch e.Kind {
	case ExprConst:
		if e.Type.Kind == TypeBasic && (e.Type.Basic == BasicF32 || e.Type.Basic == BasicF64) {
			return fmt.Sprintf(" %v", e.Const.F64)
		}
		return fmt.Sprintf(" %d", e.Const.I64)
	case ExprLocalGet:
		return fmt.Sprintf(" %d", e.LocalGet.Index)
	case ExprLocalSet:
		return fmt.Sprintf(" %d", e.LocalSet.Index)
	case ExprGlobalGet:
		return " " + e.GlobalGet.Name
	case ExprGlobalSet:
		return " " + e.GlobalSet.Name
	case ExprBlock:
		if e.Block.Name != "" {
			return " $" + e.Block.Name
		}
	case ExprBreak:
		return " $" + e.Break.Target
	case ExprCall:
		return " " + e.Call.Target
	case ExprCallIndirect:
		return " " + e.CallIndirect.Table
	case ExprRefNull:
		return " " + heapTypeName(m, e.RefNull.Heap)
	case ExprRefFunc:
		return " " + e.RefFunc.Func
	case ExprRefCast:
		return " " + heapTypeName(m, e.RefCast.Heap)
	case ExprStructNew:
		return " " + heapTypeName(m, e.StructNew.Heap)
	case ExprStructGet:
		return fmt.Sprintf(" %d", e.StructGet.Index)
	case ExprStructSet:
		return fmt.Sprintf(" %d", e.StructSet.Index)
	case ExprArrayNew:
		return " " + heapTypeName(m, e.ArrayNew.Heap)
	}
	return ""
}

// TypeStr renders a value type, using type names from the module when
// available.
func TypeStr(m *Module, t Type) string {
	switch t.Kind {
	case TypeNone:
		return "none"
	case TypeBasic:
		return t.Basic.String()
	case TypeRef:
		null := ""
		if t.Nullable {
			null = "null "
		}
		return fmt.Sprintf("(ref %s%s)", null, heapTypeName(m, t.Heap))
	case TypeRtt:
		return fmt.Sprintf("(rtt %d %s)", t.Depth, heapTypeName(m, t.Heap))
	case TypeTuple:
		parts := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			parts[i] = TypeStr(m, e)
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("Type(%d)", t.Kind)
	}
}

func heapTypeName(m *Module, h HeapType) string {
	if name, ok := m.TypeNames[h]; ok && name != "" {
		return "$" + name
	}
	a := m.Types.Abstract()
	switch h {
	case a.Func:
		return "func"
	case a.Extern:
		return "extern"
	case a.Any:
		return "any"
	case a.Eq:
		return "eq"
	case a.I31:
		return "i31"
	}
	return fmt.Sprintf("t%d", h)
}

func heapTypeStr(m *Module, h HeapType) string {
	switch m.Types.Kind(h) {
	case HeapKindSignature:
		sig, _ := m.Types.Signature(h)
		return fmt.Sprintf("func %s -> %s", TypeStr(m, sig.Params), TypeStr(m, sig.Results))
	case HeapKindStruct:
		def, _ := m.Types.Struct(h)
		parts := make([]string, len(def.Fields))
		for i := range def.Fields {
			parts[i] = fieldStr(m, def.Fields[i])
		}
		return "struct {" + strings.Join(parts, "; ") + "}"
	case HeapKindArray:
		def, _ := m.Types.Array(h)
		return "array " + fieldStr(m, def.Element)
	case HeapKindBasic:
		return heapTypeName(m, h)
	default:
		return fmt.Sprintf("invalid(%d)", h)
	}
}

func fieldStr(m *Module, f Field) string {
	s := TypeStr(m, f.Type)
	if f.Mutable {
		s = "mut " + s
	}
	switch f.Packed {
	case Pack8:
		s += " packed8"
	case Pack16:
		s += " packed16"
	}
	return s
}
