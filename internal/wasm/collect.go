package wasm

// CollectHeapTypes enumerates every signature, struct, and array heap type
// referenced, transitively, by the program: function declared types, locals,
// every type-bearing attribute in every body, top-level carriers, and the
// heap types reachable from those types' own definitions. The result is
// deduplicated, in first-visit order; the map assigns each heap type its
// stable index into the slice.
func CollectHeapTypes(m *Module) ([]HeapType, map[HeapType]int) {
	c := &heapTypeCollector{
		store: m.Types,
		index: make(map[HeapType]int),
	}

	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		c.note(f.Type)
		for _, l := range f.Locals {
			c.noteType(l)
		}
		c.noteExprs(f.Body)
	}
	for _, g := range m.Globals {
		if g == nil {
			continue
		}
		c.noteType(g.Type)
		c.noteExprs(g.Init)
	}
	for _, t := range m.Tables {
		if t != nil {
			c.noteType(t.Type)
		}
	}
	for _, s := range m.ElementSegments {
		if s == nil {
			continue
		}
		c.noteType(s.Type)
		c.noteExprs(s.Offset)
	}

	return c.list, c.index
}

type heapTypeCollector struct {
	store *TypeStore
	list  []HeapType
	index map[HeapType]int
}

func (c *heapTypeCollector) note(h HeapType) {
	if h == NoHeapType || c.store.IsBasic(h) {
		return
	}
	if _, ok := c.index[h]; ok {
		return
	}
	c.index[h] = len(c.list)
	c.list = append(c.list, h)

	// Expand through the definition so that types only mentioned by other
	// types are still enumerated.
	switch c.store.Kind(h) {
	case HeapKindSignature:
		sig, _ := c.store.Signature(h)
		c.noteType(sig.Params)
		c.noteType(sig.Results)
	case HeapKindStruct:
		def, _ := c.store.Struct(h)
		for i := range def.Fields {
			c.noteType(def.Fields[i].Type)
		}
	case HeapKindArray:
		def, _ := c.store.Array(h)
		c.noteType(def.Element.Type)
	}
}

func (c *heapTypeCollector) noteType(t Type) {
	switch t.Kind {
	case TypeRef, TypeRtt:
		c.note(t.Heap)
	case TypeTuple:
		for _, e := range t.Tuple {
			c.noteType(e)
		}
	}
}

func (c *heapTypeCollector) noteSignature(s Signature) {
	c.noteType(s.Params)
	c.noteType(s.Results)
}

func (c *heapTypeCollector) noteExprs(root *Expr) {
	Walk(root, func(e *Expr) {
		c.noteType(e.Type)
		TypeAttrs(e,
			func(t *Type) { c.noteType(*t) },
			func(h *HeapType) { c.note(*h) },
			func(s *Signature) { c.noteSignature(*s) },
		)
	})
}
