package wasm

// Module is a whole program: its heap type definitions plus every top-level
// carrier that can denote a type.
type Module struct {
	Types *TypeStore

	Funcs           []*Func
	Globals         []*Global
	Tables          []*Table
	ElementSegments []*ElementSegment

	// TypeNames maps heap types to human-readable names. Entries are
	// optional and purely informational.
	TypeNames map[HeapType]string
}

// NewModule constructs an empty module with a seeded type store.
func NewModule() *Module {
	return &Module{
		Types:     NewTypeStore(),
		TypeNames: make(map[HeapType]string),
	}
}

// Func is a function definition. Type is the declared signature heap type;
// Locals covers parameters first, then true locals.
type Func struct {
	Name   string
	Type   HeapType
	Locals []Type
	Body   *Expr
}

// Global is a module-level variable.
type Global struct {
	Name    string
	Type    Type
	Mutable bool
	Init    *Expr
}

// Table is a module-level table of references.
type Table struct {
	Name    string
	Type    Type
	Initial uint32
	Max     uint32
}

// ElementSegment initializes a slice of a table with function references.
type ElementSegment struct {
	Name   string
	Table  string
	Type   Type
	Offset *Expr
	Funcs  []string
}

// FuncByName returns the function with the given name, nil if absent.
func (m *Module) FuncByName(name string) *Func {
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// TableByName returns the table with the given name, nil if absent.
func (m *Module) TableByName(name string) *Table {
	for _, t := range m.Tables {
		if t != nil && t.Name == name {
			return t
		}
	}
	return nil
}
