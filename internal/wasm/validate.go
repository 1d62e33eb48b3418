package wasm

import (
	"errors"
	"fmt"
)

// Validate checks module invariants: every referenced heap type has a live
// definition in the store, declared function types are signatures, and
// struct/array accesses stay in bounds of their target definitions.
// Returns an error joining every violation found.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	for _, g := range m.Globals {
		if g == nil {
			continue
		}
		if err := validateType(m.Types, g.Type); err != nil {
			errs = append(errs, fmt.Errorf("global %s: %w", g.Name, err))
		}
		if err := validateExprs(m, g.Init); err != nil {
			errs = append(errs, fmt.Errorf("global %s init: %w", g.Name, err))
		}
	}
	for _, t := range m.Tables {
		if t == nil {
			continue
		}
		if err := validateType(m.Types, t.Type); err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", t.Name, err))
		}
	}
	for _, s := range m.ElementSegments {
		if s == nil {
			continue
		}
		if err := validateType(m.Types, s.Type); err != nil {
			errs = append(errs, fmt.Errorf("element segment %s: %w", s.Name, err))
		}
		if s.Table != "" && m.TableByName(s.Table) == nil {
			errs = append(errs, fmt.Errorf("element segment %s: unknown table %q", s.Name, s.Table))
		}
		if err := validateExprs(m, s.Offset); err != nil {
			errs = append(errs, fmt.Errorf("element segment %s offset: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(m *Module, f *Func) error {
	var errs []error
	if !m.Types.IsFunction(f.Type) {
		errs = append(errs, fmt.Errorf("declared type %d is %s, want signature", f.Type, m.Types.Kind(f.Type)))
	}
	for i, l := range f.Locals {
		if err := validateType(m.Types, l); err != nil {
			errs = append(errs, fmt.Errorf("local %d: %w", i, err))
		}
	}
	if err := validateExprs(m, f.Body); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateExprs(m *Module, root *Expr) error {
	var errs []error
	Walk(root, func(e *Expr) {
		if err := validateType(m.Types, e.Type); err != nil {
			errs = append(errs, fmt.Errorf("%s result: %w", e.Kind, err))
		}
		TypeAttrs(e,
			func(t *Type) {
				if err := validateType(m.Types, *t); err != nil {
					errs = append(errs, fmt.Errorf("%s attr: %w", e.Kind, err))
				}
			},
			func(h *HeapType) {
				if err := validateHeapType(m.Types, *h); err != nil {
					errs = append(errs, fmt.Errorf("%s attr: %w", e.Kind, err))
				}
			},
			func(s *Signature) {
				if err := validateType(m.Types, s.Params); err != nil {
					errs = append(errs, fmt.Errorf("%s params: %w", e.Kind, err))
				}
				if err := validateType(m.Types, s.Results); err != nil {
					errs = append(errs, fmt.Errorf("%s results: %w", e.Kind, err))
				}
			},
		)
		switch e.Kind {
		case ExprStructGet:
			errs = appendFieldBoundErr(errs, m, e.StructGet.Ref, e.StructGet.Index)
		case ExprStructSet:
			errs = appendFieldBoundErr(errs, m, e.StructSet.Ref, e.StructSet.Index)
		case ExprStructNew:
			if def, ok := m.Types.Struct(e.StructNew.Heap); ok && len(e.StructNew.Operands) != 0 &&
				len(e.StructNew.Operands) != len(def.Fields) {
				errs = append(errs, fmt.Errorf("struct.new: %d operands for %d fields",
					len(e.StructNew.Operands), len(def.Fields)))
			}
		}
	})
	return errors.Join(errs...)
}

func appendFieldBoundErr(errs []error, m *Module, ref *Expr, index uint32) []error {
	if ref == nil || ref.Type.Kind != TypeRef {
		return errs
	}
	def, ok := m.Types.Struct(ref.Type.Heap)
	if !ok {
		return errs
	}
	if int(index) >= len(def.Fields) {
		errs = append(errs, fmt.Errorf("field index %d out of range [0,%d)", index, len(def.Fields)))
	}
	return errs
}

func validateType(s *TypeStore, t Type) error {
	switch t.Kind {
	case TypeRef, TypeRtt:
		return validateHeapType(s, t.Heap)
	case TypeTuple:
		var errs []error
		for _, e := range t.Tuple {
			if err := validateType(s, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	default:
		return nil
	}
}

func validateHeapType(s *TypeStore, h HeapType) error {
	if s.Kind(h) == HeapKindInvalid {
		return fmt.Errorf("heap type %d has no definition", h)
	}
	return nil
}
