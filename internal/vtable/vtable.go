// Package vtable lowers vtable-shaped struct types, structs whose fields
// hold typed function references, so that those fields hold plain i32
// indices instead. That is,
//
//	(struct (field (ref $functype1)) (field (ref $functype2)))
//
// becomes
//
//	(struct (field i32) (field i32))
//
// and every location in the module that mentions a type is rewritten to the
// new type graph; struct reads of lowered fields report i32. BuildDispatchTables
// then creates a table per lowered field, fills it with the constant function
// references written at construction sites, and replaces those operands with
// their table indices.
//
// Run assumes, without checking, that every function-reference field is
// meant to be transformed, that such fields are only written at construction
// time with a constant ref.func, and that no subtype specializes an
// inherited field's type. Precheck reports violations of the first two for
// callers that want them rejected up front.
package vtable

import (
	"context"

	"vtlower/internal/wasm"
)

// Run rewrites the module's type graph and every type reference in it, in
// place. jobs caps the concurrent function-body workers (0=auto). The mapping
// is built in one atomic session; inconsistencies in the type graph are
// programming errors and panic.
func Run(ctx context.Context, m *wasm.Module, jobs int) error {
	mapping := rewriteTypeGraph(m)

	u := &codeUpdater{
		module:  m,
		types:   m.Types,
		mapping: mapping,
	}
	return u.run(ctx, jobs)
}
