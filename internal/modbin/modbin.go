// Package modbin serializes modules to and from a msgpack container with a
// schema version header, for moving modules between tool invocations.
package modbin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"vtlower/internal/wasm"
)

// Schema is the current container version - increment when the payload
// format changes.
const Schema uint16 = 1

type payload struct {
	Schema uint16

	TypeDefs  []typeDef
	TypeNames map[wasm.HeapType]string

	Funcs           []*wasm.Func
	Globals         []*wasm.Global
	Tables          []*wasm.Table
	ElementSegments []*wasm.ElementSegment
}

// typeDef is one heap type definition. ID is recorded so decoding can verify
// that replaying the definitions reproduces the same identities the
// serialized bodies reference.
type typeDef struct {
	ID     wasm.HeapType
	Kind   uint8
	Sig    wasm.Signature
	Struct wasm.StructDef
	Array  wasm.ArrayDef
}

// Encode serializes a module.
func Encode(m *wasm.Module) ([]byte, error) {
	if m == nil {
		return nil, errors.New("modbin: nil module")
	}
	p := payload{
		Schema:          Schema,
		TypeNames:       m.TypeNames,
		Funcs:           m.Funcs,
		Globals:         m.Globals,
		Tables:          m.Tables,
		ElementSegments: m.ElementSegments,
	}
	for _, h := range m.Types.Defined() {
		td := typeDef{ID: h, Kind: uint8(m.Types.Kind(h))}
		switch m.Types.Kind(h) {
		case wasm.HeapKindSignature:
			td.Sig, _ = m.Types.Signature(h)
		case wasm.HeapKindStruct:
			td.Struct, _ = m.Types.Struct(h)
		case wasm.HeapKindArray:
			td.Array, _ = m.Types.Array(h)
		}
		p.TypeDefs = append(p.TypeDefs, td)
	}
	return msgpack.Marshal(&p)
}

// Decode deserializes a module.
func Decode(data []byte) (*wasm.Module, error) {
	var p payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("modbin: decode: %w", err)
	}
	if p.Schema != Schema {
		return nil, fmt.Errorf("modbin: schema %d, tool supports %d", p.Schema, Schema)
	}

	m := wasm.NewModule()
	for _, td := range p.TypeDefs {
		var id wasm.HeapType
		switch wasm.HeapTypeKind(td.Kind) {
		case wasm.HeapKindSignature:
			id = m.Types.AddSignature(td.Sig)
		case wasm.HeapKindStruct:
			id = m.Types.AddStruct(td.Struct)
		case wasm.HeapKindArray:
			id = m.Types.AddArray(td.Array)
		default:
			return nil, fmt.Errorf("modbin: bad heap type kind %d", td.Kind)
		}
		if id != td.ID {
			return nil, fmt.Errorf("modbin: type definition %d replayed as %d", td.ID, id)
		}
	}
	if p.TypeNames != nil {
		m.TypeNames = p.TypeNames
	}
	m.Funcs = p.Funcs
	m.Globals = p.Globals
	m.Tables = p.Tables
	m.ElementSegments = p.ElementSegments
	return m, nil
}

// WriteFile encodes a module and writes it atomically.
func WriteFile(path string, m *wasm.Module) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// ReadFile reads and decodes a module file.
func ReadFile(path string) (*wasm.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
