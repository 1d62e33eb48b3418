package wasm

import "fmt"

// ExprKind enumerates expression kinds in the instruction tree.
type ExprKind uint8

const (
	// ExprNop represents a no-op.
	ExprNop ExprKind = iota
	// ExprUnreachable represents a trap.
	ExprUnreachable
	// ExprConst represents a numeric literal.
	ExprConst
	// ExprLocalGet reads a local.
	ExprLocalGet
	// ExprLocalSet writes a local.
	ExprLocalSet
	// ExprGlobalGet reads a global.
	ExprGlobalGet
	// ExprGlobalSet writes a global.
	ExprGlobalSet
	// ExprBlock represents a labeled block of children.
	ExprBlock
	// ExprIf represents a conditional.
	ExprIf
	// ExprBreak represents a branch to an enclosing label.
	ExprBreak
	// ExprCall represents a direct call.
	ExprCall
	// ExprCallIndirect represents a call through a table.
	ExprCallIndirect
	// ExprReturn represents a function return.
	ExprReturn
	// ExprDrop discards a value.
	ExprDrop
	// ExprSelect picks one of two values.
	ExprSelect
	// ExprRefNull represents a null reference literal.
	ExprRefNull
	// ExprRefFunc represents a constant function reference.
	ExprRefFunc
	// ExprRefCast casts a reference to a heap type.
	ExprRefCast
	// ExprRttCanon represents a canonical runtime type descriptor.
	ExprRttCanon
	// ExprStructNew constructs a struct instance.
	ExprStructNew
	// ExprStructGet reads a struct field.
	ExprStructGet
	// ExprStructSet writes a struct field.
	ExprStructSet
	// ExprArrayNew constructs an array instance.
	ExprArrayNew
	// ExprArrayGet reads an array element.
	ExprArrayGet
	// ExprArraySet writes an array element.
	ExprArraySet
	// ExprArrayLen reads an array length.
	ExprArrayLen
)

func (k ExprKind) String() string {
	switch k {
	case ExprNop:
		return "nop"
	case ExprUnreachable:
		return "unreachable"
	case ExprConst:
		return "const"
	case ExprLocalGet:
		return "local.get"
	case ExprLocalSet:
		return "local.set"
	case ExprGlobalGet:
		return "global.get"
	case ExprGlobalSet:
		return "global.set"
	case ExprBlock:
		return "block"
	case ExprIf:
		return "if"
	case ExprBreak:
		return "br"
	case ExprCall:
		return "call"
	case ExprCallIndirect:
		return "call_indirect"
	case ExprReturn:
		return "return"
	case ExprDrop:
		return "drop"
	case ExprSelect:
		return "select"
	case ExprRefNull:
		return "ref.null"
	case ExprRefFunc:
		return "ref.func"
	case ExprRefCast:
		return "ref.cast"
	case ExprRttCanon:
		return "rtt.canon"
	case ExprStructNew:
		return "struct.new"
	case ExprStructGet:
		return "struct.get"
	case ExprStructSet:
		return "struct.set"
	case ExprArrayNew:
		return "array.new"
	case ExprArrayGet:
		return "array.get"
	case ExprArraySet:
		return "array.set"
	case ExprArrayLen:
		return "array.len"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// Expr is a node of the instruction tree. Type is the node's result type;
// the per-kind payload carries operands and attributes.
type Expr struct {
	Kind ExprKind
	Type Type

	Const        ConstExpr
	LocalGet     LocalGetExpr
	LocalSet     LocalSetExpr
	GlobalGet    GlobalGetExpr
	GlobalSet    GlobalSetExpr
	Block        BlockExpr
	If           IfExpr
	Break        BreakExpr
	Call         CallExpr
	CallIndirect CallIndirectExpr
	Return       ReturnExpr
	Drop         DropExpr
	Select       SelectExpr
	RefNull      RefNullExpr
	RefFunc      RefFuncExpr
	RefCast      RefCastExpr
	RttCanon     RttCanonExpr
	StructNew    StructNewExpr
	StructGet    StructGetExpr
	StructSet    StructSetExpr
	ArrayNew     ArrayNewExpr
	ArrayGet     ArrayGetExpr
	ArraySet     ArraySetExpr
	ArrayLen     ArrayLenExpr
}

// ConstExpr carries a numeric literal; the node's Type selects which of the
// payload fields is meaningful.
type ConstExpr struct {
	I64 int64
	F64 float64
}

// LocalGetExpr reads local Index.
type LocalGetExpr struct {
	Index uint32
}

// LocalSetExpr writes Value to local Index.
type LocalSetExpr struct {
	Index uint32
	Value *Expr
}

// GlobalGetExpr reads the named global.
type GlobalGetExpr struct {
	Name string
}

// GlobalSetExpr writes Value to the named global.
type GlobalSetExpr struct {
	Name  string
	Value *Expr
}

// BlockExpr holds an optionally labeled list of children.
type BlockExpr struct {
	Name string
	List []*Expr
}

// IfExpr is a conditional; Else may be nil.
type IfExpr struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

// BreakExpr branches to Target; Value and Cond may be nil.
type BreakExpr struct {
	Target string
	Value  *Expr
	Cond   *Expr
}

// CallExpr is a direct call to the named function.
type CallExpr struct {
	Target string
	Args   []*Expr
}

// CallIndirectExpr calls through Table with the declared signature.
type CallIndirectExpr struct {
	Sig    Signature
	Table  string
	Target *Expr
	Args   []*Expr
}

// ReturnExpr returns Value (may be nil).
type ReturnExpr struct {
	Value *Expr
}

// DropExpr discards Value.
type DropExpr struct {
	Value *Expr
}

// SelectExpr picks IfTrue or IfFalse by Cond. Declared is the explicit type
// annotation required for reference-typed selects; None when unannotated.
type SelectExpr struct {
	Cond     *Expr
	IfTrue   *Expr
	IfFalse  *Expr
	Declared Type
}

// RefNullExpr is a null reference of the given heap type.
type RefNullExpr struct {
	Heap HeapType
}

// RefFuncExpr is a constant reference to the named function.
type RefFuncExpr struct {
	Func string
}

// RefCastExpr casts Ref to the given heap type.
type RefCastExpr struct {
	Ref  *Expr
	Heap HeapType
}

// RttCanonExpr materializes the canonical rtt; the node's Type carries the
// heap type and depth.
type RttCanonExpr struct{}

// StructNewExpr constructs an instance of the struct heap type, one operand
// per field. Rtt may be nil.
type StructNewExpr struct {
	Heap     HeapType
	Operands []*Expr
	Rtt      *Expr
}

// StructGetExpr reads field Index of Ref.
type StructGetExpr struct {
	Ref   *Expr
	Index uint32
}

// StructSetExpr writes Value to field Index of Ref.
type StructSetExpr struct {
	Ref   *Expr
	Index uint32
	Value *Expr
}

// ArrayNewExpr constructs an instance of the array heap type. Init and Rtt
// may be nil.
type ArrayNewExpr struct {
	Heap HeapType
	Size *Expr
	Init *Expr
	Rtt  *Expr
}

// ArrayGetExpr reads element Index of Ref.
type ArrayGetExpr struct {
	Ref   *Expr
	Index *Expr
}

// ArraySetExpr writes Value to element Index of Ref.
type ArraySetExpr struct {
	Ref   *Expr
	Index *Expr
	Value *Expr
}

// ArrayLenExpr reads the length of Ref.
type ArrayLenExpr struct {
	Ref *Expr
}
