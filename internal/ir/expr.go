package ir

import (
	"logos/internal/source"
	"logos/internal/symbols"
)

// ExprKind enumerates expression kinds in the program representation.
type ExprKind uint8

const (
	// ExprIdent is a variable or parameter reference.
	ExprIdent ExprKind = iota
	// ExprLit is a literal constant.
	ExprLit
	// ExprCall is a direct call to a named function.
	ExprCall
	// ExprBinary is a binary operation.
	ExprBinary
	// ExprIndex reads one element of a collection.
	ExprIndex
	// ExprLength queries the length of a collection.
	ExprLength
	// ExprDup is an explicit duplication of a value.
	ExprDup
	// ExprList is a collection literal.
	ExprList
	// ExprField reads a record field.
	ExprField
	// ExprClosure is an anonymous function value.
	ExprClosure
)

// Expr is one node of an expression tree. Kind selects which payload
// field below is meaningful; the rest stay zero.
type Expr struct {
	Kind ExprKind
	Span source.Span

	Ident   IdentExpr
	Lit     LitExpr
	Call    CallExpr
	Binary  BinaryExpr
	Index   IndexExpr
	Length  LengthExpr
	Dup     DupExpr
	List    ListExpr
	Field   FieldExpr
	Closure ClosureExpr
}

// IdentExpr references a variable or parameter.
type IdentExpr struct {
	Sym symbols.SymbolID
}

// LitKind distinguishes literal shapes. The analyzer only needs to know
// literals reference no variables; the payload is kept for diagnostics.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitReal
	LitBool
	LitText
	LitNothing
)

// LitExpr is a literal constant.
type LitExpr struct {
	Kind LitKind
	Text string
}

// CallExpr is a direct call. Callee is always a function symbol: the
// front end resolves names before handing the program over.
type CallExpr struct {
	Callee symbols.SymbolID
	Args   []*Expr
}

// BinOp enumerates binary operators. Operator identity is irrelevant to
// ownership and liveness; only operand traversal matters.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op          BinOp
	Left, Right *Expr
}

// IndexExpr reads Collection[Index].
type IndexExpr struct {
	Collection *Expr
	Index      *Expr
}

// LengthExpr queries the length of a collection.
type LengthExpr struct {
	Collection *Expr
}

// DupExpr duplicates a value explicitly, producing a fresh owner.
type DupExpr struct {
	Value *Expr
}

// ListExpr is a collection literal.
type ListExpr struct {
	Items []*Expr
}

// FieldExpr reads a record field.
type FieldExpr struct {
	Object *Expr
	Name   string
}

// ClosureExpr is an anonymous function. Closures capture their
// environment at the definition site; the analyses treat the body as
// inlined there.
type ClosureExpr struct {
	Params []symbols.SymbolID
	Body   []*Stmt
}
