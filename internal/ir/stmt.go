package ir

import (
	"logos/internal/source"
	"logos/internal/symbols"
)

// StmtKind enumerates statement kinds in the program representation.
type StmtKind uint8

const (
	// StmtLet introduces a new binding.
	StmtLet StmtKind = iota
	// StmtSet reassigns an existing binding as a whole.
	StmtSet
	// StmtIf is a two-armed conditional; the else arm may be empty.
	StmtIf
	// StmtWhile is an unbounded loop.
	StmtWhile
	// StmtForEach is a bounded loop over a collection.
	StmtForEach
	// StmtAppend grows a collection in place.
	StmtAppend
	// StmtRemoveElem removes an element from a collection in place.
	StmtRemoveElem
	// StmtSetIndex writes one element of a collection in place.
	StmtSetIndex
	// StmtCall invokes a function for its effects.
	StmtCall
	// StmtReturn leaves the enclosing function.
	StmtReturn
	// StmtTransfer moves a value out of its binding; the source
	// binding becomes invalid for further reads.
	StmtTransfer
	// StmtShare produces a read-only alias; the source stays valid.
	StmtShare
	// StmtOpaque is a foreign code block the analyzer cannot see into.
	StmtOpaque
)

// Stmt is one node of a statement tree. Kind selects the payload.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Let        LetStmt
	Set        SetStmt
	If         IfStmt
	While      WhileStmt
	ForEach    ForEachStmt
	Append     AppendStmt
	RemoveElem RemoveElemStmt
	SetIndex   SetIndexStmt
	Call       CallStmt
	Return     ReturnStmt
	Transfer   TransferStmt
	Share      ShareStmt
	Opaque     OpaqueStmt
}

// LetStmt introduces Sym bound to Value. Mutable bindings may later be
// reassigned or structurally mutated.
type LetStmt struct {
	Sym     symbols.SymbolID
	Mutable bool
	Value   *Expr
}

// SetStmt reassigns Sym as a whole; the previous value is dead after it.
type SetStmt struct {
	Sym   symbols.SymbolID
	Value *Expr
}

// IfStmt branches on Cond. Else may be empty.
type IfStmt struct {
	Cond *Expr
	Then []*Stmt
	Else []*Stmt
}

// WhileStmt repeats Body while Cond holds.
type WhileStmt struct {
	Cond *Expr
	Body []*Stmt
}

// ForEachStmt iterates over Iterable binding Pattern symbols each turn.
type ForEachStmt struct {
	Pattern  []symbols.SymbolID
	Iterable *Expr
	Body     []*Stmt
}

// AppendStmt appends Value to Collection in place.
type AppendStmt struct {
	Value      *Expr
	Collection *Expr
}

// RemoveElemStmt removes Value from Collection in place.
type RemoveElemStmt struct {
	Value      *Expr
	Collection *Expr
}

// SetIndexStmt writes Collection[Index] = Value in place. This is a
// partial update: the collection binding stays live through it.
type SetIndexStmt struct {
	Collection *Expr
	Index      *Expr
	Value      *Expr
}

// CallStmt invokes Callee for its effects.
type CallStmt struct {
	Callee symbols.SymbolID
	Args   []*Expr
}

// ReturnStmt leaves the function; Value may be nil.
type ReturnStmt struct {
	Value *Expr
}

// TransferStmt moves Value (the "Transfer x to f" surface form). When
// the recipient is a function the front end records it in To.
type TransferStmt struct {
	Value *Expr
	To    symbols.SymbolID
}

// ShareStmt lends Value read-only (the "Share x with f" surface form).
type ShareStmt struct {
	Value *Expr
	To    symbols.SymbolID
}

// OpaqueStmt is a foreign block. Refs lists every variable textually
// referenced inside; Text carries the raw fragment for the emitter.
// The analyzer does not parse the fragment: referenced variables are
// conservatively treated as fully consumed at block entry.
type OpaqueStmt struct {
	Refs []symbols.SymbolID
	Text string
}
