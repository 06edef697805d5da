// Package testkit builds small analysis-ready programs for tests
// without going through the program file codec. Every statement and
// expression receives a distinct, strictly increasing span so
// diagnostics sort deterministically and tests can tell sites apart.
package testkit

import (
	"fmt"

	"logos/internal/ir"
	"logos/internal/source"
	"logos/internal/symbols"
	"logos/internal/types"
)

// ProgramBuilder accumulates functions for one test program.
type ProgramBuilder struct {
	Table *symbols.Table
	Env   *types.Env

	funcs []*ir.Func
	off   uint32
}

// NewProgram creates an empty builder.
func NewProgram() *ProgramBuilder {
	return &ProgramBuilder{
		Table: symbols.NewTable(64, nil),
		Env:   types.NewEnv(nil),
	}
}

// Build finalizes the program.
func (pb *ProgramBuilder) Build() *ir.Program {
	return ir.NewProgram(pb.funcs)
}

// nextSpan mints a fresh one-byte span.
func (pb *ProgramBuilder) nextSpan() source.Span {
	pb.off++
	return source.Span{Start: pb.off, End: pb.off + 1}
}

// Func starts a function definition. The returned builder appends
// statements in order; call Done (or just stop using it) when finished.
func (pb *ProgramBuilder) Func(name string) *FuncBuilder {
	sym := pb.Table.Function(name)
	fn := &ir.Func{Sym: sym, Name: name, Span: pb.nextSpan()}
	pb.funcs = append(pb.funcs, fn)
	fb := &FuncBuilder{
		pb:    pb,
		fn:    fn,
		scope: make(map[string]symbols.SymbolID),
	}
	fb.blocks = []*[]*ir.Stmt{&fn.Body}
	return fb
}

// NativeFunc declares a bodiless foreign function. Params are
// (name, type, mutable) triples built with P.
func (pb *ProgramBuilder) NativeFunc(name string, params ...NativeParam) {
	sym := pb.Table.Function(name)
	fn := &ir.Func{Sym: sym, Name: name, Span: pb.nextSpan(), Native: true}
	for _, p := range params {
		psym := pb.Table.Param(p.Name, sym)
		id := pb.Env.Interner().Intern(p.Type)
		pb.Env.Bind(psym, id)
		fn.Params = append(fn.Params, ir.Param{Sym: psym, Type: id, Mutable: p.Mutable, Span: pb.nextSpan()})
	}
	pb.funcs = append(pb.funcs, fn)
}

// NativeParam describes one foreign parameter.
type NativeParam struct {
	Name    string
	Type    types.Type
	Mutable bool
}

// P builds a read-only native parameter; PMut a mutating one.
func P(name string, t types.Type) NativeParam    { return NativeParam{Name: name, Type: t} }
func PMut(name string, t types.Type) NativeParam { return NativeParam{Name: name, Type: t, Mutable: true} }

// FuncBuilder appends typed parameters and statements to one function.
// Nested blocks are built with callbacks so the builder can track the
// current insertion point.
type FuncBuilder struct {
	pb     *ProgramBuilder
	fn     *ir.Func
	scope  map[string]symbols.SymbolID
	blocks []*[]*ir.Stmt
}

// Sym resolves a name used anywhere in this function.
func (fb *FuncBuilder) Sym(name string) symbols.SymbolID {
	if sym, ok := fb.scope[name]; ok {
		return sym
	}
	sym := fb.pb.Table.Var(name, fb.fn.Sym)
	fb.scope[name] = sym
	return sym
}

// FnSym returns the function's own symbol.
func (fb *FuncBuilder) FnSym() symbols.SymbolID { return fb.fn.Sym }

// Param adds a typed parameter.
func (fb *FuncBuilder) Param(name string, t types.Type) *FuncBuilder {
	sym := fb.pb.Table.Param(name, fb.fn.Sym)
	fb.scope[name] = sym
	id := fb.pb.Env.Interner().Intern(t)
	fb.pb.Env.Bind(sym, id)
	fb.fn.Params = append(fb.fn.Params, ir.Param{Sym: sym, Type: id, Span: fb.pb.nextSpan()})
	return fb
}

// Bind declares the inferred type of a local without emitting code.
func (fb *FuncBuilder) Bind(name string, t types.Type) *FuncBuilder {
	fb.pb.Env.Bind(fb.Sym(name), fb.pb.Env.Interner().Intern(t))
	return fb
}

func (fb *FuncBuilder) push(s *ir.Stmt) *ir.Stmt {
	top := fb.blocks[len(fb.blocks)-1]
	*top = append(*top, s)
	return s
}

func (fb *FuncBuilder) nested(block *[]*ir.Stmt, body func()) {
	if body == nil {
		return
	}
	fb.blocks = append(fb.blocks, block)
	body()
	fb.blocks = fb.blocks[:len(fb.blocks)-1]
}

// Expressions.

// Ident references a variable.
func (fb *FuncBuilder) Ident(name string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprIdent, Span: fb.pb.nextSpan(), Ident: ir.IdentExpr{Sym: fb.Sym(name)}}
}

// Int is an integer literal.
func (fb *FuncBuilder) Int(v int) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprLit, Span: fb.pb.nextSpan(), Lit: ir.LitExpr{Kind: ir.LitInt, Text: fmt.Sprint(v)}}
}

// Text is a text literal.
func (fb *FuncBuilder) Text(v string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprLit, Span: fb.pb.nextSpan(), Lit: ir.LitExpr{Kind: ir.LitText, Text: v}}
}

// Bool is a boolean literal.
func (fb *FuncBuilder) Bool(v bool) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprLit, Span: fb.pb.nextSpan(), Lit: ir.LitExpr{Kind: ir.LitBool, Text: fmt.Sprint(v)}}
}

// CallExpr calls a function in expression position.
func (fb *FuncBuilder) CallExpr(callee string, args ...*ir.Expr) *ir.Expr {
	return &ir.Expr{
		Kind: ir.ExprCall,
		Span: fb.pb.nextSpan(),
		Call: ir.CallExpr{Callee: fb.pb.Table.Function(callee), Args: args},
	}
}

// Bin builds a binary operation.
func (fb *FuncBuilder) Bin(op ir.BinOp, left, right *ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprBinary, Span: fb.pb.nextSpan(), Binary: ir.BinaryExpr{Op: op, Left: left, Right: right}}
}

// Index reads collection[index].
func (fb *FuncBuilder) Index(collection, index *ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprIndex, Span: fb.pb.nextSpan(), Index: ir.IndexExpr{Collection: collection, Index: index}}
}

// Dup duplicates a value explicitly.
func (fb *FuncBuilder) Dup(value *ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprDup, Span: fb.pb.nextSpan(), Dup: ir.DupExpr{Value: value}}
}

// List is a collection literal.
func (fb *FuncBuilder) List(items ...*ir.Expr) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprList, Span: fb.pb.nextSpan(), List: ir.ListExpr{Items: items}}
}

// Closure builds an anonymous function; params are bound inside body.
func (fb *FuncBuilder) Closure(params []string, body func()) *ir.Expr {
	e := &ir.Expr{Kind: ir.ExprClosure, Span: fb.pb.nextSpan()}
	for _, p := range params {
		e.Closure.Params = append(e.Closure.Params, fb.Sym(p))
	}
	fb.nested(&e.Closure.Body, body)
	return e
}

// Statements.

// Let introduces an immutable binding.
func (fb *FuncBuilder) Let(name string, value *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtLet, Span: fb.pb.nextSpan()}
	s.Let = ir.LetStmt{Sym: fb.Sym(name), Value: value}
	return fb.push(s)
}

// LetMut introduces a mutable binding.
func (fb *FuncBuilder) LetMut(name string, value *ir.Expr) *ir.Stmt {
	s := fb.Let(name, value)
	s.Let.Mutable = true
	return s
}

// Set reassigns a binding.
func (fb *FuncBuilder) Set(name string, value *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtSet, Span: fb.pb.nextSpan()}
	s.Set = ir.SetStmt{Sym: fb.Sym(name), Value: value}
	return fb.push(s)
}

// If branches; els may be nil.
func (fb *FuncBuilder) If(cond *ir.Expr, then func(), els func()) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtIf, Span: fb.pb.nextSpan()}
	s.If.Cond = cond
	fb.nested(&s.If.Then, then)
	fb.nested(&s.If.Else, els)
	return fb.push(s)
}

// While loops on cond.
func (fb *FuncBuilder) While(cond *ir.Expr, body func()) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtWhile, Span: fb.pb.nextSpan()}
	s.While.Cond = cond
	fb.nested(&s.While.Body, body)
	return fb.push(s)
}

// ForEach iterates a collection binding pattern names each turn.
func (fb *FuncBuilder) ForEach(pattern []string, iterable *ir.Expr, body func()) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtForEach, Span: fb.pb.nextSpan()}
	for _, p := range pattern {
		s.ForEach.Pattern = append(s.ForEach.Pattern, fb.Sym(p))
	}
	s.ForEach.Iterable = iterable
	fb.nested(&s.ForEach.Body, body)
	return fb.push(s)
}

// Append grows a collection in place.
func (fb *FuncBuilder) Append(value, collection *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtAppend, Span: fb.pb.nextSpan()}
	s.Append = ir.AppendStmt{Value: value, Collection: collection}
	return fb.push(s)
}

// RemoveElem removes an element in place.
func (fb *FuncBuilder) RemoveElem(value, collection *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtRemoveElem, Span: fb.pb.nextSpan()}
	s.RemoveElem = ir.RemoveElemStmt{Value: value, Collection: collection}
	return fb.push(s)
}

// SetIndex writes one element in place.
func (fb *FuncBuilder) SetIndex(collection, index, value *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtSetIndex, Span: fb.pb.nextSpan()}
	s.SetIndex = ir.SetIndexStmt{Collection: collection, Index: index, Value: value}
	return fb.push(s)
}

// Call invokes a function for its effects.
func (fb *FuncBuilder) Call(callee string, args ...*ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtCall, Span: fb.pb.nextSpan()}
	s.Call = ir.CallStmt{Callee: fb.pb.Table.Function(callee), Args: args}
	return fb.push(s)
}

// Return leaves the function; value may be nil.
func (fb *FuncBuilder) Return(value *ir.Expr) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtReturn, Span: fb.pb.nextSpan()}
	s.Return = ir.ReturnStmt{Value: value}
	return fb.push(s)
}

// Transfer moves value to the named function.
func (fb *FuncBuilder) Transfer(value *ir.Expr, to string) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtTransfer, Span: fb.pb.nextSpan()}
	s.Transfer = ir.TransferStmt{Value: value}
	if to != "" {
		s.Transfer.To = fb.pb.Table.Function(to)
	}
	return fb.push(s)
}

// Share lends value read-only to the named function.
func (fb *FuncBuilder) Share(value *ir.Expr, to string) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtShare, Span: fb.pb.nextSpan()}
	s.Share = ir.ShareStmt{Value: value}
	if to != "" {
		s.Share.To = fb.pb.Table.Function(to)
	}
	return fb.push(s)
}

// Opaque embeds a foreign block referencing the named variables.
func (fb *FuncBuilder) Opaque(text string, refs ...string) *ir.Stmt {
	s := &ir.Stmt{Kind: ir.StmtOpaque, Span: fb.pb.nextSpan()}
	s.Opaque.Text = text
	for _, r := range refs {
		s.Opaque.Refs = append(s.Opaque.Refs, fb.Sym(r))
	}
	return fb.push(s)
}

// SeqOfInt is the everyday non-duplicable collection type in tests.
func SeqOfInt(env *types.Env) types.Type {
	return types.MakeSeq(env.Interner().Builtins().Int)
}
