package ir

import (
	"logos/internal/symbols"
)

// ChildExprs returns the direct expression operands of s, in source
// order. Nested statement blocks are not descended into.
func ChildExprs(s *Stmt) []*Expr {
	switch s.Kind {
	case StmtLet:
		return []*Expr{s.Let.Value}
	case StmtSet:
		return []*Expr{s.Set.Value}
	case StmtIf:
		return []*Expr{s.If.Cond}
	case StmtWhile:
		return []*Expr{s.While.Cond}
	case StmtForEach:
		return []*Expr{s.ForEach.Iterable}
	case StmtAppend:
		return []*Expr{s.Append.Value, s.Append.Collection}
	case StmtRemoveElem:
		return []*Expr{s.RemoveElem.Value, s.RemoveElem.Collection}
	case StmtSetIndex:
		return []*Expr{s.SetIndex.Collection, s.SetIndex.Index, s.SetIndex.Value}
	case StmtCall:
		return s.Call.Args
	case StmtReturn:
		if s.Return.Value != nil {
			return []*Expr{s.Return.Value}
		}
		return nil
	case StmtTransfer:
		return []*Expr{s.Transfer.Value}
	case StmtShare:
		return []*Expr{s.Share.Value}
	default:
		return nil
	}
}

// ChildBlocks returns the nested statement blocks of s.
func ChildBlocks(s *Stmt) [][]*Stmt {
	switch s.Kind {
	case StmtIf:
		return [][]*Stmt{s.If.Then, s.If.Else}
	case StmtWhile:
		return [][]*Stmt{s.While.Body}
	case StmtForEach:
		return [][]*Stmt{s.ForEach.Body}
	default:
		return nil
	}
}

// WalkStmts visits every statement in block and, transitively, every
// statement in nested control-flow blocks and closure bodies.
func WalkStmts(block []*Stmt, visit func(*Stmt)) {
	for _, s := range block {
		if s == nil {
			continue
		}
		visit(s)
		for _, e := range ChildExprs(s) {
			walkClosures(e, visit)
		}
		for _, nested := range ChildBlocks(s) {
			WalkStmts(nested, visit)
		}
	}
}

// walkClosures descends into closure bodies reachable from e.
func walkClosures(e *Expr, visit func(*Stmt)) {
	WalkExpr(e, func(sub *Expr) {
		if sub.Kind == ExprClosure {
			WalkStmts(sub.Closure.Body, visit)
		}
	})
}

// WalkExpr visits e and every descendant expression in source order.
// Closure bodies are not descended into; callers that need them attach
// a statement walk on ExprClosure nodes.
func WalkExpr(e *Expr, visit func(*Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch e.Kind {
	case ExprCall:
		for _, a := range e.Call.Args {
			WalkExpr(a, visit)
		}
	case ExprBinary:
		WalkExpr(e.Binary.Left, visit)
		WalkExpr(e.Binary.Right, visit)
	case ExprIndex:
		WalkExpr(e.Index.Collection, visit)
		WalkExpr(e.Index.Index, visit)
	case ExprLength:
		WalkExpr(e.Length.Collection, visit)
	case ExprDup:
		WalkExpr(e.Dup.Value, visit)
	case ExprList:
		for _, item := range e.List.Items {
			WalkExpr(item, visit)
		}
	case ExprField:
		WalkExpr(e.Field.Object, visit)
	}
}

// IdentSym returns the symbol when e is a bare identifier.
func IdentSym(e *Expr) (symbols.SymbolID, bool) {
	if e != nil && e.Kind == ExprIdent {
		return e.Ident.Sym, true
	}
	return symbols.NoSymbolID, false
}
