package ir

import (
	"logos/internal/symbols"
)

// FreeVars adds every variable e reads into out. Callee names are
// globals, not variables, and are excluded. Closures count as inlined
// at the definition site: references from the body are included, minus
// the closure's own parameters and locally introduced bindings.
func FreeVars(e *Expr, out symbols.Set) {
	freeVarsExpr(e, out, nil)
}

// BlockFreeVars adds every variable a statement block reads into out,
// treating the block as straight-line code (no kill analysis). Used for
// closure bodies and opaque-adjacent conservative scans.
func BlockFreeVars(block []*Stmt, out symbols.Set) {
	blockFreeVars(block, out, nil)
}

func freeVarsExpr(e *Expr, out, bound symbols.Set) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ExprIdent:
		if !bound.Has(e.Ident.Sym) {
			out.Add(e.Ident.Sym)
		}
	case ExprCall:
		for _, a := range e.Call.Args {
			freeVarsExpr(a, out, bound)
		}
	case ExprBinary:
		freeVarsExpr(e.Binary.Left, out, bound)
		freeVarsExpr(e.Binary.Right, out, bound)
	case ExprIndex:
		freeVarsExpr(e.Index.Collection, out, bound)
		freeVarsExpr(e.Index.Index, out, bound)
	case ExprLength:
		freeVarsExpr(e.Length.Collection, out, bound)
	case ExprDup:
		freeVarsExpr(e.Dup.Value, out, bound)
	case ExprList:
		for _, item := range e.List.Items {
			freeVarsExpr(item, out, bound)
		}
	case ExprField:
		freeVarsExpr(e.Field.Object, out, bound)
	case ExprClosure:
		inner := bound.Clone()
		if inner == nil {
			inner = make(symbols.Set, len(e.Closure.Params))
		}
		for _, p := range e.Closure.Params {
			inner.Add(p)
		}
		blockFreeVars(e.Closure.Body, out, inner)
	}
}

func blockFreeVars(block []*Stmt, out, bound symbols.Set) {
	// Bindings introduced in the block shadow outer variables for the
	// statements that follow, so bound grows as we go.
	for _, s := range block {
		if s == nil {
			continue
		}
		switch s.Kind {
		case StmtLet:
			freeVarsExpr(s.Let.Value, out, bound)
			if bound == nil {
				bound = make(symbols.Set, 4)
			}
			bound.Add(s.Let.Sym)
		case StmtForEach:
			freeVarsExpr(s.ForEach.Iterable, out, bound)
			inner := bound.Clone()
			if inner == nil {
				inner = make(symbols.Set, len(s.ForEach.Pattern))
			}
			for _, p := range s.ForEach.Pattern {
				inner.Add(p)
			}
			blockFreeVars(s.ForEach.Body, out, inner)
		case StmtOpaque:
			for _, ref := range s.Opaque.Refs {
				if !bound.Has(ref) {
					out.Add(ref)
				}
			}
		default:
			for _, e := range ChildExprs(s) {
				freeVarsExpr(e, out, bound)
			}
			for _, nested := range ChildBlocks(s) {
				blockFreeVars(nested, out, bound.Clone())
			}
		}
	}
}
