package readonly

import (
	"fmt"

	"logos/internal/callgraph"
	"logos/internal/ir"
	"logos/internal/symbols"
	"logos/internal/types"
)

// Result maps each function to the set of its growable-collection
// parameters that are never mutated, directly or transitively through
// any call chain. Such parameters are safe to pass by shared reference
// at every call site instead of by duplicated value.
//
// The sets only ever shrink during analysis (optimistic start, finite
// lattice), so the fixed point is guaranteed and the final value is
// stable: re-running the analysis on the same program reproduces it.
type Result struct {
	readonly map[symbols.SymbolID]symbols.Set
}

// IsReadonly reports whether param is readonly within fn. Unknown
// functions and parameters report false: callers must stay
// conservative about functions the analysis never saw.
func (r *Result) IsReadonly(fn, param symbols.SymbolID) bool {
	return r.readonly[fn].Has(param)
}

// Set returns the readonly set for fn (nil when empty or unknown).
func (r *Result) Set(fn symbols.SymbolID) symbols.Set {
	return r.readonly[fn]
}

// Analyze computes readonly parameters by fixed-point iteration.
//
// Start optimistic: every eligible parameter of every function is a
// candidate. Then repeatedly disqualify candidates that are mutated in
// the body, bound into a mutable local (the value is consumed, so a
// move beats a borrow), or passed to a mutating position of a callee.
// Disqualification inside one member of a recursive cycle propagates
// to co-members on later passes without special-casing: the lattice is
// a finite subset order that only shrinks, so at most one pass per
// parameter can change anything.
//
// bound caps the iteration count as an internal invariant check; a
// program that fails to converge within it indicates an analyzer bug,
// never a user error.
func Analyze(p *ir.Program, g *callgraph.Graph, env *types.Env, bound int) (*Result, error) {
	res := &Result{
		readonly: make(map[symbols.SymbolID]symbols.Set, len(p.Funcs)),
	}

	totalParams := 0
	for _, fn := range p.Funcs {
		candidates := make(symbols.Set)
		for _, param := range fn.Params {
			totalParams++
			if !eligible(env, param) {
				continue
			}
			if fn.Native && param.Mutable {
				// Declared mutable in a trusted native signature.
				continue
			}
			candidates.Add(param.Sym)
		}
		res.readonly[fn.Sym] = candidates
	}

	// Direct mutations disqualify before any propagation happens.
	for _, fn := range p.Funcs {
		if fn.Native {
			continue
		}
		mutated := collectDirectMutations(fn)
		for sym := range mutated {
			res.readonly[fn.Sym].Remove(sym)
		}
	}

	if bound <= 0 {
		bound = totalParams + 2
	}
	for pass := 0; ; pass++ {
		if pass > bound {
			return nil, fmt.Errorf("readonly: fixed point did not converge after %d passes", pass)
		}
		changed := false
		for _, fn := range p.Funcs {
			if fn.Native {
				continue
			}
			if propagateCallSites(p, g, res, fn) {
				changed = true
			}
		}
		if !changed {
			return res, nil
		}
	}
}

// eligible: only non-duplicable growable collections profit from a
// shared-reference signature; everything else passes by value anyway.
func eligible(env *types.Env, param ir.Param) bool {
	t, ok := env.Interner().Lookup(param.Type)
	if !ok {
		return false
	}
	return (t.Kind == types.KindSeq || t.Kind == types.KindMap) && !t.Duplicable()
}

// propagateCallSites removes caller candidates that flow into mutating
// callee positions. Returns true when anything was removed.
func propagateCallSites(p *ir.Program, g *callgraph.Graph, res *Result, fn *ir.Func) bool {
	caller := res.readonly[fn.Sym]
	if caller.Len() == 0 {
		return false
	}
	changed := false
	forEachCallSite(fn.Body, func(callee symbols.SymbolID, args []*ir.Expr) {
		calleeDef := p.Func(callee)
		for i, arg := range args {
			argSym, ok := ir.IdentSym(arg)
			if !ok || !caller.Has(argSym) {
				continue
			}
			if mutatesParamAt(g, res, calleeDef, callee, i) {
				caller.Remove(argSym)
				changed = true
			}
		}
	})
	return changed
}

// mutatesParamAt decides whether position i of callee may mutate its
// argument. Conservative on every unknown: a callee without a
// definition, or a position past the declared parameter list, counts
// as mutating; imprecision here only costs a copy, never correctness.
func mutatesParamAt(g *callgraph.Graph, res *Result, calleeDef *ir.Func, callee symbols.SymbolID, i int) bool {
	if calleeDef == nil {
		return true
	}
	if i >= len(calleeDef.Params) {
		return true
	}
	param := calleeDef.Params[i]
	if g.IsOpaque(callee) {
		// Native: the declared signature is the only truth available.
		return param.Mutable
	}
	return !res.readonly[callee].Has(param.Sym)
}

// collectDirectMutations returns parameters of fn that the body mutates
// structurally (append/remove/index-write), reassigns, or consumes by
// binding into a mutable local. Closure bodies are included: a closure
// that mutates a captured parameter disqualifies it the same way.
func collectDirectMutations(fn *ir.Func) symbols.Set {
	paramSet := make(symbols.Set, len(fn.Params))
	for _, p := range fn.Params {
		paramSet.Add(p.Sym)
	}
	mutated := make(symbols.Set)
	mark := func(e *ir.Expr) {
		if sym, ok := ir.IdentSym(e); ok && paramSet.Has(sym) {
			mutated.Add(sym)
		}
	}
	ir.WalkStmts(fn.Body, func(s *ir.Stmt) {
		switch s.Kind {
		case ir.StmtAppend:
			mark(s.Append.Collection)
		case ir.StmtRemoveElem:
			mark(s.RemoveElem.Collection)
		case ir.StmtSetIndex:
			mark(s.SetIndex.Collection)
		case ir.StmtSet:
			if paramSet.Has(s.Set.Sym) {
				mutated.Add(s.Set.Sym)
			}
		case ir.StmtLet:
			// A parameter bound into a mutable local is consumed:
			// taking it by value turns the copy into a move.
			if s.Let.Mutable {
				mark(s.Let.Value)
			}
		case ir.StmtTransfer:
			// A transferred parameter gives up ownership; it cannot
			// arrive by shared reference.
			mark(s.Transfer.Value)
		case ir.StmtOpaque:
			// Foreign code may do anything with what it references.
			for _, ref := range s.Opaque.Refs {
				if paramSet.Has(ref) {
					mutated.Add(ref)
				}
			}
		}
	})
	return mutated
}

// forEachCallSite visits every call in block, including calls nested in
// expressions and closure bodies, with the callee and argument list.
func forEachCallSite(block []*ir.Stmt, visit func(callee symbols.SymbolID, args []*ir.Expr)) {
	ir.WalkStmts(block, func(s *ir.Stmt) {
		if s.Kind == ir.StmtCall {
			visit(s.Call.Callee, s.Call.Args)
		}
		for _, e := range ir.ChildExprs(s) {
			ir.WalkExpr(e, func(sub *ir.Expr) {
				if sub.Kind == ir.ExprCall {
					visit(sub.Call.Callee, sub.Call.Args)
				}
			})
		}
	})
}
