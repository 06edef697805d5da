package liveness

import (
	"logos/internal/ir"
	"logos/internal/symbols"
)

// FuncLiveness is the per-function liveness table. LiveAfter[i] holds
// the variables that may still be read after top-level statement i of
// the function body; ByStmt holds the same information for every
// statement, nested blocks included, keyed by node identity.
type FuncLiveness struct {
	LiveAfter []symbols.Set
	ByStmt    map[*ir.Stmt]symbols.Set
}

// Result aggregates liveness tables for a whole program.
//
// Liveness never rejects a program; it only tells the decision layer
// when a value's current binding is dead so the emitter may move it
// instead of duplicating. Unknown functions and out-of-range indices
// answer false, which costs a duplicate, never correctness.
type Result struct {
	funcs map[symbols.SymbolID]*FuncLiveness
}

// NewResult creates an empty result; the driver fills it one function
// at a time (the analysis is purely per-function).
func NewResult(capHint int) *Result {
	return &Result{funcs: make(map[symbols.SymbolID]*FuncLiveness, capHint)}
}

// Put stores the table for fn.
func (r *Result) Put(fn symbols.SymbolID, fl *FuncLiveness) {
	r.funcs[fn] = fl
}

// Func returns the table for fn, or nil.
func (r *Result) Func(fn symbols.SymbolID) *FuncLiveness {
	return r.funcs[fn]
}

// IsLiveAfter reports whether v may be read after top-level statement
// stmtIdx of fn.
func (r *Result) IsLiveAfter(fn symbols.SymbolID, stmtIdx int, v symbols.SymbolID) bool {
	fl := r.funcs[fn]
	if fl == nil || stmtIdx < 0 || stmtIdx >= len(fl.LiveAfter) {
		return false
	}
	return fl.LiveAfter[stmtIdx].Has(v)
}

// IsLiveAfterStmt reports whether v may be read after statement s of
// fn, at any nesting depth. Statements inside loop bodies carry the
// loop's fixed-point sets, so a next-iteration read keeps v live here.
func (r *Result) IsLiveAfterStmt(fn symbols.SymbolID, s *ir.Stmt, v symbols.SymbolID) bool {
	fl := r.funcs[fn]
	if fl == nil {
		return false
	}
	set, ok := fl.ByStmt[s]
	if !ok {
		// Statement unknown to the table: assume live.
		return true
	}
	return set.Has(v)
}

// LiveAfter returns the live-after set for stmtIdx of fn (nil when
// unknown).
func (r *Result) LiveAfter(fn symbols.SymbolID, stmtIdx int) symbols.Set {
	fl := r.funcs[fn]
	if fl == nil || stmtIdx < 0 || stmtIdx >= len(fl.LiveAfter) {
		return nil
	}
	return fl.LiveAfter[stmtIdx]
}

// Analyze computes liveness for every non-native function in p.
func Analyze(p *ir.Program) *Result {
	res := NewResult(len(p.Funcs))
	for _, fn := range p.Funcs {
		if fn.Native {
			continue
		}
		res.Put(fn.Sym, AnalyzeFunc(fn))
	}
	return res
}

// AnalyzeFunc runs the backward dataflow over one function body.
// Returns are terminators: nothing is live after them, and dead code
// behind one cannot leak liveness backward past it.
func AnalyzeFunc(fn *ir.Func) *FuncLiveness {
	n := len(fn.Body)
	fl := &FuncLiveness{
		LiveAfter: make([]symbols.Set, n),
		ByStmt:    make(map[*ir.Stmt]symbols.Set, n*2),
	}
	a := &analysis{fl: fl}
	var current symbols.Set
	for i := n - 1; i >= 0; i-- {
		s := fn.Body[i]
		if s.Kind == ir.StmtReturn {
			fl.LiveAfter[i] = nil
			fl.ByStmt[s] = nil
			current = make(symbols.Set)
			ir.FreeVars(s.Return.Value, current)
			continue
		}
		fl.LiveAfter[i] = current.Clone()
		fl.ByStmt[s] = fl.LiveAfter[i]
		current = a.before(s, current)
	}
	return fl
}

type analysis struct {
	fl *FuncLiveness
}

// before applies the statement transfer function right-to-left: given
// what is live after s, compute what is live before it.
func (a *analysis) before(s *ir.Stmt, liveOut symbols.Set) symbols.Set {
	switch s.Kind {
	case ir.StmtReturn:
		out := make(symbols.Set)
		ir.FreeVars(s.Return.Value, out)
		return out

	case ir.StmtLet:
		// A fresh binding kills the variable flowing backward and
		// generates the uses of its right-hand side.
		out := ensure(liveOut.Clone())
		out.Remove(s.Let.Sym)
		ir.FreeVars(s.Let.Value, out)
		return out

	case ir.StmtSet:
		out := ensure(liveOut.Clone())
		out.Remove(s.Set.Sym)
		ir.FreeVars(s.Set.Value, out)
		return out

	case ir.StmtSetIndex:
		// Element writes are partial updates: the collection binding
		// itself stays live through them.
		out := ensure(liveOut.Clone())
		ir.FreeVars(s.SetIndex.Collection, out)
		ir.FreeVars(s.SetIndex.Index, out)
		ir.FreeVars(s.SetIndex.Value, out)
		return out

	case ir.StmtIf:
		thenIn := a.block(s.If.Then, liveOut)
		elseIn := liveOut
		if len(s.If.Else) > 0 {
			elseIn = a.block(s.If.Else, liveOut)
		}
		out := make(symbols.Set)
		ir.FreeVars(s.If.Cond, out)
		out = symbols.Union(out, thenIn)
		out = symbols.Union(out, elseIn)
		return out

	case ir.StmtWhile:
		return a.loop(s.While.Body, s.While.Cond, nil, liveOut)

	case ir.StmtForEach:
		return a.loop(s.ForEach.Body, s.ForEach.Iterable, s.ForEach.Pattern, liveOut)

	case ir.StmtOpaque:
		out := ensure(liveOut.Clone())
		for _, ref := range s.Opaque.Refs {
			out.Add(ref)
		}
		return out

	default:
		// Straight-line statements generate their operand uses.
		out := ensure(liveOut.Clone())
		for _, e := range ir.ChildExprs(s) {
			ir.FreeVars(e, out)
		}
		return out
	}
}

// loop iterates the loop transfer function until the live set entering
// the loop stabilizes. A single backward pass is not enough: a
// variable read early in the body may be produced late in the previous
// iteration, so the body's live-in feeds back into its own live-out.
// The lattice is a finite set union, so this terminates. The last pass
// runs at the fixed point, which is what ByStmt records for the body.
func (a *analysis) loop(body []*ir.Stmt, header *ir.Expr, pattern []symbols.SymbolID, liveOut symbols.Set) symbols.Set {
	bound := make(symbols.Set, len(pattern))
	for _, p := range pattern {
		bound.Add(p)
	}
	loopLive := ensure(liveOut.Clone())
	ir.FreeVars(header, loopLive)
	for {
		bodyIn := a.block(body, loopLive)
		next := ensure(liveOut.Clone())
		ir.FreeVars(header, next)
		for sym := range bodyIn {
			if !bound.Has(sym) {
				next.Add(sym)
			}
		}
		if symbols.SetEqual(next, loopLive) {
			return loopLive
		}
		loopLive = next
	}
}

// block runs the backward pass over a nested block, recording each
// inner statement's live-after set.
func (a *analysis) block(block []*ir.Stmt, liveOut symbols.Set) symbols.Set {
	current := ensure(liveOut.Clone())
	for i := len(block) - 1; i >= 0; i-- {
		s := block[i]
		if s == nil {
			continue
		}
		if s.Kind == ir.StmtReturn {
			// Nothing on this path survives the return.
			a.fl.ByStmt[s] = nil
		} else {
			a.fl.ByStmt[s] = current.Clone()
		}
		current = a.before(s, current)
	}
	return current
}

func ensure(s symbols.Set) symbols.Set {
	if s == nil {
		return make(symbols.Set)
	}
	return s
}
