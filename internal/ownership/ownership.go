package ownership

import (
	"fmt"
	"slices"

	"logos/internal/diag"
	"logos/internal/ir"
	"logos/internal/source"
	"logos/internal/symbols"
	"logos/internal/types"
)

// state is the per-variable ownership tag at one program point.
type state uint8

const (
	// stateOwned is the default: the binding holds a live value. Absent
	// map entries mean owned, so only degraded variables are tracked.
	stateOwned state = iota
	// stateMoved: the value was transferred out on every path here.
	stateMoved
	// stateMaybeMoved: the value was transferred on some branches only.
	stateMaybeMoved
)

// varState pairs a tag with the span of the transfer that caused it,
// so use-after-move reports can point at both sites.
type varState struct {
	st      state
	movedAt source.Span
}

// Check validates linear ownership for every non-native function in p
// and returns the sorted diagnostics. Duplicable values never move, so
// only text, sequence, map, record and variant bindings are tracked.
func Check(p *ir.Program, env *types.Env, tab *symbols.Table, maxDiags int) *diag.Bag {
	bag := diag.NewBag(maxDiags)
	for _, fn := range p.Funcs {
		if fn.Native {
			continue
		}
		bag.Merge(CheckFunc(fn, env, tab, maxDiags))
	}
	bag.Sort()
	return bag
}

// CheckFunc validates one function body in isolation. The analysis is
// purely per-function: transfers inside callees are their problem.
func CheckFunc(fn *ir.Func, env *types.Env, tab *symbols.Table, maxDiags int) *diag.Bag {
	c := &checker{
		env:  env,
		tab:  tab,
		bag:  diag.NewBag(maxDiags),
		vars: make(map[symbols.SymbolID]varState),
	}
	c.checkBlock(fn.Body)
	return c.bag
}

type checker struct {
	env  *types.Env
	tab  *symbols.Table
	bag  *diag.Bag
	vars map[symbols.SymbolID]varState

	// loop is non-nil during the confirmation pass over a loop body.
	// Violations there mean the body consumes something the next
	// iteration needs, which is its own error, reported once per
	// variable instead of once per use.
	loop *loopPass
}

type loopPass struct {
	movedByBody symbols.Set
	flagged     symbols.Set
}

func (c *checker) checkBlock(block []*ir.Stmt) {
	for _, s := range block {
		if s != nil {
			c.checkStmt(s)
		}
	}
}

func (c *checker) checkStmt(s *ir.Stmt) {
	switch s.Kind {
	case ir.StmtLet:
		c.checkExpr(s.Let.Value)
		c.moveOnRebind(s.Let.Value)
		c.setOwned(s.Let.Sym)

	case ir.StmtSet:
		c.checkExpr(s.Set.Value)
		c.moveOnRebind(s.Set.Value)
		// The assignment installs a fresh value, reviving the binding
		// even if a branch moved it earlier.
		c.setOwned(s.Set.Sym)

	case ir.StmtIf:
		c.checkExpr(s.If.Cond)
		entry := cloneStates(c.vars)
		c.checkBlock(s.If.Then)
		thenOut := c.vars
		c.vars = cloneStates(entry)
		c.checkBlock(s.If.Else)
		c.vars = mergeStates(thenOut, c.vars)

	case ir.StmtWhile:
		c.checkLoop(s.While.Cond, nil, s.While.Body)

	case ir.StmtForEach:
		c.checkLoop(s.ForEach.Iterable, s.ForEach.Pattern, s.ForEach.Body)

	case ir.StmtTransfer:
		c.checkTransfer(s)

	case ir.StmtShare:
		// A share lends the value read-only; the tag is untouched.
		c.checkExpr(s.Share.Value)

	case ir.StmtOpaque:
		c.checkOpaque(s)

	default:
		for _, e := range ir.ChildExprs(s) {
			c.checkExpr(e)
		}
	}
}

// checkTransfer handles the move itself. Only a bare non-duplicable
// identifier actually changes ownership; a computed operand is a
// temporary the transfer consumes without touching any binding.
func (c *checker) checkTransfer(s *ir.Stmt) {
	sym, bare := ir.IdentSym(s.Transfer.Value)
	if !bare || c.env.Duplicable(sym) {
		c.checkExpr(s.Transfer.Value)
		return
	}
	sp := s.Transfer.Value.Span
	switch vs := c.vars[sym]; vs.st {
	case stateMoved:
		if c.reportLoop(sym, sp, vs.movedAt) {
			break
		}
		c.bag.Add(diag.NewError(diag.OwnDoubleTransfer, sp,
			fmt.Sprintf("'%s' is transferred twice", c.tab.Name(sym))).
			WithNote(vs.movedAt, "first transferred here").
			WithFix(fmt.Sprintf("duplicate '%s' for the second transfer", c.tab.Name(sym)),
				diag.FixEdit{Span: sp, NewText: "duplicate of " + c.tab.Name(sym)}))
	case stateMaybeMoved:
		if c.reportLoop(sym, sp, vs.movedAt) {
			break
		}
		c.bag.Add(diag.NewError(diag.OwnUseAfterMaybeMove, sp,
			fmt.Sprintf("'%s' may already be transferred on a previous branch", c.tab.Name(sym))).
			WithNote(vs.movedAt, "transferred on this branch").
			WithFix(fmt.Sprintf("duplicate '%s' instead of transferring it", c.tab.Name(sym)),
				diag.FixEdit{Span: vs.movedAt, NewText: "duplicate of " + c.tab.Name(sym)}))
	}
	c.markMoved(sym, sp)
}

// checkOpaque consumes every variable a foreign block references. The
// analyzer cannot see what the foreign code does, so each referenced
// binding is treated as fully transferred at block entry. False
// positives on read-only uses are the accepted price for never letting
// a genuine move slip through.
func (c *checker) checkOpaque(s *ir.Stmt) {
	for _, ref := range s.Opaque.Refs {
		c.checkRead(ref, s.Span)
		if !c.env.Duplicable(ref) {
			c.markMoved(ref, s.Span)
		}
	}
}

// checkLoop analyzes the body once to collect moves, then replays it
// to confirm that nothing moved by one iteration is needed by the
// next. A loop may also run zero times, so the post-loop state is the
// merge of the entry state with the body's exit state.
func (c *checker) checkLoop(header *ir.Expr, pattern []symbols.SymbolID, body []*ir.Stmt) {
	c.checkExpr(header)
	entry := cloneStates(c.vars)

	c.bindPattern(pattern)
	c.checkBlock(body)

	movedByBody := make(symbols.Set)
	for sym, vs := range c.vars {
		if vs.st == stateOwned {
			continue
		}
		if pre, ok := entry[sym]; !ok || pre.st == stateOwned {
			movedByBody.Add(sym)
		}
	}

	if len(movedByBody) > 0 {
		saved := c.loop
		c.loop = &loopPass{movedByBody: movedByBody, flagged: make(symbols.Set)}
		c.bindPattern(pattern)
		replay := cloneStates(c.vars)
		c.checkBlock(body)
		c.vars = replay
		c.loop = saved
	}

	c.vars = mergeStates(entry, c.vars)
}

// reportLoop emits the next-iteration diagnostic when the violation
// happens during a loop confirmation pass, deduplicated per variable.
// Returns true when the violation was handled (or already reported).
func (c *checker) reportLoop(sym symbols.SymbolID, use, movedAt source.Span) bool {
	if c.loop == nil || !c.loop.movedByBody.Has(sym) {
		return c.loop != nil // replayed pass-one error, already reported
	}
	if !c.loop.flagged.Has(sym) {
		c.loop.flagged.Add(sym)
		c.bag.Add(diag.NewError(diag.OwnLoopTransfer, use,
			fmt.Sprintf("loop transfers '%s' but the next iteration still needs it", c.tab.Name(sym))).
			WithNote(movedAt, "transferred here on the previous iteration").
			WithFix(fmt.Sprintf("duplicate '%s' inside the loop body", c.tab.Name(sym)),
				diag.FixEdit{Span: movedAt, NewText: "duplicate of " + c.tab.Name(sym)}))
	}
	return true
}

// checkExpr verifies every variable the expression reads against the
// current ownership tags, in source order. Closure bodies count as
// reads of their captured variables at the definition site.
func (c *checker) checkExpr(e *ir.Expr) {
	ir.WalkExpr(e, func(sub *ir.Expr) {
		switch sub.Kind {
		case ir.ExprIdent:
			c.checkRead(sub.Ident.Sym, sub.Span)
		case ir.ExprClosure:
			captured := make(symbols.Set)
			ir.FreeVars(sub, captured)
			for _, sym := range sortedSyms(captured) {
				c.checkRead(sym, sub.Span)
			}
		}
	})
}

func (c *checker) checkRead(sym symbols.SymbolID, sp source.Span) {
	vs, ok := c.vars[sym]
	if !ok || vs.st == stateOwned {
		return
	}
	if c.reportLoop(sym, sp, vs.movedAt) {
		return
	}
	name := c.tab.Name(sym)
	switch vs.st {
	case stateMoved:
		c.bag.Add(diag.NewError(diag.OwnUseAfterMove, sp,
			fmt.Sprintf("use of moved value '%s'", name)).
			WithNote(vs.movedAt, "value was transferred here").
			WithFix(fmt.Sprintf("duplicate '%s' instead of transferring it", name),
				diag.FixEdit{Span: vs.movedAt, NewText: "duplicate of " + name}))
	case stateMaybeMoved:
		c.bag.Add(diag.NewError(diag.OwnUseAfterMaybeMove, sp,
			fmt.Sprintf("use of possibly moved value '%s'", name)).
			WithNote(vs.movedAt, "transferred on this branch only").
			WithFix(fmt.Sprintf("duplicate '%s' instead of transferring it", name),
				diag.FixEdit{Span: vs.movedAt, NewText: "duplicate of " + name}))
	}
}

// moveOnRebind treats a bare non-duplicable identifier on the right of
// a binding as a move: the old name hands its value to the new one.
func (c *checker) moveOnRebind(value *ir.Expr) {
	sym, bare := ir.IdentSym(value)
	if !bare || c.env.Duplicable(sym) {
		return
	}
	c.markMoved(sym, value.Span)
}

func (c *checker) markMoved(sym symbols.SymbolID, sp source.Span) {
	c.vars[sym] = varState{st: stateMoved, movedAt: sp}
}

func (c *checker) setOwned(sym symbols.SymbolID) {
	delete(c.vars, sym)
}

func (c *checker) bindPattern(pattern []symbols.SymbolID) {
	for _, sym := range pattern {
		c.setOwned(sym)
	}
}

func cloneStates(m map[symbols.SymbolID]varState) map[symbols.SymbolID]varState {
	out := make(map[symbols.SymbolID]varState, len(m))
	for sym, vs := range m {
		out[sym] = vs
	}
	return out
}

// mergeStates joins two branch outcomes. A variable moved on every
// path stays moved; one moved on some paths only becomes maybe-moved,
// which is still an error to read but reports with branch wording.
func mergeStates(a, b map[symbols.SymbolID]varState) map[symbols.SymbolID]varState {
	out := make(map[symbols.SymbolID]varState, len(a)+len(b))
	for sym, av := range a {
		if av.st == stateOwned {
			continue
		}
		bv, ok := b[sym]
		if ok && bv.st != stateOwned {
			st := stateMoved
			if av.st == stateMaybeMoved || bv.st == stateMaybeMoved {
				st = stateMaybeMoved
			}
			out[sym] = varState{st: st, movedAt: av.movedAt}
			continue
		}
		out[sym] = varState{st: stateMaybeMoved, movedAt: av.movedAt}
	}
	for sym, bv := range b {
		if bv.st == stateOwned {
			continue
		}
		if _, seen := out[sym]; seen {
			continue
		}
		out[sym] = varState{st: stateMaybeMoved, movedAt: bv.movedAt}
	}
	return out
}

func sortedSyms(set symbols.Set) []symbols.SymbolID {
	out := make([]symbols.SymbolID, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}
