package decision

import (
	"logos/internal/callgraph"
	"logos/internal/ir"
	"logos/internal/liveness"
	"logos/internal/readonly"
	"logos/internal/source"
	"logos/internal/symbols"
	"logos/internal/types"
)

// ArgDecision is the emission choice for one argument position.
type ArgDecision struct {
	Style CallStyle
	// Sym is set when the argument is a bare variable; NoSymbolID for
	// computed operands.
	Sym symbols.SymbolID
}

// CallDecision is the emission record for one call site.
type CallDecision struct {
	Fn     symbols.SymbolID
	Callee symbols.SymbolID
	Span   source.Span
	Args   []ArgDecision
}

// IndexDecision is the emission record for one element access.
type IndexDecision struct {
	Fn    symbols.SymbolID
	Style IndexStyle
	Span  source.Span
}

// Context is the read-only product of the whole analysis pipeline.
// Once built it is never mutated and may be queried from arbitrarily
// many emission workers without synchronization.
type Context struct {
	Program  *ir.Program
	Graph    *callgraph.Graph
	Readonly *readonly.Result
	Liveness *liveness.Result
	Env      *types.Env

	params      map[symbols.SymbolID][]ParamStyle
	calls       []*CallDecision
	callByExpr  map[*ir.Expr]*CallDecision
	callByStmt  map[*ir.Stmt]*CallDecision
	indexes     []*IndexDecision
	indexByExpr map[*ir.Expr]*IndexDecision
	indexByStmt map[*ir.Stmt]*IndexDecision
	mutable     map[symbols.SymbolID]symbols.Set
}

// Build folds the four analysis products into per-site decisions. It
// performs no dataflow of its own, so it is deterministic: sites are
// recorded in function order and source order within each function.
func Build(p *ir.Program, g *callgraph.Graph, ro *readonly.Result, live *liveness.Result, env *types.Env) *Context {
	ctx := &Context{
		Program:     p,
		Graph:       g,
		Readonly:    ro,
		Liveness:    live,
		Env:         env,
		params:      make(map[symbols.SymbolID][]ParamStyle, len(p.Funcs)),
		callByExpr:  make(map[*ir.Expr]*CallDecision),
		callByStmt:  make(map[*ir.Stmt]*CallDecision),
		indexByExpr: make(map[*ir.Expr]*IndexDecision),
		indexByStmt: make(map[*ir.Stmt]*IndexDecision),
		mutable:     make(map[symbols.SymbolID]symbols.Set, len(p.Funcs)),
	}
	for _, fn := range p.Funcs {
		ctx.params[fn.Sym] = ctx.paramStyles(fn)
		if fn.Native {
			continue
		}
		ctx.mutable[fn.Sym] = collectMutableVars(fn)
		b := &siteBuilder{ctx: ctx, fn: fn, table: live.Func(fn.Sym)}
		b.block(fn.Body)
	}
	return ctx
}

// paramStyles applies the signature rule: a readonly non-duplicable
// parameter is received by reference, everything else by value.
func (c *Context) paramStyles(fn *ir.Func) []ParamStyle {
	styles := make([]ParamStyle, len(fn.Params))
	for i, p := range fn.Params {
		if c.Readonly.IsReadonly(fn.Sym, p.Sym) && !c.Env.Duplicable(p.Sym) {
			styles[i] = ByRef
		}
	}
	return styles
}

// IsReadonly reports whether param of fn is never mutated through any
// call path.
func (c *Context) IsReadonly(fn, param symbols.SymbolID) bool {
	return c.Readonly.IsReadonly(fn, param)
}

// IsLiveAfter reports whether v may be read after top-level statement
// stmtIdx of fn.
func (c *Context) IsLiveAfter(fn symbols.SymbolID, stmtIdx int, v symbols.SymbolID) bool {
	return c.Liveness.IsLiveAfter(fn, stmtIdx, v)
}

// ParamStyles returns the signature decision for fn's parameters.
func (c *Context) ParamStyles(fn symbols.SymbolID) []ParamStyle {
	return c.params[fn]
}

// DecisionForCall returns the record for a call expression site.
func (c *Context) DecisionForCall(site *ir.Expr) *CallDecision {
	return c.callByExpr[site]
}

// DecisionForCallStmt returns the record for a statement-level call,
// transfer or share site.
func (c *Context) DecisionForCallStmt(site *ir.Stmt) *CallDecision {
	return c.callByStmt[site]
}

// DecisionForIndex returns the record for an element read site.
func (c *Context) DecisionForIndex(site *ir.Expr) *IndexDecision {
	return c.indexByExpr[site]
}

// DecisionForIndexStmt returns the record for an element write site.
func (c *Context) DecisionForIndexStmt(site *ir.Stmt) *IndexDecision {
	return c.indexByStmt[site]
}

// Calls returns every call record in deterministic order.
func (c *Context) Calls() []*CallDecision { return c.calls }

// Indexes returns every index record in deterministic order.
func (c *Context) Indexes() []*IndexDecision { return c.indexes }

// MutableVars returns the variables fn mutates after binding: whole
// reassignments, element writes, appends and removals, plus bindings
// the front end declared mutable.
func (c *Context) MutableVars(fn symbols.SymbolID) symbols.Set {
	return c.mutable[fn]
}

// siteBuilder walks one function body attaching decisions to sites.
type siteBuilder struct {
	ctx   *Context
	fn    *ir.Func
	table *liveness.FuncLiveness
}

func (b *siteBuilder) block(block []*ir.Stmt) {
	for _, s := range block {
		if s != nil {
			b.stmt(s)
		}
	}
}

func (b *siteBuilder) stmt(s *ir.Stmt) {
	liveAfter := b.liveAfter(s)
	switch s.Kind {
	case ir.StmtLet:
		// The binding kills the variable's previous value, so an
		// argument naming the redefined variable is always movable:
		// x = f(x) never needs a duplicate of x.
		b.expr(s.Let.Value, liveAfter, s.Let.Sym)

	case ir.StmtSet:
		b.expr(s.Set.Value, liveAfter, s.Set.Sym)

	case ir.StmtIf:
		// The condition's live-after is not the statement's: a branch
		// may read what the statement's live-after has already lost.
		// Header expressions are therefore decided conservatively.
		b.expr(s.If.Cond, nil, symbols.NoSymbolID)
		b.block(s.If.Then)
		b.block(s.If.Else)

	case ir.StmtWhile:
		// The next iteration re-evaluates the condition, so nothing
		// in it may be moved.
		b.expr(s.While.Cond, nil, symbols.NoSymbolID)
		b.block(s.While.Body)

	case ir.StmtForEach:
		// The iteration itself keeps reading the collection.
		b.expr(s.ForEach.Iterable, nil, symbols.NoSymbolID)
		b.block(s.ForEach.Body)

	case ir.StmtSetIndex:
		d := &IndexDecision{Fn: b.fn.Sym, Style: b.indexStyle(s.SetIndex.Collection), Span: s.Span}
		b.ctx.indexes = append(b.ctx.indexes, d)
		b.ctx.indexByStmt[s] = d
		b.expr(s.SetIndex.Collection, liveAfter, symbols.NoSymbolID)
		b.expr(s.SetIndex.Index, liveAfter, symbols.NoSymbolID)
		b.expr(s.SetIndex.Value, liveAfter, symbols.NoSymbolID)

	case ir.StmtCall:
		d := b.callDecision(s.Call.Callee, s.Call.Args, s.Span, liveAfter, symbols.NoSymbolID)
		b.ctx.callByStmt[s] = d
		for _, a := range s.Call.Args {
			b.expr(a, liveAfter, symbols.NoSymbolID)
		}

	case ir.StmtTransfer:
		// Ownership transfer is a move by construction; the checker
		// already validated it.
		d := &CallDecision{Fn: b.fn.Sym, Callee: s.Transfer.To, Span: s.Span}
		sym, _ := ir.IdentSym(s.Transfer.Value)
		d.Args = []ArgDecision{{Style: Move, Sym: sym}}
		b.ctx.calls = append(b.ctx.calls, d)
		b.ctx.callByStmt[s] = d
		b.expr(s.Transfer.Value, liveAfter, symbols.NoSymbolID)

	case ir.StmtShare:
		// A share is a borrow by construction.
		d := &CallDecision{Fn: b.fn.Sym, Callee: s.Share.To, Span: s.Span}
		sym, _ := ir.IdentSym(s.Share.Value)
		d.Args = []ArgDecision{{Style: Borrow, Sym: sym}}
		b.ctx.calls = append(b.ctx.calls, d)
		b.ctx.callByStmt[s] = d
		b.expr(s.Share.Value, liveAfter, symbols.NoSymbolID)

	default:
		for _, e := range ir.ChildExprs(s) {
			b.expr(e, liveAfter, symbols.NoSymbolID)
		}
	}
}

// expr attaches decisions to every call and index site inside e.
// liveAfter is the live set after the enclosing statement (nil means
// "assume everything live"); killed names the variable the statement
// redefines, whose previous value is dead regardless of liveAfter.
func (b *siteBuilder) expr(e *ir.Expr, liveAfter symbols.Set, killed symbols.SymbolID) {
	ir.WalkExpr(e, func(sub *ir.Expr) {
		switch sub.Kind {
		case ir.ExprCall:
			d := b.callDecision(sub.Call.Callee, sub.Call.Args, sub.Span, liveAfter, killed)
			b.ctx.callByExpr[sub] = d
		case ir.ExprIndex:
			d := &IndexDecision{Fn: b.fn.Sym, Style: b.indexStyle(sub.Index.Collection), Span: sub.Span}
			b.ctx.indexes = append(b.ctx.indexes, d)
			b.ctx.indexByExpr[sub] = d
		case ir.ExprClosure:
			// Liveness records nothing for closure bodies, so sites in
			// them are decided without a live-after set: a bare dead
			// argument still duplicates unless the statement itself
			// kills it.
			inner := &siteBuilder{ctx: b.ctx, fn: b.fn}
			inner.block(sub.Closure.Body)
		}
	})
}

// callDecision applies the argument rules in priority order: a
// readonly callee parameter borrows; a bare, non-duplicable, dead
// variable moves; everything else duplicates. A variable may move at
// most once per call, so f(x, x) moves the first x and duplicates the
// second.
func (b *siteBuilder) callDecision(callee symbols.SymbolID, args []*ir.Expr, sp source.Span, liveAfter symbols.Set, killed symbols.SymbolID) *CallDecision {
	d := &CallDecision{Fn: b.fn.Sym, Callee: callee, Span: sp, Args: make([]ArgDecision, len(args))}
	calleeDef := b.ctx.Program.Func(callee)
	var moved symbols.Set
	for i, arg := range args {
		sym, bare := ir.IdentSym(arg)
		if !bare {
			d.Args[i] = ArgDecision{Style: Copy}
			continue
		}
		d.Args[i].Sym = sym
		switch {
		case calleeDef != nil && i < len(calleeDef.Params) &&
			b.ctx.Readonly.IsReadonly(callee, calleeDef.Params[i].Sym):
			d.Args[i].Style = Borrow
		case b.ctx.Env.Duplicable(sym):
			d.Args[i].Style = Copy
		case (sym == killed || b.dead(sym, liveAfter)) && !moved.Has(sym):
			d.Args[i].Style = Move
			if moved == nil {
				moved = make(symbols.Set, 1)
			}
			moved.Add(sym)
		default:
			d.Args[i].Style = Copy
		}
	}
	b.ctx.calls = append(b.ctx.calls, d)
	return d
}

// dead reports whether sym's current value is provably unneeded after
// the enclosing statement. A nil liveAfter means the site sits in a
// header expression where liveness holds no answer, so the value is
// treated as live.
func (b *siteBuilder) dead(sym symbols.SymbolID, liveAfter symbols.Set) bool {
	if liveAfter == nil {
		return false
	}
	return !liveAfter.Has(sym)
}

// liveAfter fetches the statement's recorded live-after set. Return
// statements record nil but nothing is live after them, which the
// empty set expresses.
func (b *siteBuilder) liveAfter(s *ir.Stmt) symbols.Set {
	if b.table == nil {
		return nil
	}
	set, ok := b.table.ByStmt[s]
	if !ok {
		return nil
	}
	if set == nil {
		return make(symbols.Set)
	}
	return set
}

// indexStyle picks direct access when the collection is a variable
// whose element type is statically known, the dynamic fallback
// otherwise.
func (b *siteBuilder) indexStyle(collection *ir.Expr) IndexStyle {
	if sym, ok := ir.IdentSym(collection); ok && b.ctx.Env.ElemKnown(sym) {
		return Direct
	}
	return Dynamic
}

// collectMutableVars gathers every variable the function mutates after
// binding. The backend uses this to pick mutable storage slots.
func collectMutableVars(fn *ir.Func) symbols.Set {
	out := make(symbols.Set)
	ir.WalkStmts(fn.Body, func(s *ir.Stmt) {
		switch s.Kind {
		case ir.StmtLet:
			if s.Let.Mutable {
				out.Add(s.Let.Sym)
			}
		case ir.StmtSet:
			out.Add(s.Set.Sym)
		case ir.StmtSetIndex:
			if sym, ok := ir.IdentSym(s.SetIndex.Collection); ok {
				out.Add(sym)
			}
		case ir.StmtAppend:
			if sym, ok := ir.IdentSym(s.Append.Collection); ok {
				out.Add(sym)
			}
		case ir.StmtRemoveElem:
			if sym, ok := ir.IdentSym(s.RemoveElem.Collection); ok {
				out.Add(sym)
			}
		}
	})
	for _, p := range fn.Params {
		if p.Mutable {
			out.Add(p.Sym)
		}
	}
	return out
}
