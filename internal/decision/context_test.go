package decision

import (
	"testing"

	"logos/internal/callgraph"
	"logos/internal/ir"
	"logos/internal/liveness"
	"logos/internal/readonly"
	"logos/internal/symbols"
	"logos/internal/testkit"
	"logos/internal/types"
)

func build(t *testing.T, pb *testkit.ProgramBuilder) *Context {
	t.Helper()
	p := pb.Build()
	g := callgraph.Build(p)
	ro, err := readonly.Analyze(p, g, pb.Env, 0)
	if err != nil {
		t.Fatalf("readonly: %v", err)
	}
	return Build(p, g, ro, liveness.Analyze(p), pb.Env)
}

// A readonly non-duplicable parameter is received by reference;
// everything else by value.
func TestParamStyles(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Param("n", types.MakeInt())
	f.Param("ws", seq)
	f.Return(f.Index(f.Ident("xs"), f.Ident("n")))
	f.Append(f.Int(1), f.Ident("ws")) // unreachable, but mutating

	ctx := build(t, pb)
	styles := ctx.ParamStyles(pb.Table.Function("f"))
	if len(styles) != 3 {
		t.Fatalf("want 3 param styles, got %d", len(styles))
	}
	if styles[0] != ByRef {
		t.Errorf("readonly collection param should be ByRef, got %v", styles[0])
	}
	if styles[1] != ByValue {
		t.Errorf("scalar param should be ByValue, got %v", styles[1])
	}
	if styles[2] != ByValue {
		t.Errorf("mutated collection param should be ByValue, got %v", styles[2])
	}
}

// The argument rules in priority order, at one call site each.
func TestCallArgumentStyles(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	// Callee with a readonly first param and a mutating second param.
	callee := pb.Func("consume")
	callee.Param("ro", seq)
	callee.Param("mut", seq)
	callee.Return(callee.Index(callee.Ident("ro"), callee.Int(0)))
	callee.Append(callee.Int(1), callee.Ident("mut"))

	f := pb.Func("f")
	f.Param("a", seq)
	f.Param("b", seq)
	f.Call("consume", f.Ident("a"), f.Ident("b")) // 0: last use of both

	ctx := build(t, pb)
	fn := pb.Table.Function("f")
	d := lastCall(ctx, fn)
	if d == nil {
		t.Fatalf("no call decision recorded for f")
	}
	if d.Args[0].Style != Borrow {
		t.Errorf("readonly callee position: want Borrow, got %v", d.Args[0].Style)
	}
	if d.Args[1].Style != Move {
		t.Errorf("dead non-duplicable arg in mutating position: want Move, got %v", d.Args[1].Style)
	}
}

// A value still needed after the call is duplicated.
func TestLiveArgumentIsCopied(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	sink := pb.Func("sink")
	sink.Param("v", seq)
	sink.Append(sink.Int(1), sink.Ident("v"))

	f := pb.Func("f")
	f.Param("a", seq)
	f.Call("sink", f.Ident("a"))              // 0: a still live
	f.Return(f.Index(f.Ident("a"), f.Int(0))) // 1

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style != Copy {
		t.Errorf("live non-duplicable arg: want Copy, got %v", d.Args[0].Style)
	}
}

// Duplicable arguments copy regardless of liveness.
func TestDuplicableArgumentIsCopied(t *testing.T) {
	pb := testkit.NewProgram()

	sink := pb.Func("sink")
	sink.Param("v", types.MakeInt())
	sink.Set("v", sink.Int(0))

	f := pb.Func("f")
	f.Param("n", types.MakeInt())
	f.Call("sink", f.Ident("n"))

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style != Copy {
		t.Errorf("duplicable arg: want Copy, got %v", d.Args[0].Style)
	}
}

// x = f(x): the binding kills the old value, so the argument moves even
// though the name is live afterwards.
func TestRebindKillsTheArgument(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	grow := pb.Func("grow")
	grow.Param("v", seq)
	grow.Append(grow.Int(1), grow.Ident("v"))
	grow.Return(grow.Ident("v"))

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Set("xs", f.CallExpr("grow", f.Ident("xs"))) // 0
	f.Return(f.Index(f.Ident("xs"), f.Int(0)))     // 1: xs live after 0

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style != Move {
		t.Errorf("x = f(x) should move the old value, got %v", d.Args[0].Style)
	}
}

// Header expressions never move: the next iteration reads them again.
func TestHeaderCallsAreConservative(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	pick := pb.Func("pick")
	pick.Param("v", seq)
	pick.Append(pick.Int(1), pick.Ident("v"))
	pick.Return(pick.Bool(true))

	f := pb.Func("f")
	f.Param("xs", seq)
	f.While(f.CallExpr("pick", f.Ident("xs")), func() {
		f.Call("noop")
	})

	pb.Func("noop")

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style == Move {
		t.Errorf("a loop condition argument must never move")
	}
}

// Computed arguments are temporaries; they always copy.
func TestComputedArgumentCopies(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	sink := pb.Func("sink")
	sink.Param("v", seq)
	sink.Append(sink.Int(1), sink.Ident("v"))

	f := pb.Func("f")
	f.Call("sink", f.List(f.Int(1), f.Int(2)))

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style != Copy {
		t.Errorf("computed arg: want Copy, got %v", d.Args[0].Style)
	}
}

// Sites inside closure bodies are recorded too. Liveness holds no
// answer there, so their arguments never move on deadness alone.
func TestClosureBodySitesGetDecisions(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	sink := pb.Func("sink")
	sink.Param("v", seq)
	sink.Append(sink.Int(1), sink.Ident("v"))

	f := pb.Func("f")
	f.Param("xs", seq)
	var inner *ir.Stmt
	f.Let("each", f.Closure(nil, func() {
		inner = f.Call("sink", f.Ident("xs"))
		f.Let("head", f.Index(f.Ident("xs"), f.Int(0)))
	}))

	ctx := build(t, pb)
	d := ctx.DecisionForCallStmt(inner)
	if d == nil {
		t.Fatalf("call site inside a closure body has no decision record")
	}
	if d.Args[0].Style == Move {
		t.Errorf("closure body argument must not move, got %v", d.Args[0].Style)
	}
	idx := ctx.Indexes()
	if len(idx) != 1 {
		t.Fatalf("want 1 index decision from the closure body, got %d", len(idx))
	}
	if idx[0].Style != Direct {
		t.Errorf("typed collection in closure body: want Direct, got %v", idx[0].Style)
	}
}

// f(x, x) with x dead moves at most one occurrence.
func TestRepeatedArgumentMovesOnce(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	pair := pb.Func("pair")
	pair.Param("a", seq)
	pair.Param("b", seq)
	pair.Append(pair.Int(1), pair.Ident("a"))
	pair.Append(pair.Int(2), pair.Ident("b"))

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Call("pair", f.Ident("xs"), f.Ident("xs"))

	ctx := build(t, pb)
	d := firstCall(ctx, pb.Table.Function("f"))
	if d.Args[0].Style != Move {
		t.Errorf("first dead occurrence: want Move, got %v", d.Args[0].Style)
	}
	if d.Args[1].Style != Copy {
		t.Errorf("second occurrence of a moved value: want Copy, got %v", d.Args[1].Style)
	}
}

// Index sites are direct when the element type is known, dynamic
// otherwise.
func TestIndexStyles(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Param("any", types.MakeUnknown())
	f.Let("a", f.Index(f.Ident("xs"), f.Int(0)))
	f.Let("b", f.Index(f.Ident("any"), f.Int(0)))

	ctx := build(t, pb)
	idx := ctx.Indexes()
	if len(idx) != 2 {
		t.Fatalf("want 2 index decisions, got %d", len(idx))
	}
	if idx[0].Style != Direct {
		t.Errorf("typed collection: want Direct, got %v", idx[0].Style)
	}
	if idx[1].Style != Dynamic {
		t.Errorf("unknown element type: want Dynamic, got %v", idx[1].Style)
	}
}

// Transfer and Share statements are recorded as Move and Borrow sites.
func TestTransferAndShareRecords(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Share(f.Ident("xs"), "look")
	f.Transfer(f.Ident("xs"), "take")

	look := pb.Func("look")
	look.Param("v", seq)
	take := pb.Func("take")
	take.Param("v", seq)

	ctx := build(t, pb)
	calls := callsOf(ctx, pb.Table.Function("f"))
	if len(calls) != 2 {
		t.Fatalf("want 2 call records, got %d", len(calls))
	}
	if calls[0].Args[0].Style != Borrow {
		t.Errorf("share: want Borrow, got %v", calls[0].Args[0].Style)
	}
	if calls[1].Args[0].Style != Move {
		t.Errorf("transfer: want Move, got %v", calls[1].Args[0].Style)
	}
}

// Decisions are retrievable by site.
func TestDecisionBySite(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	sink := pb.Func("sink")
	sink.Param("v", seq)
	sink.Append(sink.Int(1), sink.Ident("v"))

	f := pb.Func("f")
	f.Param("xs", seq)
	call := f.Call("sink", f.Ident("xs"))
	setIdx := f.SetIndex(f.Ident("xs"), f.Int(0), f.Int(9))

	ctx := build(t, pb)
	if d := ctx.DecisionForCallStmt(call); d == nil || d.Callee != pb.Table.Function("sink") {
		t.Errorf("call statement lookup failed")
	}
	if d := ctx.DecisionForIndexStmt(setIdx); d == nil {
		t.Errorf("index statement lookup failed")
	}
	if d := ctx.DecisionForCallStmt(setIdx); d != nil {
		t.Errorf("a non-call statement has no call decision")
	}
}

func TestMutableVars(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.LetMut("count", f.Int(0))
	f.Let("label", f.Text("x"))
	f.Set("count", f.Int(1))
	f.Append(f.Int(2), f.Ident("xs"))

	ctx := build(t, pb)
	mut := ctx.MutableVars(pb.Table.Function("f"))
	if !mut.Has(f.Sym("count")) {
		t.Errorf("reassigned local is mutable")
	}
	if !mut.Has(f.Sym("xs")) {
		t.Errorf("appended collection is mutable")
	}
	if mut.Has(f.Sym("label")) {
		t.Errorf("untouched binding is not mutable")
	}
}

// Two builds over the same program produce identical decision streams.
func TestDeterminism(t *testing.T) {
	run := func() ([]CallStyle, []IndexStyle) {
		pb := testkit.NewProgram()
		seq := testkit.SeqOfInt(pb.Env)

		sink := pb.Func("sink")
		sink.Param("v", seq)
		sink.Append(sink.Int(1), sink.Ident("v"))

		f := pb.Func("f")
		f.Param("xs", seq)
		f.Let("a", f.Index(f.Ident("xs"), f.Int(0)))
		f.Call("sink", f.Ident("xs"))
		f.Transfer(f.List(f.Int(1)), "sink")

		p := pb.Build()
		g := callgraph.Build(p)
		ro, _ := readonly.Analyze(p, g, pb.Env, 0)
		ctx := Build(p, g, ro, liveness.Analyze(p), pb.Env)

		var cs []CallStyle
		for _, c := range ctx.Calls() {
			for _, a := range c.Args {
				cs = append(cs, a.Style)
			}
		}
		var is []IndexStyle
		for _, i := range ctx.Indexes() {
			is = append(is, i.Style)
		}
		return cs, is
	}

	c1, i1 := run()
	c2, i2 := run()
	if len(c1) != len(c2) || len(i1) != len(i2) {
		t.Fatalf("decision counts differ between runs")
	}
	for i := range c1 {
		if c1[i] != c2[i] {
			t.Errorf("call style %d differs between runs", i)
		}
	}
	for i := range i1 {
		if i1[i] != i2[i] {
			t.Errorf("index style %d differs between runs", i)
		}
	}
}

func callsOf(ctx *Context, fn symbols.SymbolID) []*CallDecision {
	var out []*CallDecision
	for _, c := range ctx.Calls() {
		if c.Fn == fn {
			out = append(out, c)
		}
	}
	return out
}

func firstCall(ctx *Context, fn symbols.SymbolID) *CallDecision {
	calls := callsOf(ctx, fn)
	if len(calls) == 0 {
		return nil
	}
	return calls[0]
}

func lastCall(ctx *Context, fn symbols.SymbolID) *CallDecision {
	calls := callsOf(ctx, fn)
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}
