package readonly

import (
	"testing"

	"logos/internal/callgraph"
	"logos/internal/testkit"
	"logos/internal/types"
)

const bound = 1000

func analyze(t *testing.T, pb *testkit.ProgramBuilder) *Result {
	t.Helper()
	p := pb.Build()
	g := callgraph.Build(p)
	res, err := Analyze(p, g, pb.Env, bound)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return res
}

// A function that only reads its collection by index keeps the
// parameter readonly; an appender does not.
func TestIndexReaderIsReadonlyAppenderIsNot(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	reader := pb.Func("reader")
	reader.Param("xs", seq)
	reader.Return(reader.Index(reader.Ident("xs"), reader.Int(0)))

	grower := pb.Func("grower")
	grower.Param("xs", seq)
	grower.Append(grower.Int(1), grower.Ident("xs"))

	res := analyze(t, pb)

	if !res.IsReadonly(pb.Table.Function("reader"), reader.Sym("xs")) {
		t.Errorf("index-only reader should keep its parameter readonly")
	}
	if res.IsReadonly(pb.Table.Function("grower"), grower.Sym("xs")) {
		t.Errorf("appending disqualifies the parameter")
	}
}

func TestDuplicableParamsAreNotEligible(t *testing.T) {
	pb := testkit.NewProgram()

	f := pb.Func("f")
	f.Param("n", types.MakeInt())
	f.Return(f.Ident("n"))

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("f"), f.Sym("n")) {
		t.Errorf("scalar parameters pass by value and are never readonly")
	}
}

// Passing a readonly candidate into a mutating position disqualifies it
// transitively.
func TestTransitiveDisqualification(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	outer := pb.Func("outer")
	outer.Param("xs", seq)
	outer.Call("inner", outer.Ident("xs"))

	inner := pb.Func("inner")
	inner.Param("ys", seq)
	inner.Append(inner.Int(1), inner.Ident("ys"))

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("outer"), outer.Sym("xs")) {
		t.Errorf("xs flows into a mutating callee position; not readonly")
	}
	if res.IsReadonly(pb.Table.Function("inner"), inner.Sym("ys")) {
		t.Errorf("inner mutates ys directly")
	}
}

// Mutual recursion converges: two functions passing a collection back
// and forth, neither mutating, both stay readonly.
func TestMutualRecursionConvergesReadonly(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	ping := pb.Func("ping")
	ping.Param("xs", seq)
	ping.Call("pong", ping.Ident("xs"))

	pong := pb.Func("pong")
	pong.Param("ys", seq)
	pong.Call("ping", pong.Ident("ys"))

	res := analyze(t, pb)
	if !res.IsReadonly(pb.Table.Function("ping"), ping.Sym("xs")) {
		t.Errorf("ping never mutates xs, even through the cycle")
	}
	if !res.IsReadonly(pb.Table.Function("pong"), pong.Sym("ys")) {
		t.Errorf("pong never mutates ys, even through the cycle")
	}
}

func TestMutationInsideCycleDisqualifiesBoth(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	ping := pb.Func("ping")
	ping.Param("xs", seq)
	ping.Call("pong", ping.Ident("xs"))

	pong := pb.Func("pong")
	pong.Param("ys", seq)
	pong.Append(pong.Int(1), pong.Ident("ys"))
	pong.Call("ping", pong.Ident("ys"))

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("ping"), ping.Sym("xs")) {
		t.Errorf("xs reaches pong's mutated parameter")
	}
	if res.IsReadonly(pb.Table.Function("pong"), pong.Sym("ys")) {
		t.Errorf("pong mutates ys directly")
	}
}

// Native callees are judged by their declared signatures.
func TestNativeSignatureDecides(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)
	pb.NativeFunc("inspect", testkit.P("xs", seq))
	pb.NativeFunc("scramble", testkit.PMut("xs", seq))

	fa := pb.Func("safe")
	fa.Param("xs", seq)
	fa.Call("inspect", fa.Ident("xs"))

	fb := pb.Func("unsafe")
	fb.Param("xs", seq)
	fb.Call("scramble", fb.Ident("xs"))

	res := analyze(t, pb)
	if !res.IsReadonly(pb.Table.Function("safe"), fa.Sym("xs")) {
		t.Errorf("a read-only native signature preserves readonly")
	}
	if res.IsReadonly(pb.Table.Function("unsafe"), fb.Sym("xs")) {
		t.Errorf("a mutable native signature disqualifies the argument")
	}
}

// A callee with no definition at all is assumed to mutate everything.
func TestUnknownCalleeDisqualifies(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Call("vanished", f.Ident("xs"))

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("f"), f.Sym("xs")) {
		t.Errorf("unknown callees must be assumed to mutate")
	}
}

// Giving up ownership is incompatible with a shared-reference signature.
func TestTransferDisqualifies(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Transfer(f.Ident("xs"), "sink")

	sink := pb.Func("sink")
	sink.Param("xs", seq)

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("f"), f.Sym("xs")) {
		t.Errorf("transferred parameters cannot be readonly")
	}
}

func TestOpaqueReferenceDisqualifies(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Opaque("native code", "xs")

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("f"), f.Sym("xs")) {
		t.Errorf("opaque blocks may mutate anything they reference")
	}
}

// A closure that mutates a captured parameter disqualifies it.
func TestClosureMutationDisqualifies(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	f := pb.Func("f")
	f.Param("xs", seq)
	f.Let("grow", f.Closure([]string{"n"}, func() {
		f.Append(f.Ident("n"), f.Ident("xs"))
	}))

	res := analyze(t, pb)
	if res.IsReadonly(pb.Table.Function("f"), f.Sym("xs")) {
		t.Errorf("closure-body mutation of a capture counts")
	}
}

// Disqualification climbs one level per pass when callers are defined
// before their callees, so a three-deep chain needs two changing
// passes. A bound of 1 cannot fit that and must be reported.
func TestIterationBoundExceeded(t *testing.T) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	top := pb.Func("top")
	top.Param("xs", seq)
	top.Call("mid", top.Ident("xs"))

	mid := pb.Func("mid")
	mid.Param("ys", seq)
	mid.Call("bot", mid.Ident("ys"))

	bot := pb.Func("bot")
	bot.Param("zs", seq)
	bot.Append(bot.Int(1), bot.Ident("zs"))

	p := pb.Build()
	g := callgraph.Build(p)
	if _, err := Analyze(p, g, pb.Env, 1); err == nil {
		t.Fatalf("bound of 1 cannot fit the propagation; want an error")
	}

	// The same program converges under the default bound.
	res, err := Analyze(p, g, pb.Env, 0)
	if err != nil {
		t.Fatalf("Analyze with default bound: %v", err)
	}
	if res.IsReadonly(pb.Table.Function("top"), top.Sym("xs")) {
		t.Errorf("xs reaches the mutating position two calls down")
	}
}
