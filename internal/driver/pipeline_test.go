package driver

import (
	"context"
	"testing"

	"logos/internal/diag"
	"logos/internal/progfile"
	"logos/internal/project"
	"logos/internal/source"
	"logos/internal/testkit"
)

func cleanBundle() (*progfile.Bundle, *testkit.ProgramBuilder) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	sink := pb.Func("sink")
	sink.Param("v", seq)
	sink.Append(sink.Int(1), sink.Ident("v"))

	f := pb.Func("main")
	f.Param("xs", seq)
	f.Let("head", f.Index(f.Ident("xs"), f.Int(0)))
	f.Call("sink", f.Ident("xs"))

	return &progfile.Bundle{
		Package: "demo",
		Program: pb.Build(),
		Table:   pb.Table,
		Env:     pb.Env,
		Files:   source.NewFileSet(),
	}, pb
}

func brokenBundle() (*progfile.Bundle, *testkit.ProgramBuilder) {
	pb := testkit.NewProgram()
	seq := testkit.SeqOfInt(pb.Env)

	take := pb.Func("take")
	take.Param("v", seq)

	f := pb.Func("main")
	f.Param("xs", seq)
	f.Transfer(f.Ident("xs"), "take")
	f.Transfer(f.Ident("xs"), "take")

	return &progfile.Bundle{
		Package: "demo",
		Program: pb.Build(),
		Table:   pb.Table,
		Env:     pb.Env,
		Files:   source.NewFileSet(),
	}, pb
}

func TestAnalyzeCleanProgram(t *testing.T) {
	bundle, pb := cleanBundle()
	res, err := Analyze(context.Background(), bundle, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Diags.HasErrors() {
		t.Fatalf("clean program should pass, got %v", res.Diags.Items())
	}
	if res.Context == nil {
		t.Fatalf("a passing run must produce decisions")
	}
	if res.Graph == nil || res.Readonly == nil || res.Liveness == nil {
		t.Errorf("intermediate results should be exposed")
	}
	if got := len(res.Context.ParamStyles(pb.Table.Function("main"))); got != 1 {
		t.Errorf("main has one parameter, got %d styles", got)
	}
}

func TestAnalyzeGatesDecisionsOnErrors(t *testing.T) {
	bundle, _ := brokenBundle()
	res, err := Analyze(context.Background(), bundle, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Diags.HasErrors() {
		t.Fatalf("double transfer should be reported")
	}
	if res.Context != nil {
		t.Errorf("decisions must be withheld when ownership fails")
	}
	if res.Diags.Items()[0].Code != diag.OwnDoubleTransfer {
		t.Errorf("got %v", res.Diags.Items()[0].Code)
	}
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	bundle, _ := cleanBundle()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Analyze(ctx, bundle, Options{}); err == nil {
		t.Fatalf("a canceled context must abort the run")
	}
}

func TestAnalyzeEmitsStageEvents(t *testing.T) {
	bundle, _ := cleanBundle()
	ch := make(chan Event, 128)
	_, err := Analyze(context.Background(), bundle, Options{Sink: ChannelSink{Ch: ch}, Jobs: 1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	close(ch)

	seen := make(map[Stage]bool)
	for evt := range ch {
		if evt.Unit == "" && evt.Status == StatusDone {
			seen[evt.Stage] = true
		}
	}
	for _, stage := range []Stage{StageCallGraph, StageReadonly, StageLiveness, StageOwnership, StageDecide} {
		if !seen[stage] {
			t.Errorf("no completion event for stage %s", stage)
		}
	}
}

// Parallel scheduling must not leak into the output: two runs produce
// the same diagnostics and the same decision stream.
func TestAnalyzeIsDeterministic(t *testing.T) {
	run := func() (*Result, error) {
		bundle, _ := cleanBundle()
		return Analyze(context.Background(), bundle, Options{Jobs: 4})
	}
	r1, err1 := run()
	r2, err2 := run()
	if err1 != nil || err2 != nil {
		t.Fatalf("Analyze: %v %v", err1, err2)
	}

	c1, c2 := r1.Context.Calls(), r2.Context.Calls()
	if len(c1) != len(c2) {
		t.Fatalf("call decision counts differ: %d vs %d", len(c1), len(c2))
	}
	for i := range c1 {
		if c1[i].Span != c2[i].Span || len(c1[i].Args) != len(c2[i].Args) {
			t.Errorf("call decision %d differs", i)
			continue
		}
		for j := range c1[i].Args {
			if c1[i].Args[j].Style != c2[i].Args[j].Style {
				t.Errorf("call %d arg %d styles differ", i, j)
			}
		}
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCache("logos-test", t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}

	bundle, _ := cleanBundle()
	res, err := Analyze(context.Background(), bundle, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	key := project.HashBytes([]byte("program bytes"))
	payload := BuildPayload(res, key)
	if err := cache.Put(key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got DiskPayload
	hit, err := cache.Get(key, &got)
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if got.Package != "demo" {
		t.Errorf("package: got %q", got.Package)
	}
	if len(got.Funcs) != len(payload.Funcs) || len(got.Calls) != len(payload.Calls) {
		t.Errorf("payload shape changed across the round trip")
	}

	miss := project.HashBytes([]byte("other bytes"))
	if hit, err := cache.Get(miss, &got); err != nil || hit {
		t.Errorf("unknown key: hit=%v err=%v", hit, err)
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if hit, _ := cache.Get(key, &got); hit {
		t.Errorf("DropAll should empty the cache")
	}
}

func TestBuildPayloadCarriesDiagnostics(t *testing.T) {
	bundle, _ := brokenBundle()
	res, err := Analyze(context.Background(), bundle, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	payload := BuildPayload(res, project.HashBytes([]byte("x")))
	if len(payload.Diags) == 0 {
		t.Fatalf("diagnostics must be cached for the fast path")
	}
	if payload.Diags[0].Code != uint16(diag.OwnDoubleTransfer) {
		t.Errorf("code: got %d", payload.Diags[0].Code)
	}
}

// A cached payload rebuilds the bag and file table a fresh run would
// have handed the formatters.
func TestPayloadDiagnosticsRebuild(t *testing.T) {
	bundle, _ := brokenBundle()
	bundle.Files.Add("src/demo.lg", []byte("transfer xs to take\ntransfer xs to take\n"))

	res, err := Analyze(context.Background(), bundle, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	payload := BuildPayload(res, project.HashBytes([]byte("x")))

	bag, files := payload.Diagnostics()
	if !bag.HasErrors() {
		t.Fatalf("rebuilt bag lost the errors")
	}
	want := res.Diags.Items()[0]
	got := bag.Items()[0]
	if got.Code != want.Code || got.Severity != want.Severity || got.Message != want.Message {
		t.Errorf("rebuilt diagnostic differs: got %+v want %+v", got, want)
	}
	if got.Primary != want.Primary {
		t.Errorf("primary span lost: got %+v want %+v", got.Primary, want.Primary)
	}
	if len(got.Notes) != len(want.Notes) || len(got.Notes) == 0 {
		t.Fatalf("notes lost: got %d want %d", len(got.Notes), len(want.Notes))
	}
	if got.Notes[0].Span != want.Notes[0].Span || got.Notes[0].Msg != want.Notes[0].Msg {
		t.Errorf("note differs: got %+v want %+v", got.Notes[0], want.Notes[0])
	}
	if len(got.Fixes) == 0 || got.Fixes[0].Title != want.Fixes[0].Title {
		t.Errorf("fix title lost")
	}
	if f, ok := files.ByPath("src/demo.lg"); !ok || len(f.Content) == 0 {
		t.Errorf("file table lost: %v", ok)
	}
}
