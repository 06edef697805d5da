package driver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"logos/internal/callgraph"
	"logos/internal/decision"
	"logos/internal/diag"
	"logos/internal/liveness"
	"logos/internal/observ"
	"logos/internal/ownership"
	"logos/internal/progfile"
	"logos/internal/readonly"
	"logos/internal/source"
)

// Options tunes one pipeline run.
type Options struct {
	// IterationBound caps fixed-point iterations; exhausting it means a
	// broken monotone lattice, reported as an internal error.
	IterationBound int
	// Jobs limits per-function parallelism; 0 means no limit.
	Jobs int
	// MaxDiagnostics caps the diagnostics bag.
	MaxDiagnostics int
	// Sink receives progress events; nil drops them.
	Sink ProgressSink
	// Timer collects phase durations when non-nil.
	Timer *observ.Timer
}

func (o *Options) normalize() {
	if o.IterationBound <= 0 {
		o.IterationBound = 10000
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = 256
	}
	if o.Sink == nil {
		o.Sink = nopSink{}
	}
}

// Result is everything one run produces. Context is nil when ownership
// errors gate compilation: the decision layer's output would describe a
// program that must not be emitted.
type Result struct {
	Bundle   *progfile.Bundle
	Graph    *callgraph.Graph
	Readonly *readonly.Result
	Liveness *liveness.Result
	Context  *decision.Context
	Diags    *diag.Bag
}

// Analyze runs the full pipeline over a resolved program. Stage order
// is fixed: the call graph feeds the readonly fixed point, liveness and
// ownership run per function in parallel, and the decision layer folds
// everything last. Only internal invariant violations and cancellation
// surface as a non-nil error; user-facing findings land in Result.Diags.
func Analyze(ctx context.Context, bundle *progfile.Bundle, opts Options) (*Result, error) {
	opts.normalize()
	res := &Result{
		Bundle: bundle,
		Diags:  diag.NewBag(opts.MaxDiagnostics),
	}

	if err := runPhase(ctx, &opts, StageCallGraph, func() error {
		res.Graph = callgraph.Build(bundle.Program)
		return nil
	}); err != nil {
		return res, err
	}

	// The readonly fixed point mutates a shared map across functions,
	// so it runs single-threaded.
	if err := runPhase(ctx, &opts, StageReadonly, func() error {
		ro, err := readonly.Analyze(bundle.Program, res.Graph, bundle.Env, opts.IterationBound)
		if err != nil {
			res.Diags.Add(diag.NewError(diag.IntNonTermination, programSpan(bundle),
				fmt.Sprintf("readonly analysis did not converge: %v", err)))
			return fmt.Errorf("readonly analysis: %w", err)
		}
		res.Readonly = ro
		return nil
	}); err != nil {
		return res, err
	}

	// Liveness and ownership are purely per-function; they fan out
	// across workers. Each function writes its own slot and the merge
	// preserves definition order, keeping output deterministic
	// regardless of scheduling.
	if err := runPhase(ctx, &opts, StageLiveness, func() error {
		live, err := analyzeLiveness(ctx, bundle, &opts)
		res.Liveness = live
		return err
	}); err != nil {
		return res, err
	}

	if err := runPhase(ctx, &opts, StageOwnership, func() error {
		bag, err := checkOwnership(ctx, bundle, &opts)
		res.Diags.Merge(bag)
		return err
	}); err != nil {
		return res, err
	}
	res.Diags.Sort()

	if res.Diags.HasErrors() {
		// Ownership gates compilation; decisions for a rejected
		// program would be meaningless.
		return res, nil
	}

	return res, runPhase(ctx, &opts, StageDecide, func() error {
		res.Context = decision.Build(bundle.Program, res.Graph, res.Readonly, res.Liveness, bundle.Env)
		return nil
	})
}

// runPhase wraps one stage with cancellation, events and timing.
func runPhase(ctx context.Context, opts *Options, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts.Sink.OnEvent(Event{Stage: stage, Status: StatusWorking})
	idx := -1
	if opts.Timer != nil {
		idx = opts.Timer.Begin(string(stage))
	}
	start := time.Now()
	err := fn()
	if opts.Timer != nil {
		opts.Timer.End(idx, "")
	}
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	opts.Sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: time.Since(start)})
	return err
}

func analyzeLiveness(ctx context.Context, bundle *progfile.Bundle, opts *Options) (*liveness.Result, error) {
	p := bundle.Program
	slots := make([]*liveness.FuncLiveness, len(p.Funcs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, fn := range p.Funcs {
		if fn.Native {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts.Sink.OnEvent(Event{Unit: fn.Name, Stage: StageLiveness, Status: StatusWorking})
			start := time.Now()
			slots[i] = liveness.AnalyzeFunc(fn)
			opts.Sink.OnEvent(Event{Unit: fn.Name, Stage: StageLiveness, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res := liveness.NewResult(len(p.Funcs))
	for i, fn := range p.Funcs {
		if slots[i] != nil {
			res.Put(fn.Sym, slots[i])
		}
	}
	return res, nil
}

func checkOwnership(ctx context.Context, bundle *progfile.Bundle, opts *Options) (*diag.Bag, error) {
	p := bundle.Program
	slots := make([]*diag.Bag, len(p.Funcs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, fn := range p.Funcs {
		if fn.Native {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts.Sink.OnEvent(Event{Unit: fn.Name, Stage: StageOwnership, Status: StatusWorking})
			start := time.Now()
			slots[i] = ownership.CheckFunc(fn, bundle.Env, bundle.Table, opts.MaxDiagnostics)
			status := StatusDone
			if slots[i].HasErrors() {
				status = StatusError
			}
			opts.Sink.OnEvent(Event{Unit: fn.Name, Stage: StageOwnership, Status: status, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	for _, slot := range slots {
		if slot != nil {
			bag.Merge(slot)
		}
	}
	return bag, nil
}

// programSpan picks a span for program-wide diagnostics.
func programSpan(bundle *progfile.Bundle) source.Span {
	if len(bundle.Program.Funcs) > 0 {
		return bundle.Program.Funcs[0].Span
	}
	return source.Span{}
}
