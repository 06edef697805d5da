package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"logos/internal/diag"
	"logos/internal/diagfmt"
	"logos/internal/driver"
	"logos/internal/observ"
	"logos/internal/progfile"
	"logos/internal/project"
	"logos/internal/source"
	"logos/internal/version"
)

var (
	analyzeFormat         string
	analyzeEmitDecisions  bool
	analyzeEmitCallGraph  bool
	analyzeUI             string
	analyzeNoCache        bool
	analyzeJobs           int
	analyzeIterationBound int
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "pretty", "diagnostics format (pretty|json|sarif)")
	analyzeCmd.Flags().BoolVar(&analyzeEmitDecisions, "emit-decisions", false, "print per-site emission decisions")
	analyzeCmd.Flags().BoolVar(&analyzeEmitCallGraph, "emit-callgraph", false, "print the call graph and its SCCs")
	analyzeCmd.Flags().StringVar(&analyzeUI, "ui", "auto", "interactive progress (auto|on|off)")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "bypass the analysis result cache")
	analyzeCmd.Flags().IntVar(&analyzeJobs, "jobs", 0, "per-function analysis parallelism (0 = all cores)")
	analyzeCmd.Flags().IntVar(&analyzeIterationBound, "iteration-bound", 0, "fixed-point iteration cap (0 = manifest default)")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [program.lgp]",
	Short: "Analyze a compiled LOGOS program",
	Long: `Analyze runs the ownership, readonly, liveness and decision passes over
a compiled program file. Without an argument the program configured in the
nearest logos.toml is analyzed.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	manifest, err := project.Discover(".")
	if err != nil {
		return err
	}

	path := manifest.ProgramPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no program file: pass one explicitly or set package.program in logos.toml")
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		return err
	}
	hash := project.HashBytes(raw)

	quiet, _ := cmd.Flags().GetBool("quiet")
	colorMode, _ := cmd.Flags().GetString("color")
	showTimings, _ := cmd.Flags().GetBool("timings")
	maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")

	cache := openCache(manifest)
	if cache != nil && !analyzeNoCache && !analyzeEmitDecisions && !analyzeEmitCallGraph {
		var payload driver.DiskPayload
		if hit, err := cache.Get(hash, &payload); err == nil && hit {
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "cached: %s\n", path)
			}
			return reportCached(cmd, &payload, colorMode)
		}
	}

	bundle, err := progfile.Load(path)
	if err != nil {
		return err
	}

	opts := driver.Options{
		IterationBound: manifest.Config.Analysis.IterationBound,
		Jobs:           manifest.Config.Analysis.Jobs,
		MaxDiagnostics: manifest.Config.Analysis.MaxDiagnostics,
	}
	if analyzeIterationBound > 0 {
		opts.IterationBound = analyzeIterationBound
	}
	if analyzeJobs > 0 {
		opts.Jobs = analyzeJobs
	}
	if maxDiags > 0 {
		opts.MaxDiagnostics = maxDiags
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
		opts.Timer = timer
	}

	mode, err := readUIMode(analyzeUI)
	if err != nil {
		return err
	}

	var res *driver.Result
	if shouldUseTUI(mode) && !quiet {
		res, err = runAnalyzeWithUI(cmd.Context(), path, bundle, opts)
	} else {
		res, err = driver.Analyze(cmd.Context(), bundle, opts)
	}
	if err != nil {
		// Internal failures still carry any diagnostics gathered so far.
		if res != nil && res.Diags.Len() > 0 {
			reportDiagnostics(cmd, res, colorMode)
		}
		return err
	}

	if res.Diags.Len() > 0 {
		if err := reportDiagnostics(cmd, res, colorMode); err != nil {
			return err
		}
	}
	if showTimings && timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}

	if analyzeEmitCallGraph {
		emitCallGraph(cmd.OutOrStdout(), res)
	}
	if analyzeEmitDecisions && res.Context != nil {
		emitDecisions(cmd.OutOrStdout(), res)
	}

	// Failing runs are cached too: an unchanged broken program reprints
	// its errors from the payload instead of re-analyzing.
	if cache != nil && !analyzeNoCache {
		if err := cache.Put(hash, driver.BuildPayload(res, hash)); err != nil && !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write cache: %v\n", err)
		}
	}

	if res.Diags.HasErrors() {
		return fmt.Errorf("analysis failed: %d diagnostics", res.Diags.Len())
	}
	if !quiet && res.Diags.Len() == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d functions)\n", path, len(bundle.Program.Funcs))
	}
	return nil
}

func openCache(manifest *project.Manifest) *driver.DiskCache {
	if !manifest.Config.Cache.Enabled {
		return nil
	}
	cache, err := driver.OpenDiskCache("logos", manifest.Config.Cache.Dir)
	if err != nil {
		return nil
	}
	return cache
}

func reportDiagnostics(cmd *cobra.Command, res *driver.Result, colorMode string) error {
	return renderDiagnostics(cmd, res.Diags, res.Bundle.Files, colorMode)
}

func renderDiagnostics(cmd *cobra.Command, bag *diag.Bag, files *source.FileSet, colorMode string) error {
	out := cmd.OutOrStdout()
	switch analyzeFormat {
	case "pretty":
		diagfmt.Pretty(out, bag, files, diagfmt.PrettyOpts{
			Color:     useColor(colorMode, os.Stdout),
			ShowNotes: true,
			ShowFixes: true,
		})
		return nil
	case "json":
		return diagfmt.JSON(out, bag, files, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "sarif":
		return diagfmt.Sarif(out, bag, files, diagfmt.SarifRunMeta{
			ToolName:    "logos",
			ToolVersion: version.Version,
		})
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or sarif)", analyzeFormat)
	}
}

// reportCached re-renders a previous run's diagnostics without
// re-analyzing, through the same formatters as a fresh run.
func reportCached(cmd *cobra.Command, payload *driver.DiskPayload, colorMode string) error {
	bag, files := payload.Diagnostics()
	if bag.Len() > 0 {
		if err := renderDiagnostics(cmd, bag, files, colorMode); err != nil {
			return err
		}
	}
	if bag.HasErrors() {
		return fmt.Errorf("analysis failed: %d diagnostics", bag.Len())
	}
	return nil
}
