package main

import (
	"fmt"
	"io"
	"strings"

	"logos/internal/driver"
)

// emitCallGraph prints each function's callees and the strongly
// connected components, in deterministic order.
func emitCallGraph(w io.Writer, res *driver.Result) {
	tab := res.Bundle.Table
	fmt.Fprintln(w, "callgraph:")
	for _, fn := range res.Graph.Nodes() {
		callees := res.Graph.Callees(fn)
		names := make([]string, len(callees))
		for i, c := range callees {
			names[i] = tab.Name(c)
		}
		marker := ""
		if res.Graph.IsOpaque(fn) {
			marker = " [opaque]"
		}
		fmt.Fprintf(w, "  %s%s -> %s\n", tab.Name(fn), marker, strings.Join(names, ", "))
	}
	fmt.Fprintln(w, "sccs:")
	for _, scc := range res.Graph.SCCs() {
		names := make([]string, len(scc))
		for i, fn := range scc {
			names[i] = tab.Name(fn)
		}
		fmt.Fprintf(w, "  {%s}\n", strings.Join(names, ", "))
	}
}

// emitDecisions prints the decision layer's records: parameter styles
// per function, then call and index sites.
func emitDecisions(w io.Writer, res *driver.Result) {
	ctx := res.Context
	tab := res.Bundle.Table
	fmt.Fprintln(w, "params:")
	for _, fn := range res.Bundle.Program.Funcs {
		styles := ctx.ParamStyles(fn.Sym)
		if len(styles) == 0 {
			continue
		}
		parts := make([]string, len(styles))
		for i, style := range styles {
			parts[i] = fmt.Sprintf("%s:%s", tab.Name(fn.Params[i].Sym), style)
		}
		fmt.Fprintf(w, "  %s(%s)\n", fn.Name, strings.Join(parts, ", "))
	}
	fmt.Fprintln(w, "calls:")
	for _, call := range ctx.Calls() {
		parts := make([]string, len(call.Args))
		for i, arg := range call.Args {
			if arg.Sym.IsValid() {
				parts[i] = fmt.Sprintf("%s:%s", tab.Name(arg.Sym), arg.Style)
			} else {
				parts[i] = arg.Style.String()
			}
		}
		fmt.Fprintf(w, "  %s @%d..%d %s(%s)\n",
			tab.Name(call.Fn), call.Span.Start, call.Span.End,
			tab.Name(call.Callee), strings.Join(parts, ", "))
	}
	fmt.Fprintln(w, "indexes:")
	for _, idx := range ctx.Indexes() {
		fmt.Fprintf(w, "  %s @%d..%d %s\n",
			tab.Name(idx.Fn), idx.Span.Start, idx.Span.End, idx.Style)
	}
}
