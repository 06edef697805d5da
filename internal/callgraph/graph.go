package callgraph

import (
	"slices"

	"logos/internal/ir"
	"logos/internal/symbols"
)

// Graph is the whole-program call graph: one node per function symbol,
// one edge per distinct direct call, including calls made from closure
// bodies. Opaque nodes are native functions (no analyzable body) plus
// callees with no definition in the unit.
//
// Building the graph cannot fail. It is the first analysis to run and
// every later pass consumes it read-only.
type Graph struct {
	edges  map[symbols.SymbolID]symbols.Set
	sorted map[symbols.SymbolID][]symbols.SymbolID
	opaque symbols.Set
	nodes  []symbols.SymbolID

	sccs  [][]symbols.SymbolID
	sccOf map[symbols.SymbolID]int
}

// Build walks every function body (closures included) and records an
// edge to each distinct callee. Native functions contribute a node and
// an opaque marker but no edges. Callees that are not defined in the
// unit are treated as opaque: prior name resolution should prevent
// them, but the graph stays total either way.
func Build(p *ir.Program) *Graph {
	g := &Graph{
		edges:  make(map[symbols.SymbolID]symbols.Set, len(p.Funcs)),
		sorted: make(map[symbols.SymbolID][]symbols.SymbolID, len(p.Funcs)),
		opaque: make(symbols.Set),
		sccOf:  make(map[symbols.SymbolID]int),
	}

	for _, fn := range p.Funcs {
		g.addNode(fn.Sym)
		if fn.Native {
			g.opaque.Add(fn.Sym)
			continue
		}
		callees := g.edges[fn.Sym]
		ir.WalkStmts(fn.Body, func(s *ir.Stmt) {
			switch s.Kind {
			case ir.StmtCall:
				callees.Add(s.Call.Callee)
			case ir.StmtTransfer:
				callees.Add(s.Transfer.To)
			case ir.StmtShare:
				callees.Add(s.Share.To)
			}
			for _, e := range ir.ChildExprs(s) {
				ir.WalkExpr(e, func(sub *ir.Expr) {
					if sub.Kind == ir.ExprCall {
						callees.Add(sub.Call.Callee)
					}
				})
			}
		})
	}

	// Callees without a definition become opaque leaf nodes.
	for _, fn := range slices.Clone(g.nodes) {
		for callee := range g.edges[fn] {
			if _, known := g.edges[callee]; !known {
				g.addNode(callee)
				g.opaque.Add(callee)
			}
		}
	}

	// Sorted adjacency keeps every later traversal deterministic.
	slices.Sort(g.nodes)
	for fn, callees := range g.edges {
		list := make([]symbols.SymbolID, 0, len(callees))
		for c := range callees {
			list = append(list, c)
		}
		slices.Sort(list)
		g.sorted[fn] = list
	}

	g.sccs = computeSCCs(g.nodes, g.sorted)
	for i, scc := range g.sccs {
		for _, fn := range scc {
			g.sccOf[fn] = i
		}
	}
	return g
}

func (g *Graph) addNode(fn symbols.SymbolID) {
	if !fn.IsValid() {
		return
	}
	if _, ok := g.edges[fn]; ok {
		return
	}
	g.edges[fn] = make(symbols.Set)
	g.nodes = append(g.nodes, fn)
}

// Callees returns the sorted direct callees of fn.
func (g *Graph) Callees(fn symbols.SymbolID) []symbols.SymbolID {
	return g.sorted[fn]
}

// Calls reports whether fn directly calls callee.
func (g *Graph) Calls(fn, callee symbols.SymbolID) bool {
	return g.edges[fn].Has(callee)
}

// IsOpaque reports whether fn has no analyzable body.
func (g *Graph) IsOpaque(fn symbols.SymbolID) bool {
	return g.opaque.Has(fn)
}

// Nodes returns all function symbols in sorted order.
func (g *Graph) Nodes() []symbols.SymbolID {
	return g.nodes
}

// SCCs returns the strongly connected components in reverse
// topological discovery order. Members within a component are sorted.
func (g *Graph) SCCs() [][]symbols.SymbolID {
	return g.sccs
}

// IsRecursive reports whether fn participates in a cycle, either via a
// direct self-call or via mutual recursion (SCC with >1 member).
func (g *Graph) IsRecursive(fn symbols.SymbolID) bool {
	if g.edges[fn].Has(fn) {
		return true
	}
	idx, ok := g.sccOf[fn]
	return ok && len(g.sccs[idx]) > 1
}

// ReachableFrom returns every function reachable from fn through call
// edges. fn itself is included only when it sits on a cycle.
func (g *Graph) ReachableFrom(fn symbols.SymbolID) symbols.Set {
	visited := make(symbols.Set)
	stack := make([]symbols.SymbolID, 0, len(g.sorted[fn]))
	for _, c := range g.sorted[fn] {
		if c != fn {
			stack = append(stack, c)
		} else {
			visited.Add(fn)
		}
	}
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Has(next) {
			continue
		}
		visited.Add(next)
		for _, c := range g.sorted[next] {
			if !visited.Has(c) {
				stack = append(stack, c)
			}
		}
	}
	return visited
}
