package callgraph

import (
	"slices"

	"logos/internal/symbols"
)

// computeSCCs runs Tarjan's algorithm over the sorted node list.
// Mutual recursion never admits a topological order, so every consumer
// of the graph drives convergence by fixed point instead; the SCCs only
// answer "is this function on a cycle" queries.
func computeSCCs(nodes []symbols.SymbolID, edges map[symbols.SymbolID][]symbols.SymbolID) [][]symbols.SymbolID {
	t := &tarjanState{
		edges:   edges,
		index:   make(map[symbols.SymbolID]int, len(nodes)),
		lowlink: make(map[symbols.SymbolID]int, len(nodes)),
		onStack: make(symbols.Set, len(nodes)),
	}
	for _, v := range nodes {
		if _, seen := t.index[v]; !seen {
			t.strongConnect(v)
		}
	}
	return t.sccs
}

type tarjanState struct {
	edges   map[symbols.SymbolID][]symbols.SymbolID
	index   map[symbols.SymbolID]int
	lowlink map[symbols.SymbolID]int
	onStack symbols.Set
	stack   []symbols.SymbolID
	next    int
	sccs    [][]symbols.SymbolID
}

// frame is one suspended node of the depth-first search, with the
// index of its next unexplored edge.
type frame struct {
	v    symbols.SymbolID
	edge int
}

// strongConnect runs the depth-first search from v on an explicit
// frame stack, so call-chain depth never grows the goroutine stack.
func (t *tarjanState) strongConnect(v symbols.SymbolID) {
	t.visit(v)
	frames := []frame{{v: v}}
	for len(frames) > 0 {
		f := &frames[len(frames)-1]
		if f.edge < len(t.edges[f.v]) {
			w := t.edges[f.v][f.edge]
			f.edge++
			if _, seen := t.index[w]; !seen {
				t.visit(w)
				frames = append(frames, frame{v: w})
			} else if t.onStack.Has(w) {
				t.lowlink[f.v] = min(t.lowlink[f.v], t.index[w])
			}
			continue
		}

		done := f.v
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := frames[len(frames)-1].v
			t.lowlink[parent] = min(t.lowlink[parent], t.lowlink[done])
		}
		if t.lowlink[done] == t.index[done] {
			t.popComponent(done)
		}
	}
}

func (t *tarjanState) visit(v symbols.SymbolID) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack.Add(v)
}

// popComponent unwinds the node stack down to root, which closes one
// strongly connected component.
func (t *tarjanState) popComponent(root symbols.SymbolID) {
	var scc []symbols.SymbolID
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack.Remove(w)
		scc = append(scc, w)
		if w == root {
			break
		}
	}
	slices.Sort(scc)
	t.sccs = append(t.sccs, scc)
}
