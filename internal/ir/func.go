package ir

import (
	"logos/internal/source"
	"logos/internal/symbols"
	"logos/internal/types"
)

// Param is one typed function parameter. Mutable matters only for
// native functions: it is the declared signature's promise about
// whether the foreign body mutates the argument.
type Param struct {
	Sym     symbols.SymbolID
	Type    types.TypeID
	Mutable bool
	Span    source.Span
}

// Func is one function definition. Native functions have no analyzable
// body; only the declared signature is trusted.
type Func struct {
	Sym    symbols.SymbolID
	Name   string
	Span   source.Span
	Params []Param
	Body   []*Stmt
	Native bool
}

// ParamIndex returns the position of sym in the parameter list, or -1.
func (f *Func) ParamIndex(sym symbols.SymbolID) int {
	for i := range f.Params {
		if f.Params[i].Sym == sym {
			return i
		}
	}
	return -1
}

// Program is the whole compilation unit in front-end order. Function
// order is the deterministic iteration order for every analysis.
type Program struct {
	Funcs []*Func

	bySym map[symbols.SymbolID]*Func
}

// NewProgram builds a program over funcs and indexes them by symbol.
func NewProgram(funcs []*Func) *Program {
	p := &Program{
		Funcs: funcs,
		bySym: make(map[symbols.SymbolID]*Func, len(funcs)),
	}
	for _, fn := range funcs {
		p.bySym[fn.Sym] = fn
	}
	return p
}

// Func returns the definition for sym, or nil when sym is not defined
// in this unit (an opaque callee as far as analysis is concerned).
func (p *Program) Func(sym symbols.SymbolID) *Func {
	return p.bySym[sym]
}
