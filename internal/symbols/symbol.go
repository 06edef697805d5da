package symbols

import (
	"logos/internal/source"
)

// SymbolKind classifies what a symbol names.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolParam
	SymbolVar
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolParam:
		return "param"
	case SymbolVar:
		return "var"
	default:
		return "invalid"
	}
}

// Symbol is an interned identifier. Equality of SymbolIDs is identity:
// the table hands out one ID per (name, kind, owner) triple, so symbol
// comparison anywhere in the pipeline is a uint32 compare.
type Symbol struct {
	ID    SymbolID
	Kind  SymbolKind
	Name  source.StringID
	Owner SymbolID // enclosing function for params and vars, NoSymbolID for functions
}
