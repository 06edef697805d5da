package types

import (
	"logos/internal/symbols"
)

// Env is the read-only type environment handed down by the upstream
// type inference pass: a symbol → type mapping over one interner.
// The analyzer trusts it and never mutates it after construction.
type Env struct {
	interner *Interner
	bySymbol map[symbols.SymbolID]TypeID
}

// NewEnv creates an empty environment over the given interner.
// If interner is nil, a fresh one is allocated.
func NewEnv(interner *Interner) *Env {
	if interner == nil {
		interner = NewInterner()
	}
	return &Env{
		interner: interner,
		bySymbol: make(map[symbols.SymbolID]TypeID, 64),
	}
}

// Interner exposes the underlying type interner.
func (e *Env) Interner() *Interner { return e.interner }

// Bind records the type of sym. Later bindings win; the front end is
// expected to bind each symbol once.
func (e *Env) Bind(sym symbols.SymbolID, id TypeID) {
	if !sym.IsValid() {
		return
	}
	e.bySymbol[sym] = id
}

// LookupID returns the TypeID for sym, or the Unknown builtin when the
// front end did not report one.
func (e *Env) LookupID(sym symbols.SymbolID) TypeID {
	if id, ok := e.bySymbol[sym]; ok && id != NoTypeID {
		return id
	}
	return e.interner.Builtins().Unknown
}

// Lookup returns the type descriptor for sym, defaulting to Unknown.
func (e *Env) Lookup(sym symbols.SymbolID) Type {
	return e.interner.MustLookup(e.LookupID(sym))
}

// IsSeq reports whether sym has a growable-collection type.
func (e *Env) IsSeq(sym symbols.SymbolID) bool {
	return e.Lookup(sym).Kind == KindSeq
}

// Duplicable reports whether sym's values are cheap bitwise copies.
func (e *Env) Duplicable(sym symbols.SymbolID) bool {
	return e.Lookup(sym).Duplicable()
}

// ElemKnown reports whether sym is a collection whose element type is
// statically known (not Unknown). Index sites over such collections can
// use direct bounds-checked access instead of the dynamic fallback.
func (e *Env) ElemKnown(sym symbols.SymbolID) bool {
	t := e.Lookup(sym)
	switch t.Kind {
	case KindSeq, KindMap:
		elem, ok := e.interner.Lookup(t.Elem)
		return ok && elem.Kind != KindUnknown && elem.Kind != KindInvalid
	default:
		return false
	}
}
