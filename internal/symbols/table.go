package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"logos/internal/source"
)

type internKey struct {
	name  source.StringID
	kind  SymbolKind
	owner SymbolID
}

// Table is the symbol arena shared by every pass. Interning the same
// (name, kind, owner) triple always yields the same SymbolID.
type Table struct {
	Strings *source.Interner

	symbols []Symbol
	index   map[internKey]SymbolID
}

// NewTable builds a fresh table with an optional capacity hint.
// If strings is nil, a fresh interner is allocated.
func NewTable(capHint uint, strings *source.Interner) *Table {
	if _, err := safecast.Conv[uint32](capHint); err != nil {
		panic(fmt.Errorf("symbols: capacity overflow: %w", err))
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Strings: strings,
		symbols: make([]Symbol, 1, capHint+1), // slot 0 reserved for NoSymbolID
		index:   make(map[internKey]SymbolID, capHint),
	}
}

// Intern returns the symbol ID for (name, kind, owner), allocating on
// first sight.
func (t *Table) Intern(name string, kind SymbolKind, owner SymbolID) SymbolID {
	nameID := t.Strings.Intern(name)
	key := internKey{name: nameID, kind: kind, owner: owner}
	if id, ok := t.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbols: arena overflow: %w", err))
	}
	id := SymbolID(n)
	t.symbols = append(t.symbols, Symbol{
		ID:    id,
		Kind:  kind,
		Name:  nameID,
		Owner: owner,
	})
	t.index[key] = id
	return id
}

// Function interns a function symbol.
func (t *Table) Function(name string) SymbolID {
	return t.Intern(name, SymbolFunction, NoSymbolID)
}

// Param interns a parameter symbol owned by fn.
func (t *Table) Param(name string, fn SymbolID) SymbolID {
	return t.Intern(name, SymbolParam, fn)
}

// Var interns a local variable symbol owned by fn.
func (t *Table) Var(name string, fn SymbolID) SymbolID {
	return t.Intern(name, SymbolVar, fn)
}

// Get returns the symbol for id, or nil for an invalid ID.
func (t *Table) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(t.symbols) {
		return nil
	}
	return &t.symbols[id]
}

// Name resolves the symbol's interned name, or "_" when unknown.
func (t *Table) Name(id SymbolID) string {
	sym := t.Get(id)
	if sym == nil {
		return "_"
	}
	if s, ok := t.Strings.Lookup(sym.Name); ok && s != "" {
		return s
	}
	return "_"
}

// Len counts allocated symbols including the reserved zero slot.
func (t *Table) Len() int { return len(t.symbols) }
