package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Unknown TypeID
	Nothing TypeID
	Bool    TypeID
	Int     TypeID
	Real    TypeID
	Text    TypeID
}

// typeKey: Type is comparable by value, so the descriptor is its own key.
type typeKey Type

// Interner provides stable TypeIDs by hashing structural descriptors.
// Interning the same descriptor twice yields the same ID, which keeps
// the analysis results deterministic across runs.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 32),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve NoTypeID
	in.builtins.Unknown = in.Intern(MakeUnknown())
	in.builtins.Nothing = in.Intern(MakeNothing())
	in.builtins.Bool = in.Intern(MakeBool())
	in.builtins.Int = in.Intern(MakeInt())
	in.builtins.Real = in.Intern(MakeReal())
	in.builtins.Text = in.Intern(MakeText())
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup returns the descriptor for id and panics for unknown IDs.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return t
}

// Len counts interned types including the reserved invalid slot.
func (in *Interner) Len() int { return len(in.types) }
