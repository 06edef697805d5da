package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the LOGOS type shapes the analyzer distinguishes.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnknown is the front end's "could not infer" marker. The
	// analyzer never guesses: unknown types are duplicable for
	// ownership (no false positives) and dynamic for index access.
	KindUnknown
	KindNothing
	KindBool
	KindInt
	KindReal
	KindText
	// KindSeq is a growable collection of Elem.
	KindSeq
	// KindMap is an associative map from Key to Elem.
	KindMap
	// KindRecord is a user-defined structure.
	KindRecord
	// KindVariant is a user-defined sum type.
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnknown:
		return "unknown"
	case KindNothing:
		return "nothing"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	case KindVariant:
		return "variant"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind Kind
	Elem TypeID // element type for Seq, value type for Map
	Key  TypeID // key type for Map
	Name string // nominal name for Record and Variant
}

// Duplicable reports whether values of this type are cheap bitwise
// copies. Non-duplicable values need an explicit duplication and are
// subject to move tracking. Unknown is duplicable so imprecision in
// the type environment never rejects a valid program.
func (t Type) Duplicable() bool {
	switch t.Kind {
	case KindText, KindSeq, KindMap, KindRecord, KindVariant:
		return false
	default:
		return true
	}
}

// Descriptor helpers ---------------------------------------------------------

func MakeUnknown() Type { return Type{Kind: KindUnknown} }

func MakeNothing() Type { return Type{Kind: KindNothing} }

func MakeBool() Type { return Type{Kind: KindBool} }

func MakeInt() Type { return Type{Kind: KindInt} }

func MakeReal() Type { return Type{Kind: KindReal} }

func MakeText() Type { return Type{Kind: KindText} }

// MakeSeq describes a growable collection of elem.
func MakeSeq(elem TypeID) Type {
	return Type{Kind: KindSeq, Elem: elem}
}

// MakeMap describes an associative map from key to value.
func MakeMap(key, value TypeID) Type {
	return Type{Kind: KindMap, Key: key, Elem: value}
}

// MakeRecord describes a named user structure.
func MakeRecord(name string) Type {
	return Type{Kind: KindRecord, Name: name}
}

// MakeVariant describes a named user sum type.
func MakeVariant(name string) Type {
	return Type{Kind: KindVariant, Name: name}
}
