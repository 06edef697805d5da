package decision

// The decision layer performs no dataflow of its own. It is a pure
// function of the call graph, the readonly set, the liveness tables
// and the type environment, folding them into per-site emission
// choices the backend follows verbatim.

// ParamStyle selects the signature shape for one parameter.
type ParamStyle uint8

const (
	// ByValue: the parameter is received as an owned value.
	ByValue ParamStyle = iota
	// ByRef: the parameter is received as a read-only reference. Used
	// for readonly non-duplicable parameters, where ownership never
	// needs to enter the callee.
	ByRef
)

func (p ParamStyle) String() string {
	if p == ByRef {
		return "ref"
	}
	return "value"
}

// CallStyle selects how one argument is passed at one call site.
type CallStyle uint8

const (
	// Copy: duplicate the value before the call. The fallback; never
	// wrong, sometimes wasteful.
	Copy CallStyle = iota
	// Move: hand the argument's current value to the callee without
	// duplication. Legal only when the binding is dead afterwards.
	Move
	// Borrow: lend a reference. Overrides move-vs-copy when the
	// callee's parameter is readonly.
	Borrow
)

func (c CallStyle) String() string {
	switch c {
	case Move:
		return "move"
	case Borrow:
		return "borrow"
	default:
		return "copy"
	}
}

// IndexStyle selects the lowering of one collection element access.
type IndexStyle uint8

const (
	// Dynamic: the element type is not statically known; emit the
	// dynamic-dispatch fallback.
	Dynamic IndexStyle = iota
	// Direct: bounds-checked direct access.
	Direct
)

func (i IndexStyle) String() string {
	if i == Direct {
		return "direct"
	}
	return "dynamic"
}
