package progfile

// A .lgp file is the msgpack-encoded product of the upstream front end:
// resolved functions, their typed bindings, and the source text the
// spans point into. The wire structs below mirror the in-memory program
// one-to-one except that symbols travel as names and types as
// structural descriptors; the loader re-interns both.

// SchemaVersion increments whenever the wire layout changes. Files with
// a different version are rejected, never guessed at.
const SchemaVersion uint16 = 2

// Root is the top-level wire value.
type Root struct {
	Schema  uint16 `msgpack:"schema"`
	Package string `msgpack:"package"`

	Files []FileEntry `msgpack:"files"`
	Funcs []FuncEntry `msgpack:"funcs"`
}

// FileEntry carries one source file for diagnostic rendering. File IDs
// in spans index into this slice.
type FileEntry struct {
	Path    string `msgpack:"path"`
	Content []byte `msgpack:"content"`
}

// SpanEntry is a half-open byte range within a file.
type SpanEntry struct {
	File  uint32 `msgpack:"file"`
	Start uint32 `msgpack:"start"`
	End   uint32 `msgpack:"end"`
}

// TypeEntry is a structural type descriptor.
type TypeEntry struct {
	Kind string     `msgpack:"kind"`
	Elem *TypeEntry `msgpack:"elem,omitempty"`
	Key  *TypeEntry `msgpack:"key,omitempty"`
	Name string     `msgpack:"name,omitempty"`
}

// ParamEntry is one function parameter.
type ParamEntry struct {
	Name    string    `msgpack:"name"`
	Type    TypeEntry `msgpack:"type"`
	Mutable bool      `msgpack:"mutable,omitempty"`
	Span    SpanEntry `msgpack:"span"`
}

// BindingEntry reports the inferred type of one local variable.
type BindingEntry struct {
	Name string    `msgpack:"name"`
	Type TypeEntry `msgpack:"type"`
}

// FuncEntry is one function definition. Native functions have no body:
// they exist for signatures and call-graph opacity only.
type FuncEntry struct {
	Name     string         `msgpack:"name"`
	Native   bool           `msgpack:"native,omitempty"`
	Span     SpanEntry      `msgpack:"span"`
	Params   []ParamEntry   `msgpack:"params"`
	Bindings []BindingEntry `msgpack:"bindings,omitempty"`
	Body     []StmtEntry    `msgpack:"body,omitempty"`
}

// StmtEntry is a tagged statement union; Kind selects which fields are
// meaningful.
type StmtEntry struct {
	Kind string    `msgpack:"kind"`
	Span SpanEntry `msgpack:"span"`

	// let / set / transfer / share
	Name    string     `msgpack:"name,omitempty"`
	Mutable bool       `msgpack:"mutable,omitempty"`
	Value   *ExprEntry `msgpack:"value,omitempty"`
	To      string     `msgpack:"to,omitempty"`

	// if / while / foreach
	Cond     *ExprEntry  `msgpack:"cond,omitempty"`
	Then     []StmtEntry `msgpack:"then,omitempty"`
	Else     []StmtEntry `msgpack:"else,omitempty"`
	Pattern  []string    `msgpack:"pattern,omitempty"`
	Iterable *ExprEntry  `msgpack:"iterable,omitempty"`
	Body     []StmtEntry `msgpack:"body,omitempty"`

	// append / remove / setindex
	Collection *ExprEntry `msgpack:"collection,omitempty"`
	Index      *ExprEntry `msgpack:"index,omitempty"`

	// call
	Callee string      `msgpack:"callee,omitempty"`
	Args   []ExprEntry `msgpack:"args,omitempty"`

	// opaque
	Refs []string `msgpack:"refs,omitempty"`
	Text string   `msgpack:"text,omitempty"`
}

// ExprEntry is a tagged expression union.
type ExprEntry struct {
	Kind string    `msgpack:"kind"`
	Span SpanEntry `msgpack:"span"`

	// ident / field / lit
	Name    string `msgpack:"name,omitempty"`
	Lit     string `msgpack:"lit,omitempty"`
	LitKind string `msgpack:"lit_kind,omitempty"`

	// call
	Callee string      `msgpack:"callee,omitempty"`
	Args   []ExprEntry `msgpack:"args,omitempty"`

	// binary
	Op    string     `msgpack:"op,omitempty"`
	Left  *ExprEntry `msgpack:"left,omitempty"`
	Right *ExprEntry `msgpack:"right,omitempty"`

	// index / length / dup / field
	Collection *ExprEntry `msgpack:"collection,omitempty"`
	Index      *ExprEntry `msgpack:"index,omitempty"`
	Value      *ExprEntry `msgpack:"value,omitempty"`
	Object     *ExprEntry `msgpack:"object,omitempty"`

	// list
	Items []ExprEntry `msgpack:"items,omitempty"`

	// closure
	Params []string    `msgpack:"params,omitempty"`
	Body   []StmtEntry `msgpack:"body,omitempty"`
}
