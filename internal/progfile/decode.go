package progfile

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"

	"logos/internal/ir"
	"logos/internal/source"
	"logos/internal/symbols"
	"logos/internal/types"
)

// Bundle is the fully resolved in-memory program: everything the
// analysis pipeline consumes.
type Bundle struct {
	Package string
	Program *ir.Program
	Table   *symbols.Table
	Env     *types.Env
	Files   *source.FileSet
}

// Load reads and decodes a .lgp file.
func Load(path string) (*Bundle, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file
	b, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return b, nil
}

// Decode reads one program from r and resolves it into a Bundle.
func Decode(r io.Reader) (*Bundle, error) {
	var root Root
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if root.Schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported program schema %d (want %d)", root.Schema, SchemaVersion)
	}
	return resolve(&root)
}

// resolver turns wire entries into interned program structures. All
// identifier names are NFC-normalized first, so visually identical
// bindings written with different Unicode compositions resolve to one
// symbol.
type resolver struct {
	table *symbols.Table
	env   *types.Env
	files *source.FileSet
	fn    symbols.SymbolID
	// scope maps normalized names to symbols within the current
	// function: parameters first, then locals on demand.
	scope map[string]symbols.SymbolID
}

func resolve(root *Root) (*Bundle, error) {
	rs := &resolver{
		table: symbols.NewTable(uint(len(root.Funcs)*8), nil),
		env:   types.NewEnv(nil),
		files: source.NewFileSet(),
	}
	for _, fe := range root.Files {
		rs.files.Add(fe.Path, fe.Content)
	}

	// Two passes: function symbols must all exist before bodies
	// reference them (calls are resolved by name).
	fns := make([]symbols.SymbolID, len(root.Funcs))
	for i := range root.Funcs {
		fns[i] = rs.table.Function(ident(root.Funcs[i].Name))
	}

	funcs := make([]*ir.Func, len(root.Funcs))
	for i := range root.Funcs {
		fn, err := rs.resolveFunc(fns[i], &root.Funcs[i])
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", root.Funcs[i].Name, err)
		}
		funcs[i] = fn
	}

	return &Bundle{
		Package: root.Package,
		Program: ir.NewProgram(funcs),
		Table:   rs.table,
		Env:     rs.env,
		Files:   rs.files,
	}, nil
}

func (rs *resolver) resolveFunc(sym symbols.SymbolID, fe *FuncEntry) (*ir.Func, error) {
	rs.fn = sym
	rs.scope = make(map[string]symbols.SymbolID, len(fe.Params)+len(fe.Bindings))

	fn := &ir.Func{
		Sym:    sym,
		Name:   ident(fe.Name),
		Span:   rs.span(fe.Span),
		Native: fe.Native,
		Params: make([]ir.Param, len(fe.Params)),
	}
	for i, pe := range fe.Params {
		name := ident(pe.Name)
		psym := rs.table.Param(name, sym)
		rs.scope[name] = psym
		rs.env.Bind(psym, rs.typeID(&pe.Type))
		fn.Params[i] = ir.Param{
			Sym:     psym,
			Type:    rs.typeID(&pe.Type),
			Mutable: pe.Mutable,
			Span:    rs.span(pe.Span),
		}
	}
	for i := range fe.Bindings {
		be := &fe.Bindings[i]
		rs.env.Bind(rs.local(be.Name), rs.typeID(&be.Type))
	}

	if fe.Native {
		if len(fe.Body) > 0 {
			return nil, fmt.Errorf("native function carries a body")
		}
		return fn, nil
	}
	body, err := rs.block(fe.Body)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (rs *resolver) block(entries []StmtEntry) ([]*ir.Stmt, error) {
	out := make([]*ir.Stmt, len(entries))
	for i := range entries {
		s, err := rs.stmt(&entries[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (rs *resolver) stmt(se *StmtEntry) (*ir.Stmt, error) {
	s := &ir.Stmt{Span: rs.span(se.Span)}
	var err error
	switch se.Kind {
	case "let":
		s.Kind = ir.StmtLet
		s.Let.Sym = rs.local(se.Name)
		s.Let.Mutable = se.Mutable
		s.Let.Value, err = rs.expr(se.Value)

	case "set":
		s.Kind = ir.StmtSet
		s.Set.Sym = rs.local(se.Name)
		s.Set.Value, err = rs.expr(se.Value)

	case "if":
		s.Kind = ir.StmtIf
		if s.If.Cond, err = rs.expr(se.Cond); err != nil {
			return nil, err
		}
		if s.If.Then, err = rs.block(se.Then); err != nil {
			return nil, err
		}
		s.If.Else, err = rs.block(se.Else)

	case "while":
		s.Kind = ir.StmtWhile
		if s.While.Cond, err = rs.expr(se.Cond); err != nil {
			return nil, err
		}
		s.While.Body, err = rs.block(se.Body)

	case "foreach":
		s.Kind = ir.StmtForEach
		s.ForEach.Pattern = make([]symbols.SymbolID, len(se.Pattern))
		for i, name := range se.Pattern {
			s.ForEach.Pattern[i] = rs.local(name)
		}
		if s.ForEach.Iterable, err = rs.expr(se.Iterable); err != nil {
			return nil, err
		}
		s.ForEach.Body, err = rs.block(se.Body)

	case "append":
		s.Kind = ir.StmtAppend
		if s.Append.Value, err = rs.expr(se.Value); err != nil {
			return nil, err
		}
		s.Append.Collection, err = rs.expr(se.Collection)

	case "remove":
		s.Kind = ir.StmtRemoveElem
		if s.RemoveElem.Value, err = rs.expr(se.Value); err != nil {
			return nil, err
		}
		s.RemoveElem.Collection, err = rs.expr(se.Collection)

	case "setindex":
		s.Kind = ir.StmtSetIndex
		if s.SetIndex.Collection, err = rs.expr(se.Collection); err != nil {
			return nil, err
		}
		if s.SetIndex.Index, err = rs.expr(se.Index); err != nil {
			return nil, err
		}
		s.SetIndex.Value, err = rs.expr(se.Value)

	case "call":
		s.Kind = ir.StmtCall
		s.Call.Callee = rs.table.Function(ident(se.Callee))
		s.Call.Args, err = rs.exprs(se.Args)

	case "return":
		s.Kind = ir.StmtReturn
		s.Return.Value, err = rs.expr(se.Value)

	case "transfer":
		s.Kind = ir.StmtTransfer
		if se.To != "" {
			s.Transfer.To = rs.table.Function(ident(se.To))
		}
		s.Transfer.Value, err = rs.expr(se.Value)

	case "share":
		s.Kind = ir.StmtShare
		if se.To != "" {
			s.Share.To = rs.table.Function(ident(se.To))
		}
		s.Share.Value, err = rs.expr(se.Value)

	case "opaque":
		s.Kind = ir.StmtOpaque
		s.Opaque.Text = se.Text
		s.Opaque.Refs = make([]symbols.SymbolID, len(se.Refs))
		for i, name := range se.Refs {
			s.Opaque.Refs[i] = rs.local(name)
		}

	default:
		return nil, fmt.Errorf("unknown statement kind %q", se.Kind)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (rs *resolver) exprs(entries []ExprEntry) ([]*ir.Expr, error) {
	out := make([]*ir.Expr, len(entries))
	for i := range entries {
		e, err := rs.expr(&entries[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (rs *resolver) expr(ee *ExprEntry) (*ir.Expr, error) {
	if ee == nil {
		return nil, nil
	}
	e := &ir.Expr{Span: rs.span(ee.Span)}
	var err error
	switch ee.Kind {
	case "ident":
		e.Kind = ir.ExprIdent
		e.Ident.Sym = rs.local(ee.Name)

	case "lit":
		e.Kind = ir.ExprLit
		e.Lit.Text = ee.Lit
		e.Lit.Kind, err = litKind(ee.LitKind)

	case "call":
		e.Kind = ir.ExprCall
		e.Call.Callee = rs.table.Function(ident(ee.Callee))
		e.Call.Args, err = rs.exprs(ee.Args)

	case "binary":
		e.Kind = ir.ExprBinary
		if e.Binary.Op, err = binOp(ee.Op); err != nil {
			return nil, err
		}
		if e.Binary.Left, err = rs.expr(ee.Left); err != nil {
			return nil, err
		}
		e.Binary.Right, err = rs.expr(ee.Right)

	case "index":
		e.Kind = ir.ExprIndex
		if e.Index.Collection, err = rs.expr(ee.Collection); err != nil {
			return nil, err
		}
		e.Index.Index, err = rs.expr(ee.Index)

	case "length":
		e.Kind = ir.ExprLength
		e.Length.Collection, err = rs.expr(ee.Collection)

	case "dup":
		e.Kind = ir.ExprDup
		e.Dup.Value, err = rs.expr(ee.Value)

	case "list":
		e.Kind = ir.ExprList
		e.List.Items, err = rs.exprs(ee.Items)

	case "field":
		e.Kind = ir.ExprField
		e.Field.Name = ident(ee.Name)
		e.Field.Object, err = rs.expr(ee.Object)

	case "closure":
		e.Kind = ir.ExprClosure
		e.Closure.Params = make([]symbols.SymbolID, len(ee.Params))
		for i, name := range ee.Params {
			e.Closure.Params[i] = rs.local(name)
		}
		e.Closure.Body, err = rs.block(ee.Body)

	default:
		return nil, fmt.Errorf("unknown expression kind %q", ee.Kind)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// local resolves name within the current function: a parameter when
// one exists, a (possibly fresh) local variable otherwise.
func (rs *resolver) local(name string) symbols.SymbolID {
	n := ident(name)
	if sym, ok := rs.scope[n]; ok {
		return sym
	}
	sym := rs.table.Var(n, rs.fn)
	rs.scope[n] = sym
	return sym
}

func (rs *resolver) span(se SpanEntry) source.Span {
	return source.Span{
		File:  source.FileID(se.File),
		Start: se.Start,
		End:   se.End,
	}
}

func (rs *resolver) typeID(te *TypeEntry) types.TypeID {
	in := rs.env.Interner()
	if te == nil {
		return in.Builtins().Unknown
	}
	switch te.Kind {
	case "unknown", "":
		return in.Builtins().Unknown
	case "nothing":
		return in.Intern(types.MakeNothing())
	case "bool":
		return in.Intern(types.MakeBool())
	case "int":
		return in.Intern(types.MakeInt())
	case "real":
		return in.Intern(types.MakeReal())
	case "text":
		return in.Intern(types.MakeText())
	case "seq":
		return in.Intern(types.MakeSeq(rs.typeID(te.Elem)))
	case "map":
		elem := rs.typeID(te.Elem)
		key := rs.typeID(te.Key)
		return in.Intern(types.MakeMap(key, elem))
	case "record":
		return in.Intern(types.MakeRecord(ident(te.Name)))
	case "variant":
		return in.Intern(types.MakeVariant(ident(te.Name)))
	default:
		// Unrecognized type kinds degrade to Unknown: the analyses
		// already treat Unknown conservatively.
		return in.Builtins().Unknown
	}
}

func litKind(kind string) (ir.LitKind, error) {
	switch kind {
	case "int", "":
		return ir.LitInt, nil
	case "real":
		return ir.LitReal, nil
	case "bool":
		return ir.LitBool, nil
	case "text":
		return ir.LitText, nil
	case "nothing":
		return ir.LitNothing, nil
	}
	return 0, fmt.Errorf("unknown literal kind %q", kind)
}

func binOp(op string) (ir.BinOp, error) {
	switch op {
	case "add":
		return ir.OpAdd, nil
	case "sub":
		return ir.OpSub, nil
	case "mul":
		return ir.OpMul, nil
	case "div":
		return ir.OpDiv, nil
	case "concat":
		return ir.OpConcat, nil
	case "eq":
		return ir.OpEq, nil
	case "ne":
		return ir.OpNe, nil
	case "lt":
		return ir.OpLt, nil
	case "le":
		return ir.OpLe, nil
	case "gt":
		return ir.OpGt, nil
	case "ge":
		return ir.OpGe, nil
	case "and":
		return ir.OpAnd, nil
	case "or":
		return ir.OpOr, nil
	}
	return 0, fmt.Errorf("unknown operator %q", op)
}

// ident NFC-normalizes an identifier.
func ident(name string) string {
	return norm.NFC.String(name)
}
