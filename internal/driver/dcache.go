package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"logos/internal/diag"
	"logos/internal/project"
	"logos/internal/source"
)

// Bump when the DiskPayload layout changes; stale entries are ignored,
// never migrated.
const diskCacheSchemaVersion uint16 = 2

// DiskCache stores analysis results keyed by program digest so an
// unchanged program skips the whole pipeline on the next run.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedSpan is a plain Span for serialization.
type CachedSpan struct {
	File  uint32
	Start uint32
	End   uint32
}

// CachedFunc records per-function signature decisions.
type CachedFunc struct {
	Name           string
	ReadonlyParams []string
	ParamStyles    []uint8
}

// CachedCall records one call-site decision.
type CachedCall struct {
	Fn     string
	Callee string
	Span   CachedSpan
	Args   []uint8
}

// CachedIndex records one index-site decision.
type CachedIndex struct {
	Fn    string
	Span  CachedSpan
	Style uint8
}

// CachedNote records one secondary span of a diagnostic.
type CachedNote struct {
	Span    CachedSpan
	Message string
}

// CachedDiag records one diagnostic with its attachments, so a cache
// hit reprints exactly what the original run reported.
type CachedDiag struct {
	Severity uint8
	Code     uint16
	Span     CachedSpan
	Message  string
	Notes    []CachedNote
	Fixes    []string
}

// CachedFile records one source file so cached diagnostics can render
// with line numbers and underlines.
type CachedFile struct {
	Path    string
	Content []byte
}

// DiskPayload is the serialized outcome of one pipeline run.
type DiskPayload struct {
	Schema      uint16
	Package     string
	ProgramHash project.Digest

	Files   []CachedFile
	Funcs   []CachedFunc
	Calls   []CachedCall
	Indexes []CachedIndex
	Diags   []CachedDiag
}

// OpenDiskCache initializes a disk cache. An empty dir selects the
// standard per-user cache location.
func OpenDiskCache(app, dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Results live under "runs" so DropAll never races other apps
	// sharing the cache root.
	return filepath.Join(c.dir, "runs", hexKey+".mp")
}

// Put serializes and writes a payload, atomically replacing any
// previous entry for the same key.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload; the boolean reports a schema-valid hit.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close() //nolint:errcheck // read-only file
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// BuildPayload flattens a pipeline result for caching. Decision
// records are already in deterministic order, so two runs over the
// same program produce byte-identical payloads.
func BuildPayload(res *Result, hash project.Digest) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Package:     res.Bundle.Package,
		ProgramHash: hash,
	}
	for i := 0; i < res.Bundle.Files.Len(); i++ {
		f := res.Bundle.Files.Get(source.FileID(i))
		payload.Files = append(payload.Files, CachedFile{Path: f.Path, Content: f.Content})
	}
	for _, d := range res.Diags.Items() {
		cd := CachedDiag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Span:     cachedSpan(d.Primary),
			Message:  d.Message,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Span: cachedSpan(n.Span), Message: n.Msg})
		}
		for _, f := range d.Fixes {
			cd.Fixes = append(cd.Fixes, f.Title)
		}
		payload.Diags = append(payload.Diags, cd)
	}
	ctx := res.Context
	if ctx == nil {
		return payload
	}
	tab := res.Bundle.Table
	for _, fn := range res.Bundle.Program.Funcs {
		cf := CachedFunc{Name: fn.Name}
		for _, style := range ctx.ParamStyles(fn.Sym) {
			cf.ParamStyles = append(cf.ParamStyles, uint8(style))
		}
		for _, p := range fn.Params {
			if ctx.IsReadonly(fn.Sym, p.Sym) {
				cf.ReadonlyParams = append(cf.ReadonlyParams, tab.Name(p.Sym))
			}
		}
		payload.Funcs = append(payload.Funcs, cf)
	}
	for _, call := range ctx.Calls() {
		cc := CachedCall{
			Fn:     tab.Name(call.Fn),
			Callee: tab.Name(call.Callee),
			Span:   cachedSpan(call.Span),
		}
		for _, arg := range call.Args {
			cc.Args = append(cc.Args, uint8(arg.Style))
		}
		payload.Calls = append(payload.Calls, cc)
	}
	for _, idx := range ctx.Indexes() {
		payload.Indexes = append(payload.Indexes, CachedIndex{
			Fn:    tab.Name(idx.Fn),
			Span:  cachedSpan(idx.Span),
			Style: uint8(idx.Style),
		})
	}
	return payload
}

func cachedSpan(sp source.Span) CachedSpan {
	return CachedSpan{File: uint32(sp.File), Start: sp.Start, End: sp.End}
}

func (s CachedSpan) span() source.Span {
	return source.Span{File: source.FileID(s.File), Start: s.Start, End: s.End}
}

// Diagnostics rebuilds the bag and file table a cached run reported,
// so a hit renders through the same formatters as a fresh run.
func (p *DiskPayload) Diagnostics() (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	for _, f := range p.Files {
		fs.Add(f.Path, f.Content)
	}
	bag := diag.NewBag(len(p.Diags))
	for _, cd := range p.Diags {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), cd.Span.span(), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(n.Span.span(), n.Message)
		}
		for _, title := range cd.Fixes {
			d = d.WithFix(title)
		}
		bag.Add(d)
	}
	return bag, fs
}
