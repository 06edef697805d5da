package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
)

// FileID identifies a file within a FileSet.
type FileID uint32

// File holds the content of one LOGOS source file plus a newline index
// for offset→line:col resolution.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	lineIdx []uint32
}

// LineCol is a 1-based human-readable position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// FileSet maps FileIDs to file content. The analyzer itself only needs
// spans; the FileSet exists so the CLI can render diagnostics against
// the original source text when it is available.
type FileSet struct {
	files []File
	index map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add registers content under path and returns a fresh FileID.
func (fs *FileSet) Add(path string, content []byte) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file count overflow: %w", err))
	}
	id := FileID(n)
	normalized := filepath.ToSlash(filepath.Clean(path))
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		lineIdx: buildLineIndex(content),
	})
	fs.index[normalized] = id
	return id
}

// Load reads a file from disk and adds it to the set.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fs.Add(path, content), nil
}

// Get returns file metadata, or nil for an unknown ID.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the file registered under path, if any.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	normalized := filepath.ToSlash(filepath.Clean(path))
	if id, ok := fs.index[normalized]; ok {
		return &fs.files[id], true
	}
	return nil, false
}

func (fs *FileSet) Len() int { return len(fs.files) }

// Resolve converts a span into start and end line:col positions.
// Spans pointing at unknown files resolve to 1:1.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		one := LineCol{Line: 1, Col: 1}
		return one, one
	}
	return toLineCol(f.lineIdx, span.Start), toLineCol(f.lineIdx, span.End)
}

// Line returns the 1-based line lineNum without its trailing newline,
// or "" when the line does not exist.
func (f *File) Line(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	lenIdx := uint32(len(f.lineIdx))     //nolint:gosec // bounded by file size
	lenContent := uint32(len(f.Content)) //nolint:gosec // bounded by file size

	var start uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < lenIdx:
		start = f.lineIdx[lineNum-2] + 1
	default:
		return ""
	}

	end := lenContent
	if lineNum-1 < lenIdx {
		end = f.lineIdx[lineNum-1]
	}
	if start >= lenContent {
		return ""
	}
	return string(f.Content[start:end])
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, 16)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) //nolint:gosec // bounded by file size
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	// Newlines strictly before off determine the line number. A '\n'
	// at off itself still belongs to the line it terminates.
	before, _ := slices.BinarySearch(lineIdx, off)
	if before == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	lineStart := lineIdx[before-1] + 1
	return LineCol{Line: uint32(before) + 1, Col: off - lineStart + 1} //nolint:gosec // bounded by line count
}
