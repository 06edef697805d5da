package progfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode writes root to w in wire form. The schema field is stamped
// here so callers cannot accidentally emit an unversioned file.
func Encode(w io.Writer, root *Root) error {
	root.Schema = SchemaVersion
	return msgpack.NewEncoder(w).Encode(root)
}

// Save writes root to path atomically: encode to a temp file in the
// same directory, then rename over the target.
func Save(path string, root *Root) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*.lgp")
	if err != nil {
		return err
	}
	if err := Encode(f, root); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}
