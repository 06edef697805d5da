package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"logos/internal/diag"
	"logos/internal/source"
)

// Pretty renders diagnostics for humans. Expects bag.Sort() to have
// run. Each diagnostic prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline when the file is
// available, then notes in the same shape.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	sevColor := map[diag.Severity]*color.Color{
		diag.SevInfo:    color.New(color.FgCyan),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevError:   color.New(color.FgRed, color.Bold),
	}
	paint := func(c *color.Color, s string) string {
		if !opts.Color || c == nil {
			return s
		}
		return c.Sprint(s)
	}

	for _, d := range bag.Items() {
		start, _ := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
			displayPath(fs, d.Primary.File, opts.PathMode),
			start.Line, start.Col,
			paint(sevColor[d.Severity], d.Severity.String()),
			d.Code.ID(),
			d.Message)
		writeUnderline(w, fs, d.Primary, opts, "^")

		if opts.ShowNotes {
			for _, n := range d.Notes {
				nstart, _ := fs.Resolve(n.Span)
				fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
					displayPath(fs, n.Span.File, opts.PathMode),
					nstart.Line, nstart.Col,
					paint(color.New(color.FgCyan), "note"),
					n.Msg)
				writeUnderline(w, fs, n.Span, opts, "-")
			}
		}
		if opts.ShowFixes {
			for _, f := range d.Fixes {
				fmt.Fprintf(w, "  %s: %s\n", paint(color.New(color.FgGreen), "help"), f.Title)
			}
		}
	}
}

// writeUnderline prints the source line the span starts on with a
// marker under the spanned columns. Multi-line spans underline only
// their first line.
func writeUnderline(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts, marker string) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(sp)
	line := f.Line(start.Line)
	if line == "" && start.Col > 1 {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	}
	// Tabs in the prefix keep their width so the caret lines up.
	prefix := make([]byte, 0, int(start.Col)-1)
	for i := 0; i < int(start.Col)-1 && i < len(line); i++ {
		if line[i] == '\t' {
			prefix = append(prefix, '\t')
		} else {
			prefix = append(prefix, ' ')
		}
	}
	underline := marker
	if width > 1 {
		underline += strings.Repeat("~", width-1)
	}
	if opts.Color {
		underline = color.New(color.FgRed, color.Bold).Sprint(underline)
	}
	fmt.Fprintf(w, "  %s%s\n", prefix, underline)
}

func displayPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	if mode == PathModeBasename {
		return filepath.Base(f.Path)
	}
	return f.Path
}
