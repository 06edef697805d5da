package diag

import (
	"logos/internal/source"
)

// Note is a secondary span with context ("value was transferred here").
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit is a concrete text replacement.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested correction the CLI can show or apply.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is one finding produced by an analysis pass.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// NewError builds the common case: an ownership violation that blocks
// compilation.
func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote attaches a secondary span, typically the original transfer
// site paired with a later use.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, edits ...FixEdit) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Edits: edits})
	return d
}
