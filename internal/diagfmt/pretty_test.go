package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"logos/internal/diag"
	"logos/internal/source"
)

func sampleDiags(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Add("src/demo.lg", []byte("transfer basket to deliver\nshare basket with audit\n"))

	moveAt := source.Span{File: id, Start: 9, End: 15}
	useAt := source.Span{File: id, Start: 33, End: 39}

	bag := diag.NewBag(16)
	bag.Add(diag.NewError(diag.OwnUseAfterMove, useAt,
		"use of moved value 'basket'").
		WithNote(moveAt, "value was transferred here").
		WithFix("duplicate 'basket' instead of transferring it",
			diag.FixEdit{Span: moveAt, NewText: "duplicate of basket"}))
	bag.Sort()
	return bag, fs
}

func TestPretty(t *testing.T) {
	bag, fs := sampleDiags(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowFixes: true})
	out := buf.String()

	if !strings.Contains(out, "src/demo.lg:2:7: ERROR OWN4001: use of moved value 'basket'") {
		t.Errorf("header line missing or malformed:\n%s", out)
	}
	if !strings.Contains(out, "share basket with audit") {
		t.Errorf("source line should be echoed:\n%s", out)
	}
	if !strings.Contains(out, "^~~~~") {
		t.Errorf("underline missing:\n%s", out)
	}
	if !strings.Contains(out, "note: value was transferred here") {
		t.Errorf("note missing:\n%s", out)
	}
	if !strings.Contains(out, "help: duplicate 'basket'") {
		t.Errorf("fix missing:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("color disabled but escape codes present")
	}
}

func TestPrettyBasenames(t *testing.T) {
	bag, fs := sampleDiags(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if !strings.Contains(buf.String(), "demo.lg:2:7") {
		t.Errorf("basename mode should drop directories:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "src/demo.lg") {
		t.Errorf("full path leaked in basename mode")
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sampleDiags(t)
	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{
		IncludePositions: true,
		IncludeNotes:     true,
		IncludeFixes:     true,
	})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("want one diagnostic, got %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "OWN4001" || d.Severity != "error" {
		t.Errorf("code/severity: %+v", d)
	}
	if d.Location.File != "src/demo.lg" {
		t.Errorf("location file: %q", d.Location.File)
	}
	if len(d.Notes) != 1 || len(d.Fixes) != 1 {
		t.Errorf("notes/fixes not included: %+v", d)
	}
}

func TestSarif(t *testing.T) {
	bag, fs := sampleDiags(t)
	var buf bytes.Buffer
	err := Sarif(&buf, bag, fs, SarifRunMeta{ToolName: "logos", ToolVersion: "1.0.0"})
	if err != nil {
		t.Fatalf("Sarif: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["version"] != "2.1.0" {
		t.Errorf("sarif version: %v", doc["version"])
	}
	runs, ok := doc["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("want one run, got %v", doc["runs"])
	}
	run := runs[0].(map[string]any)
	results := run["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("want one result, got %d", len(results))
	}
	res := results[0].(map[string]any)
	if res["ruleId"] != "OWN4001" || res["level"] != "error" {
		t.Errorf("result: %+v", res)
	}
}

func TestEmptyBagOutputs(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(1)

	var pretty bytes.Buffer
	Pretty(&pretty, bag, fs, PrettyOpts{})
	if pretty.Len() != 0 {
		t.Errorf("no diagnostics, no output: %q", pretty.String())
	}

	var js bytes.Buffer
	if err := JSON(&js, bag, fs, JSONOpts{}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(js.Bytes(), &out); err != nil || out.Count != 0 {
		t.Errorf("empty report expected: %v %+v", err, out)
	}
}
