package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "logos.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"
program = "build/demo.lgp"

[analysis]
iteration_bound = 500
jobs = 4
max_diagnostics = 32

[cache]
enabled = true
dir = ".cache"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Config.Package.Name != "demo" {
		t.Errorf("name: got %q", m.Config.Package.Name)
	}
	if m.Config.Analysis.IterationBound != 500 || m.Config.Analysis.Jobs != 4 {
		t.Errorf("analysis section: got %+v", m.Config.Analysis)
	}
	if !m.Config.Cache.Enabled {
		t.Errorf("cache should be enabled")
	}
	want := filepath.Join(dir, "build", "demo.lgp")
	if got := m.ProgramPath(); got != want {
		t.Errorf("ProgramPath: got %q, want %q", got, want)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if m.Config.Analysis.IterationBound != def.Analysis.IterationBound {
		t.Errorf("iteration bound should default, got %d", m.Config.Analysis.IterationBound)
	}
	if m.Config.Analysis.MaxDiagnostics != def.Analysis.MaxDiagnostics {
		t.Errorf("max diagnostics should default, got %d", m.Config.Analysis.MaxDiagnostics)
	}
	if m.ProgramPath() != "" {
		t.Errorf("no program configured: got %q", m.ProgramPath())
	}
}

func TestUnknownKeysAreRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"
flavor = "spicy"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("unknown keys must be rejected")
	}
}

func TestInvalidValuesAreRejected(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero bound", "[analysis]\niteration_bound = 0\n"},
		{"negative jobs", "[analysis]\njobs = -1\n"},
		{"zero diagnostics", "[analysis]\nmax_diagnostics = 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.content)
			if _, err := Load(path); err == nil {
				t.Fatalf("want a validation error")
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"demo\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if m.Config.Package.Name != "demo" {
		t.Errorf("nested discovery should find the root manifest, got %+v", m.Config.Package)
	}
}

func TestDiscoverWithoutManifestUsesDefaults(t *testing.T) {
	m, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if m.Path != "" {
		t.Errorf("no manifest path expected, got %q", m.Path)
	}
	if m.Config.Analysis.IterationBound != DefaultConfig().Analysis.IterationBound {
		t.Errorf("defaults expected, got %+v", m.Config.Analysis)
	}
}

func TestHashing(t *testing.T) {
	a := HashBytes([]byte("program one"))
	b := HashBytes([]byte("program two"))
	if a == b {
		t.Errorf("different inputs should hash differently")
	}
	if a != HashBytes([]byte("program one")) {
		t.Errorf("hashing must be deterministic")
	}
	if Combine(a, b) == Combine(b, a) {
		t.Errorf("combine should be order-sensitive")
	}
}
