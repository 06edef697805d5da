package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the decoded logos.toml.
type Config struct {
	Package  PackageConfig  `toml:"package"`
	Analysis AnalysisConfig `toml:"analysis"`
	Cache    CacheConfig    `toml:"cache"`
}

// PackageConfig names the project and its program file.
type PackageConfig struct {
	Name string `toml:"name"`
	// Program is the path to the .lgp program file, relative to the
	// manifest directory.
	Program string `toml:"program"`
}

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	// IterationBound caps fixed-point iterations. Exhausting it is an
	// internal invariant violation, never expected for real programs.
	IterationBound int `toml:"iteration_bound"`
	// Jobs limits per-function analysis parallelism; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
	// MaxDiagnostics caps emitted diagnostics per run.
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// CacheConfig controls the on-disk analysis cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Manifest pairs the decoded config with its location on disk.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// DefaultConfig returns the configuration used when no manifest exists.
func DefaultConfig() Config {
	return Config{
		Analysis: AnalysisConfig{
			IterationBound: 10000,
			MaxDiagnostics: 256,
		},
	}
}

// FindManifest walks up from startDir to locate logos.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "logos.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %q", undecoded[0].String(), path)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid manifest %q: %w", path, err)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// Discover finds and loads the nearest manifest above startDir,
// falling back to defaults when none exists.
func Discover(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Manifest{Config: DefaultConfig()}, nil
	}
	return Load(path)
}

// ProgramPath resolves the configured program file against the
// manifest root; an empty configuration yields "".
func (m *Manifest) ProgramPath() string {
	if m.Config.Package.Program == "" {
		return ""
	}
	if filepath.IsAbs(m.Config.Package.Program) {
		return m.Config.Package.Program
	}
	return filepath.Join(m.Root, m.Config.Package.Program)
}

func validate(cfg *Config) error {
	if cfg.Analysis.IterationBound <= 0 {
		return fmt.Errorf("analysis.iteration_bound must be positive, got %d", cfg.Analysis.IterationBound)
	}
	if cfg.Analysis.Jobs < 0 {
		return fmt.Errorf("analysis.jobs must be non-negative, got %d", cfg.Analysis.Jobs)
	}
	if cfg.Analysis.MaxDiagnostics <= 0 {
		return fmt.Errorf("analysis.max_diagnostics must be positive, got %d", cfg.Analysis.MaxDiagnostics)
	}
	return nil
}
