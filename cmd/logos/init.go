package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new logos project",
	Long: `Initialize a new logos project by creating a project manifest (logos.toml).
If [path|name] is omitted, initializes the current directory. If a
non-existing name is provided, a directory will be created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

const manifestTemplate = `[package]
name = %q
program = "build/%s.lgp"

[analysis]
iteration_bound = 10000
max_diagnostics = 256

[cache]
enabled = true
`

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := projectName(filepath.Base(target))

	manifestPath := filepath.Join(target, "logos.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("logos.toml already exists in %q", target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	content := fmt.Sprintf(manifestTemplate, name, name)
	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil { // #nosec G306 -- manifest is not sensitive
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", manifestPath)
	return nil
}

// projectName sanitizes a directory basename into a manifest name.
func projectName(base string) string {
	name := strings.TrimSpace(strings.ToLower(base))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z') {
		return "logos-project"
	}
	return name
}
