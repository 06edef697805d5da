package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"logos/internal/version"
)

const versionTagline = "every value owned exactly once"

// versionPayload is the --format=json shape. Build metadata fields are
// omitted unless --full is set.
type versionPayload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	Channel    string `json:"channel"`
	Tagline    string `json:"tagline"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

var (
	versionFormat string
	versionFull   bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include commit, message, and build date")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show logos build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := buildVersionPayload(versionFull)
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		case "pretty":
			printVersion(cmd.OutOrStdout(), payload)
			return nil
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

func buildVersionPayload(full bool) versionPayload {
	p := versionPayload{
		Tool:    "logos",
		Version: strings.TrimSpace(version.Version),
		Channel: "dev",
		Tagline: versionTagline,
	}
	if p.Version == "" {
		p.Version = "dev"
	}
	if version.Release() {
		p.Channel = "release"
	}
	if full {
		p.GitCommit = valueOrUnknown(version.GitCommit)
		p.GitMessage = valueOrUnknown(version.GitMessage)
		p.BuildDate = valueOrUnknown(version.BuildDate)
	}
	return p
}

func printVersion(out io.Writer, p versionPayload) {
	fmt.Fprintf(out, "logos %s [%s] (%s)\n", p.Version, p.Channel, p.Tagline)
	if p.GitCommit == "" {
		fmt.Fprintln(out, "pass --full for commit and build metadata")
		return
	}
	fmt.Fprintf(out, "commit:  %s\n", p.GitCommit)
	fmt.Fprintf(out, "message: %s\n", p.GitMessage)
	fmt.Fprintf(out, "built:   %s\n", p.BuildDate)
}

func valueOrUnknown(s string) string {
	if s := strings.TrimSpace(s); s != "" {
		return s
	}
	return "unknown"
}
