// Package version carries build metadata for the logos CLI.
// All variables are meant to be overridden at link time via -ldflags.
package version

import "strings"

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Release reports whether Version looks like a tagged release rather
// than a development build.
func Release() bool {
	return Version != "" && !strings.HasSuffix(Version, "-dev")
}
