// Package version holds the build metadata reported by the ragpipe
// binaries and the API root endpoint.
package version

//nolint:revive // Set via -ldflags "-X" at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
