// Package version records build metadata injected at link time via
// -ldflags "-X ...".
package version

var (
	// Version is the release version.
	Version = "0.1.0"
	// GitCommit is the short hash of the commit the binary was built from.
	GitCommit = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
