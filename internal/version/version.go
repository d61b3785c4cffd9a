// Package version holds the build version string, set by the release
// process via -ldflags; "dev" otherwise.
package version

// Version is overridden at build time with -ldflags "-X ...version.Version=vX.Y.Z".
var Version = "dev"
