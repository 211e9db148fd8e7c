// Package version exposes the kpsync build version.
package version

// Version is set at build time via -ldflags.
var Version = "dev"
