// Package version reports the build version of the process runner.
//
// The version and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/procspec/version.Version=1.2.0"
//
// The commit and dirty flag fall back to the VCS stamp Go embeds in the
// binary.
package version
