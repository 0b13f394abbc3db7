// Package version holds the build version reported by both binaries.
package version

// Version is the current release of the guide runtime and admin server.
const Version = "v0.3.1"
