// Package version exposes build metadata for the updater binary.
//
// Version, Commit and BuildTime are injected via Go ldflags, e.g.
// -X github.com/oshokin/winget-autoupdate/internal/version.Version=1.2.3.
package version
