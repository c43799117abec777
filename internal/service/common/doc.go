// Package common holds host capabilities shared by several services.
//
// It detects the current system actor (username/hostname), runs external
// commands with merged output and counts running processes by executable
// name. Each capability sits behind a narrow interface so services can be
// tested with fakes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
