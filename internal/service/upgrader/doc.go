// Package upgrader runs the package-manager upgrade and journals its output.
//
// A run checks that the package manager is installed, records its version,
// runs the upgrade of all packages unattended and appends every line of the
// combined output to the daily journal. Only orchestration failures make the
// run fail; packages the tool could not upgrade are journaled as reported.
package upgrader
