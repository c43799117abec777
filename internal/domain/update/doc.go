// Package update contains core domain types for the upgrade journal.
//
// It defines Entry (one timestamped journal line) with its on-disk format,
// the daily journal filename, and Actor (who started the run).
package update
