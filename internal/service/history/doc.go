// Package history prints the upgrade journal of a given day.
package history
