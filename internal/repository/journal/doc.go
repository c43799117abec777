// Package journal implements the append-only upgrade journal.
//
// Each calendar day gets its own "YYYY-MM-DD.log" file under the log
// directory. Entries are encoded by a zap core as
// "YYYY-MM-DD HH:MM:SS - message" and teed to the console.
package journal
