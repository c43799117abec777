// Package scheduler runs the upgrade on a cron schedule inside a long-lived process.
//
// It is an alternative to an external task scheduler: overlapping runs are
// skipped rather than started side by side, and a failed run is logged and
// retried at the next tick.
package scheduler
