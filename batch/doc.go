// Package batch matches many targets concurrently.
//
// A Runner fans target IDs out over a worker pool, runs one independent
// match per target and returns the results in input order. Progress is
// reported to an io.Writer while the batch runs.
package batch
