// Package pipeline runs the session of one base address as a sequence of
// steps: discover links, select pages, create the session directory,
// extract the pages, and optionally write a summary file and record the
// session in the history database.
//
// A BatchProcessor runs one pipeline per base address with errgroup,
// bounded by a concurrency limit. Failures are recorded in each base
// address's report and never stop the other base addresses.
package pipeline
