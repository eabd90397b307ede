// Package database provides the SQLite session history of sitearchive.
//
// Every extraction session is stored with its base address, output
// directory and counts, and every extraction job with its outcome, so
// that past runs can be listed and their failed pages retried.
//
// The database is a single file, sitearchive.db, opened with the CGO-free
// modernc.org/sqlite driver.
package database
