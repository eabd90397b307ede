// Package model defines the data structures shared by the discovery and
// extraction engines, the pipeline, the history database and the report
// writers.
//
// This package contains the following main types:
//   - Page: a fetched HTML page
//   - DiscoveryResult: the outcome of one discovery session
//   - ExtractionResult and Summary: per-page and per-batch extraction outcomes
//   - Artifact: the text file written for every extracted page
//   - SessionReport: everything one pipeline run produced for a base address
//
// Models live in their own package so that crawler, extract, pipeline and
// report can share them without import cycles. They serialize to JSON for
// report output and the HTTP API.
package model
