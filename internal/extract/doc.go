// Package extract turns fetched pages into plain-text artifacts.
//
// A page's main content region is chosen by walking a fixed-priority table
// of content rules; the first rule that matches wins. Navigation, headers,
// footers, scripts and similar noise are removed from the region, and its
// text nodes are trimmed and joined with newlines. When no rule matches a
// placeholder sentence is written instead, and the page still counts as
// extracted.
//
// Each artifact starts with a URL line and a Scraped_At line followed by a
// blank line and the text. See model.Artifact for the exact layout.
package extract
