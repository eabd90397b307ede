// Package crawler provides the discovery engine of sitearchive: an HTTP
// page fetcher, an anchor link parser and the Spider that walks a site.
//
// # Architecture
//
// The Spider explores the link graph depth-first from a start address.
// Instead of recursing it keeps an explicit stack of frames, one per
// fetched page, so crawl depth never turns into goroutine stack depth and
// cancellation can be checked between any two steps.
//
// Each discovery session owns two sets:
//   - visited: addresses whose page was fetched (or attempted)
//   - discovered: in-scope addresses encountered, the session's output
//
// An address is in scope if its string starts with the scope prefix. A
// fetched page outside scope is still parsed, but its links are only
// followed when they are in scope themselves, so out-of-scope pages are
// dead ends.
//
// # Components
//
//   - Fetcher: HTTP GET with timeout, body size cap and charset decoding
//   - Parser: x/net/html walker returning resolved anchor links
//   - PathFilter: glob based ignore/follow rules from the site config
//   - Spider: the discovery engine
//
// # Politeness
//
// The Spider waits half of the politeness delay before each recursion
// step, regardless of how the previous fetch went. The wait honours
// context cancellation.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(crawler.WithTimeout(15 * time.Second))
//	spider := crawler.NewSpider(fetcher, crawler.WithMaxDepth(3))
//	result, err := spider.Discover(ctx, "https://example.com/docs/", "https://example.com/docs/")
package crawler
