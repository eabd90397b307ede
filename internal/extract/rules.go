package extract

import (
	"regexp"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// SentinelText is written instead of body text when no content rule
// matched. Such a page still counts as extracted.
const SentinelText = "Content not found (no specific selectors matched or body tag missing)."

// ContentRule selects the region of a page that holds its main content.
type ContentRule struct {
	// Selector is a CSS selector. The first match in document order is used.
	Selector string

	// Explicit requires the matched element's tag to be written in the
	// markup. The HTML parser inserts <html>, <head> and <body> on its own,
	// so a catch-all "body" rule must not match a page that has none.
	Explicit bool
}

// DefaultContentRules are tried in order; the first rule that matches wins
// and no further rules are tried.
var DefaultContentRules = []ContentRule{
	{Selector: "article.main-content"},
	{Selector: "div.markdown-body"},
	{Selector: "article"},
	{Selector: "main"},
	{Selector: "div.content"},
	{Selector: "div#content"},
	{Selector: "section.content"},
	{Selector: `div[role="main"]`},
	{Selector: "div.main"},
	{Selector: "div.post-content"},
	{Selector: "body", Explicit: true},
}

// DefaultNoiseSelectors match elements removed from the selected region
// before its text is taken.
var DefaultNoiseSelectors = []string{
	"nav",
	"footer",
	"script",
	"style",
	".noprint",
	".no-export",
	"header",
	"aside",
	"form",
	".sidebar",
	"#sidebar",
}

// match returns the region selected by the rule, or false.
func (r ContentRule) match(doc *goquery.Document, raw []byte) (*goquery.Selection, bool) {
	sel := doc.Find(r.Selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	if r.Explicit && !hasExplicitTag(raw, goquery.NodeName(sel)) {
		return nil, false
	}
	return sel, true
}

var (
	tagPatternsMu sync.Mutex
	tagPatterns   = make(map[string]*regexp.Regexp)
)

// hasExplicitTag reports whether raw contains an opening tag named tag.
func hasExplicitTag(raw []byte, tag string) bool {
	tagPatternsMu.Lock()
	re, ok := tagPatterns[tag]
	if !ok {
		re = regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(tag) + `[\s/>]`)
		tagPatterns[tag] = re
	}
	tagPatternsMu.Unlock()
	return re.Match(raw)
}
