package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// parseDocument parses raw HTML with scripting disabled, so that the
// content of <noscript> is parsed as markup rather than kept as raw text.
func parseDocument(raw []byte) (*goquery.Document, error) {
	root, err := html.ParseWithOptions(bytes.NewReader(raw), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// visibleText returns the text of sel: every text node trimmed, empty ones
// dropped, the rest joined with newlines. Script, style and template
// contents are not text.
func visibleText(sel *goquery.Selection) string {
	parts := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template":
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

// Content is the outcome of running the rule table over one page.
type Content struct {
	// Text is the extracted text, or SentinelText when Rule is empty.
	Text string

	// Rule is the selector of the rule that matched, empty if none did.
	Rule string
}

// ExtractContent selects the main content region of raw with rules, strips
// the noise selectors from it and returns its visible text. Parsing does
// not fail on malformed markup; an error means the input could not be read.
func ExtractContent(raw []byte, rules []ContentRule, noise []string) (Content, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return Content{}, err
	}

	for _, rule := range rules {
		region, ok := rule.match(doc, raw)
		if !ok {
			continue
		}
		for _, sel := range noise {
			region.Find(sel).Remove()
		}
		return Content{Text: visibleText(region), Rule: rule.Selector}, nil
	}
	return Content{Text: SentinelText}, nil
}
