package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"golang.org/x/net/html"
)

// Parser extracts anchor links from HTML.
//
// We use golang.org/x/net/html for parsing rather than regex because it
// handles the malformed markup that is common on the web.
type Parser struct {
	// baseURL is the address relative links resolve against.
	baseURL *url.URL
}

// NewParser creates a Parser resolving links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return &Parser{baseURL: u}, nil
}

// Links returns the href of every <a> element in document order, resolved
// to an absolute address without fragment. Duplicates are kept; the
// caller's visited and discovered sets handle them.
func (p *Parser) Links(content io.Reader) ([]string, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := getAttr(n, "href"); ok {
				if link, ok := resolveLink(p.baseURL, href); ok {
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// ParseLinks is a shorthand for NewParser(page.BaseURL()).Links(page.Body).
func ParseLinks(baseURL string, body []byte) ([]string, error) {
	p, err := NewParser(baseURL)
	if err != nil {
		return nil, err
	}
	return p.Links(bytes.NewReader(body))
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
