package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeAddress validates an address given by a user and strips its
// fragment. Nothing else is changed: trailing slashes, query order and
// case stay significant.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return raw, nil
}

// InScope reports whether address starts with scope. The match is a pure
// string prefix and is not aware of path segments, so the scope
// "https://example.com/doc" also covers "https://example.com/docs".
func InScope(address, scope string) bool {
	return strings.HasPrefix(address, scope)
}

// resolveLink resolves href against base and drops the fragment.
// It returns false for hrefs that do not parse.
func resolveLink(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}
