package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// PathFilter decides from an address's path whether discovery may follow
// it. Patterns are globs with '/' as separator: "*" stays inside one path
// segment and "**" crosses segments, so "/admin/*" matches "/admin/users"
// and "/blog/**" matches everything below /blog. A pattern without '/'
// such as "*.pdf" is also tried against the last path segment.
//
// A nil *PathFilter allows everything.
type PathFilter struct {
	ignore []compiledPattern
	follow []compiledPattern
}

type compiledPattern struct {
	g        glob.Glob
	baseOnly bool
}

// NewPathFilter compiles the ignore and follow patterns. An address is
// skipped if it matches any ignore pattern, or if follow patterns exist and
// it matches none of them.
func NewPathFilter(ignore, follow []string) (*PathFilter, error) {
	if len(ignore) == 0 && len(follow) == 0 {
		return nil, nil
	}
	ig, err := compilePatterns(ignore)
	if err != nil {
		return nil, err
	}
	fo, err := compilePatterns(follow)
	if err != nil {
		return nil, err
	}
	return &PathFilter{ignore: ig, follow: fo}, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		out = append(out, compiledPattern{g: g, baseOnly: !strings.Contains(p, "/")})
	}
	return out, nil
}

// Allow reports whether address may be followed.
func (f *PathFilter) Allow(address string) bool {
	if f == nil {
		return true
	}
	u, err := url.Parse(address)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, c := range f.ignore {
		if c.match(p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, c := range f.follow {
		if c.match(p) {
			return true
		}
	}
	return false
}

func (c compiledPattern) match(p string) bool {
	if c.g.Match(p) {
		return true
	}
	return c.baseOnly && c.g.Match(path.Base(p))
}
