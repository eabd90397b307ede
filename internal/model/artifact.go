package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Artifact header layout. The timestamp is ISO-8601.
const (
	artifactURLPrefix       = "URL: "
	artifactScrapedAtPrefix = "Scraped_At: "
	ArtifactTimeFormat      = time.RFC3339
	ArtifactExtension       = ".txt"
)

// ErrMalformedArtifact is returned by ParseArtifact for data that does not
// start with the URL and Scraped_At header lines.
var ErrMalformedArtifact = errors.New("malformed artifact")

// Artifact is the plain-text file written for one extracted page.
// It is created once and never modified.
type Artifact struct {
	URL       string
	ScrapedAt time.Time
	Body      string
}

// Bytes renders the artifact: a URL line, a Scraped_At line, one blank
// line, then the body verbatim.
func (a Artifact) Bytes() []byte {
	var b bytes.Buffer
	b.Grow(len(a.URL) + len(a.Body) + 64)
	b.WriteString(artifactURLPrefix)
	b.WriteString(a.URL)
	b.WriteByte('\n')
	b.WriteString(artifactScrapedAtPrefix)
	b.WriteString(a.ScrapedAt.Format(ArtifactTimeFormat))
	b.WriteString("\n\n")
	b.WriteString(a.Body)
	return b.Bytes()
}

// ParseArtifact reads an artifact back.
func ParseArtifact(data []byte) (Artifact, error) {
	s := string(data)

	urlLine, rest, ok := strings.Cut(s, "\n")
	if !ok || !strings.HasPrefix(urlLine, artifactURLPrefix) {
		return Artifact{}, fmt.Errorf("%w: missing URL line", ErrMalformedArtifact)
	}
	tsLine, rest, ok := strings.Cut(rest, "\n")
	if !ok || !strings.HasPrefix(tsLine, artifactScrapedAtPrefix) {
		return Artifact{}, fmt.Errorf("%w: missing Scraped_At line", ErrMalformedArtifact)
	}
	ts, err := time.Parse(ArtifactTimeFormat, strings.TrimPrefix(tsLine, artifactScrapedAtPrefix))
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
	}
	body, ok := strings.CutPrefix(rest, "\n")
	if !ok {
		return Artifact{}, fmt.Errorf("%w: missing blank line", ErrMalformedArtifact)
	}

	return Artifact{
		URL:       strings.TrimPrefix(urlLine, artifactURLPrefix),
		ScrapedAt: ts,
		Body:      body,
	}, nil
}
