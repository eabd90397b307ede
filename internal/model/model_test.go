package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestArtifactBytes(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	a := Artifact{URL: "https://example.com/docs/", ScrapedAt: ts, Body: "Title\nParagraph"}

	want := "URL: https://example.com/docs/\nScraped_At: 2024-05-01T12:30:00Z\n\nTitle\nParagraph"
	if got := string(a.Bytes()); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParseArtifact(t *testing.T) {
	t.Parallel()

	t.Run("reads back what Bytes wrote", func(t *testing.T) {
		t.Parallel()
		ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("JST", 9*3600))
		in := Artifact{URL: "https://example.com/a", ScrapedAt: ts, Body: "line 1\n\nline 3\n"}

		out, err := ParseArtifact(in.Bytes())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.URL != in.URL || out.Body != in.Body || !out.ScrapedAt.Equal(ts) {
			t.Errorf("expected %+v, got %+v", in, out)
		}
	})

	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "no url line", data: "Scraped_At: 2024-05-01T12:30:00Z\n\nbody"},
		{name: "bad timestamp", data: "URL: x\nScraped_At: yesterday\n\nbody"},
		{name: "no blank line", data: "URL: x\nScraped_At: 2024-05-01T12:30:00Z\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseArtifact([]byte(tt.data)); !errors.Is(err, ErrMalformedArtifact) {
				t.Errorf("expected ErrMalformedArtifact, got %v", err)
			}
		})
	}
}

func TestSummaryAdd(t *testing.T) {
	t.Parallel()

	s := NewSummary("https://example.com/", "/tmp/out")
	s.Add(ExtractionResult{URL: "https://example.com/a", Path: "/tmp/out/a.txt"})
	s.Add(ExtractionResult{URL: "https://example.com/b", Reason: ReasonRequestError, Detail: "404 Not Found"})
	s.Add(ExtractionResult{URL: "https://example.com/c", Path: "/tmp/out/c.txt"})
	s.Finish()

	if s.Attempted != 3 || s.Succeeded != 2 || s.FailedCount() != 1 {
		t.Errorf("unexpected counts: attempted=%d succeeded=%d failed=%d", s.Attempted, s.Succeeded, s.FailedCount())
	}
	if s.Failed[0] != "https://example.com/b" {
		t.Errorf("expected failed address b, got %v", s.Failed)
	}
	if len(s.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(s.Results))
	}
	if s.FinishedAt.Before(s.StartedAt) {
		t.Error("expected FinishedAt after StartedAt")
	}
}

func TestExtractionResultSucceeded(t *testing.T) {
	t.Parallel()

	if !(ExtractionResult{URL: "a"}).Succeeded() {
		t.Error("expected result without reason to succeed")
	}
	if (ExtractionResult{URL: "a", Reason: ReasonWriteError}).Succeeded() {
		t.Error("expected result with reason to fail")
	}
}

func TestDiscoveryResult(t *testing.T) {
	t.Parallel()

	var nilResult *DiscoveryResult
	if !nilResult.Empty() {
		t.Error("expected nil result to be empty")
	}

	start := time.Now()
	r := &DiscoveryResult{Links: []string{"https://example.com/"}, StartedAt: start, FinishedAt: start.Add(2 * time.Second)}
	if r.Empty() {
		t.Error("expected result with links to be non-empty")
	}
	if r.Duration() != 2*time.Second {
		t.Errorf("expected 2s, got %v", r.Duration())
	}
}

func TestPageBaseURL(t *testing.T) {
	t.Parallel()

	p := &Page{URL: "https://example.com/old"}
	if p.BaseURL() != "https://example.com/old" {
		t.Errorf("unexpected base %q", p.BaseURL())
	}
	p.FinalURL = "https://example.com/new/"
	if p.BaseURL() != "https://example.com/new/" {
		t.Errorf("unexpected base %q", p.BaseURL())
	}
}

func TestSessionReport(t *testing.T) {
	t.Parallel()

	r := NewSessionReport("https://example.com/")
	if r.Links() != nil {
		t.Error("expected no links before discovery")
	}
	r.SetError(errors.New("boom"))
	if !strings.Contains(r.ErrorMessage, "boom") {
		t.Errorf("expected error message, got %q", r.ErrorMessage)
	}
}
