package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	applog "github.com/nao1215/sitearchive/internal/log"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/pipeline"
)

// newSite serves a two-page site whose root links to page2.html.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><main><a href="page2.html">Next</a></main></body></html>`))
	})
	mux.HandleFunc("/page2.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><article><p>Second page</p></article></body></html>`))
	})

	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func newTestServer(t *testing.T, site *httptest.Server) *Server {
	t.Helper()

	cfg := config.NewConfig()
	cfg.PolitenessDelay = 0
	cfg.OutputDir = t.TempDir()

	var client *http.Client
	if site != nil {
		client = site.Client()
	}
	return New(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHTTPClient(client),
	)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDiscoverAndScrape(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	s := newTestServer(t, site)
	base := site.URL + "/"

	rec := doJSON(t, s, http.MethodPost, "/api/discover", `{"urls":["`+base+`"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("discover status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var discovered SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&discovered); err != nil {
		t.Fatalf("decode discover response: %v", err)
	}
	if discovered.Token == "" {
		t.Fatal("expected a session token")
	}
	if len(discovered.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(discovered.Results))
	}
	want := []string{base, base + "page2.html"}
	got := discovered.Results[0].Links
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("links = %v, want %v", got, want)
	}

	t.Run("get session", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/sessions/"+discovered.Token, "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("scrape by selection", func(t *testing.T) {
		body := `{"token":"` + discovered.Token + `","selection":"2"}`
		rec := doJSON(t, s, http.MethodPost, "/api/scrape", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("scrape status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Results []ScrapeResult `json:"results"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode scrape response: %v", err)
		}
		if len(resp.Results) != 1 {
			t.Fatalf("got %d results, want 1", len(resp.Results))
		}
		res := resp.Results[0]
		if res.Attempted != 1 || res.Succeeded != 1 {
			t.Errorf("attempted=%d succeeded=%d, want 1/1", res.Attempted, res.Succeeded)
		}
		if len(res.Results) != 1 {
			t.Fatalf("got %d extraction results, want 1", len(res.Results))
		}
		data, err := os.ReadFile(res.Results[0].Path)
		if err != nil {
			t.Fatalf("read artifact: %v", err)
		}
		if !strings.Contains(string(data), "Second page") {
			t.Errorf("artifact = %q, want the page text", data)
		}
	})

	t.Run("scrape rejects a foreign link", func(t *testing.T) {
		body := `{"token":"` + discovered.Token + `","links":["https://elsewhere.example/"]}`
		rec := doJSON(t, s, http.MethodPost, "/api/scrape", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("scrape with empty selection", func(t *testing.T) {
		body := `{"token":"` + discovered.Token + `","selection":""}`
		rec := doJSON(t, s, http.MethodPost, "/api/scrape", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	scrapeInto := func(t *testing.T, dir string) *httptest.ResponseRecorder {
		t.Helper()
		body, err := json.Marshal(map[string]string{
			"token":        discovered.Token,
			"selection":    "all",
			"existing_dir": dir,
		})
		if err != nil {
			t.Fatal(err)
		}
		return doJSON(t, s, http.MethodPost, "/api/scrape", string(body))
	}

	t.Run("scrape into a directory under the output root", func(t *testing.T) {
		rec := scrapeInto(t, "archive")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Results []ScrapeResult `json:"results"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode scrape response: %v", err)
		}
		want := filepath.Join(s.cfg.OutputDir, "archive")
		if len(resp.Results) != 1 || resp.Results[0].OutputDir != want {
			t.Fatalf("results = %+v, want output dir %s", resp.Results, want)
		}
		if _, err := os.Stat(filepath.Join(want, pipeline.SummaryFileNameFor(base))); err != nil {
			t.Errorf("summary missing: %v", err)
		}
	})

	t.Run("scrape rejects a directory outside the output root", func(t *testing.T) {
		outside := t.TempDir()
		for _, dir := range []string{"../escape", outside, s.cfg.OutputDir} {
			rec := scrapeInto(t, dir)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("existing_dir %q: status = %d, want %d", dir, rec.Code, http.StatusBadRequest)
			}
		}
		entries, err := os.ReadDir(outside)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("wrote %d entries outside the output root", len(entries))
		}
	})
}

func TestDiscover_Form(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	s := newTestServer(t, site)

	form := url.Values{"urls": {site.URL + "/, ftp://bad.example"}}
	req := httptest.NewRequest(http.MethodPost, "/api/discover", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Error != "" {
		t.Errorf("unexpected error for valid target: %s", resp.Results[0].Error)
	}
	if resp.Results[1].Error == "" {
		t.Error("expected an error for the non-http target")
	}
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "no urls", body: `{"urls":[]}`},
		{name: "blank string", body: `{"urls":"  "}`},
		{name: "malformed", body: `{"urls":`},
		{name: "wrong type", body: `{"urls":42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, s, http.MethodPost, "/api/discover", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSessions_Unknown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/sessions/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/scrape", `{"token":"missing","selection":"all"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("scrape status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	sess := s.Store().Create([]*model.SessionReport{model.NewSessionReport("https://example.com/")})

	rec := doJSON(t, s, http.MethodDelete, "/api/sessions/"+sess.Token, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if _, err := s.Store().Get(sess.Token); err == nil {
		t.Error("session still present after delete")
	}
}

func TestLogs(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	s.Tail().Append("first line")
	s.Tail().Append("second line")

	rec := doJSON(t, s, http.MethodGet, "/api/logs", "")
	var resp struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Lines) != 2 || resp.Lines[1] != "second line" {
		t.Errorf("lines = %v", resp.Lines)
	}
}

func TestLogStream(t *testing.T) {
	t.Parallel()

	tail := applog.NewTail(10)
	tail.Append("buffered")

	cfg := config.NewConfig()
	s := New(cfg, WithTail(tail), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/logs/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	if got := readData(); got != "buffered" {
		t.Errorf("first event = %q, want %q", got, "buffered")
	}

	tail.Append("live")
	if got := readData(); got != "live" {
		t.Errorf("second event = %q, want %q", got, "live")
	}
}

func TestWriteEvent_MultiLine(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	if err := writeEvent(rec, "a\nb"); err != nil {
		t.Fatal(err)
	}
	if got, want := rec.Body.String(), "data: a\ndata: b\n\n"; got != want {
		t.Errorf("writeEvent() = %q, want %q", got, want)
	}
}

func TestResolveExistingDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Fatalf("create symlink: %v", err)
	}

	tests := []struct {
		name    string
		dir     string
		want    string
		wantErr bool
	}{
		{name: "empty", dir: "", want: ""},
		{name: "relative", dir: "session", want: filepath.Join(root, "session")},
		{name: "absolute inside", dir: filepath.Join(root, "a", "b"), want: filepath.Join(root, "a", "b")},
		{name: "parent escape", dir: "../x", wantErr: true},
		{name: "cleaned escape", dir: "a/../../x", wantErr: true},
		{name: "root itself", dir: root, wantErr: true},
		{name: "absolute outside", dir: outside, wantErr: true},
		{name: "symlink out of root", dir: "link/inner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveExistingDir(root, tt.dir)
			if tt.wantErr {
				if !errors.Is(err, errExistingDirOutside) {
					t.Errorf("resolveExistingDir(%q) error = %v, want errExistingDirOutside", tt.dir, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveExistingDir(%q) = %q, %v, want %q", tt.dir, got, err, tt.want)
			}
		})
	}
}
