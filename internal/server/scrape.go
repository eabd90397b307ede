package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/pipeline"
	"github.com/nao1215/sitearchive/internal/selection"
	"github.com/nao1215/sitearchive/internal/session"
)

type scrapeRequest struct {
	Token       string   `json:"token"`
	Links       []string `json:"links"`
	Selection   string   `json:"selection"`
	ExistingDir string   `json:"existing_dir"`
}

// ScrapeResult is the extraction outcome of one base address.
type ScrapeResult struct {
	BaseURL   string                   `json:"base_url"`
	OutputDir string                   `json:"output_dir,omitempty"`
	Attempted int                      `json:"attempted"`
	Succeeded int                      `json:"succeeded"`
	Failed    []string                 `json:"failed"`
	Results   []model.ExtractionResult `json:"results,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func newScrapeResult(r *model.SessionReport) ScrapeResult {
	res := ScrapeResult{
		BaseURL:   r.BaseURL,
		OutputDir: r.OutputDir,
		Failed:    make([]string, 0),
		Error:     r.ErrorMessage,
	}
	if r.Summary != nil {
		res.Attempted = r.Summary.Attempted
		res.Succeeded = r.Summary.Succeeded
		res.Failed = r.Summary.Failed
		res.Results = r.Summary.Results
	}
	return res
}

// handleScrape handles POST /api/scrape. The client names its session
// token and either a list of links or a selection string over the
// session's links. Links are extracted grouped by the base address that
// discovered them, each group into its own session directory.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req scrapeRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Token = r.Form.Get("token")
		req.Links = r.Form["selected_links"]
		req.Selection = r.Form.Get("selection")
		req.ExistingDir = r.Form.Get("existing_dir")
	}

	sess, err := s.store.Get(req.Token)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	links, err := chooseLinks(sess, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	existingDir, err := resolveExistingDir(s.cfg.OutputDir, req.ExistingDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.logger.Info("Extraction requested", "links", len(links))

	results := make([]ScrapeResult, 0)
	for _, group := range groupByBase(sess, links) {
		report := model.NewSessionReport(group.base.BaseURL)
		report.Discovery = group.base.Discovery

		p, err := s.scrapePipeline(group.base.BaseURL, group.links, existingDir)
		if err != nil {
			report.SetError(err)
		} else if err := p.Execute(r.Context(), report); err != nil && report.Cancelled {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		results = append(results, newScrapeResult(report))
	}

	writeJSON(w, http.StatusOK, map[string][]ScrapeResult{"results": results})
}

func (s *Server) scrapePipeline(baseURL string, links []string, existingDir string) (*pipeline.Pipeline, error) {
	opts := append(pipeline.ConfigOptions(s.cfg, baseURL),
		pipeline.WithPipelineChooser(pipeline.SelectLinks(links)),
		pipeline.WithPipelineExistingDir(existingDir),
		pipeline.WithPipelineSummaryFile(true),
	)
	if s.httpClient != nil {
		opts = append(opts, pipeline.WithPipelineHTTPClient(s.httpClient))
	}
	if s.recorder != nil {
		opts = append(opts, pipeline.WithPipelineRecorder(s.recorder))
	}
	return pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(s.logger)}, opts...)
}

// errExistingDirOutside is returned when a scrape request names an
// existing directory outside the output root.
var errExistingDirOutside = errors.New("existing_dir must be inside the output directory")

// resolveExistingDir maps the existing_dir of a request to a directory
// strictly below root. A relative dir is taken relative to root. Symbolic
// links are resolved before the check, so a link inside root cannot lead
// out of it.
func resolveExistingDir(root, dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", nil
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	if !below(root, dir) || !below(resolveExisting(root), resolveExisting(dir)) {
		return "", errExistingDirOutside
	}
	return dir, nil
}

// below reports whether path lies strictly inside root.
func below(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != "." && filepath.IsLocal(rel)
}

// resolveExisting evaluates symbolic links in the longest existing prefix
// of path and appends the rest unchanged.
func resolveExisting(path string) string {
	rest := ""
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(resolved, rest)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return filepath.Join(path, rest)
		}
		parent := filepath.Dir(path)
		if parent == path {
			return filepath.Join(path, rest)
		}
		rest = filepath.Join(filepath.Base(path), rest)
		path = parent
	}
}

// chooseLinks resolves the request to links of the session. Explicit links
// must all belong to the session.
func chooseLinks(sess *session.Session, req scrapeRequest) ([]string, error) {
	all := sess.Links()

	if len(req.Links) > 0 {
		known := make(map[string]bool, len(all))
		for _, l := range all {
			known[l] = true
		}
		for _, l := range req.Links {
			if !known[l] {
				return nil, fmt.Errorf("link not in session: %s", l)
			}
		}
		return req.Links, nil
	}

	if strings.TrimSpace(req.Selection) != "" {
		links, err := selection.Select(all, req.Selection)
		if err != nil {
			return nil, err
		}
		if len(links) > 0 {
			return links, nil
		}
	}
	return nil, errNoLinks
}

type linkGroup struct {
	base  *model.SessionReport
	links []string
}

// groupByBase assigns every link to the first base address that
// discovered it. Groups keep the order of the session's base addresses and
// links keep the order they were given in.
func groupByBase(sess *session.Session, links []string) []linkGroup {
	owner := make(map[string]int)
	for i, r := range sess.Reports {
		for _, l := range r.Links() {
			if _, ok := owner[l]; !ok {
				owner[l] = i
			}
		}
	}

	byBase := make(map[int][]string)
	for _, l := range links {
		i := owner[l]
		byBase[i] = append(byBase[i], l)
	}

	groups := make([]linkGroup, 0, len(byBase))
	for i, r := range sess.Reports {
		if ls, ok := byBase[i]; ok {
			groups = append(groups, linkGroup{base: r, links: ls})
		}
	}
	return groups
}
