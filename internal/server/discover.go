package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/pipeline"
	"github.com/nao1215/sitearchive/internal/session"
)

// stringList accepts either a JSON array of strings or one string with
// comma or newline separated entries.
type stringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*l = config.ParseTargets(s)
	return nil
}

type discoverRequest struct {
	URLs stringList `json:"urls"`
}

// BaseResult is the discovery outcome of one base address.
type BaseResult struct {
	BaseURL   string               `json:"base_url"`
	Links     []string             `json:"links"`
	Stats     model.DiscoveryStats `json:"stats"`
	Truncated bool                 `json:"truncated,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// SessionResponse describes a stored discovery session.
type SessionResponse struct {
	Token     string       `json:"token"`
	CreatedAt time.Time    `json:"created_at"`
	Results   []BaseResult `json:"results"`
}

func newSessionResponse(sess *session.Session) SessionResponse {
	resp := SessionResponse{
		Token:     sess.Token,
		CreatedAt: sess.CreatedAt,
		Results:   make([]BaseResult, 0, len(sess.Reports)),
	}
	for _, r := range sess.Reports {
		res := BaseResult{
			BaseURL: r.BaseURL,
			Links:   make([]string, 0),
			Error:   r.ErrorMessage,
		}
		if r.Discovery != nil {
			res.Links = r.Discovery.Links
			res.Stats = r.Discovery.Stats
			res.Truncated = r.Discovery.Truncated
		}
		resp.Results = append(resp.Results, res)
	}
	return resp
}

// handleDiscover handles POST /api/discover. Base addresses come from the
// JSON field "urls" or the form field "urls". Every base address is
// discovered; invalid ones get an error entry and do not stop the others.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var targets []string
	if isJSON(r) {
		var req discoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
		targets = config.ParseTargets(strings.Join(req.URLs, "\n"))
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		targets = config.ParseTargets(strings.Join(r.Form["urls"], "\n"))
	}
	if len(targets) == 0 {
		writeError(w, http.StatusBadRequest, errNoURLs)
		return
	}

	s.logger.Info("Discovery requested", "targets", len(targets))

	bp := pipeline.NewBatchProcessor(s.discoverFactory,
		pipeline.WithConcurrency(s.cfg.Concurrency),
		pipeline.WithBatchLogger(s.logger),
	)
	reports, err := bp.ProcessBatch(r.Context(), targets)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	sess := s.store.Create(reports)
	s.store.Prune()
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) discoverFactory(baseURL string) (*pipeline.Pipeline, error) {
	opts := append(pipeline.ConfigOptions(s.cfg, baseURL), pipeline.WithPipelineDiscoverOnly(true))
	if s.httpClient != nil {
		opts = append(opts, pipeline.WithPipelineHTTPClient(s.httpClient))
	}
	return pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(s.logger)}, opts...)
}
