package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/sitearchive/internal/config"
	applog "github.com/nao1215/sitearchive/internal/log"
	"github.com/nao1215/sitearchive/internal/pipeline"
	"github.com/nao1215/sitearchive/internal/session"
)

// maxRequestBody limits the size of request bodies.
const maxRequestBody = 1 << 20

// heartbeatInterval is how often an idle log stream sends a comment line
// so that proxies keep the connection open.
const heartbeatInterval = 15 * time.Second

// Server is the HTTP front end. It runs discovery for a list of base
// addresses, keeps the result under a session token, and extracts the
// pages a client selects from that session.
type Server struct {
	cfg        *config.Config
	store      *session.Store
	tail       *applog.Tail
	logger     *slog.Logger
	recorder   pipeline.Recorder
	httpClient *http.Client
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base logger. Progress is also copied into the tail.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTail sets the ring buffer served by /api/logs.
func WithTail(tail *applog.Tail) Option {
	return func(s *Server) {
		s.tail = tail
	}
}

// WithStore sets the session store.
func WithStore(store *session.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithRecorder stores every extraction in the history database.
func WithRecorder(recorder pipeline.Recorder) Option {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// WithHTTPClient sets the client used to fetch pages.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.httpClient = client
	}
}

// New creates a Server using cfg for discovery and extraction settings.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = session.NewStore()
	}
	if s.tail == nil {
		s.tail = applog.NewTail(cfg.LogTailSize)
	}
	s.logger = applog.NewSessionLogger(s.logger, s.tail)

	s.registerRoutes()
	return s
}

// Tail returns the log tail served by the server.
func (s *Server) Tail() *applog.Tail {
	return s.tail
}

// Store returns the session store.
func (s *Server) Store() *session.Store {
	return s.store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/discover", s.handleDiscover)
	s.mux.HandleFunc("POST /api/scrape", s.handleScrape)
	s.mux.HandleFunc("GET /api/sessions/{token}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{token}", s.handleDeleteSession)
	s.mux.HandleFunc("GET /api/logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/logs/stream", s.handleLogStream)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(r.PathValue("token"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"lines": s.tail.Lines()})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // the client may have gone away
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errNoURLs is returned when a discover request names no base address.
var errNoURLs = errors.New("no URLs provided")

// errNoLinks is returned when a scrape request selects nothing.
var errNoLinks = errors.New("no links selected")

// isJSON reports whether the request body is JSON.
func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
