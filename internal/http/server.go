package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"triage-assistant/internal/core"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookie carries the browser's current screening session.
const sessionCookie = "triage_session"

// SummaryFeed streams the IDs of sessions whose summary just became ready.
type SummaryFeed interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Triage    *core.TriageService
	Feed      SummaryFeed
	Templates *template.Template
	Logger    *slog.Logger

	router *mux.Router
}

// NewServer constructs a Server with the embedded HTML templates.  feed may
// be nil, in which case the clinician stream endpoint is not served.
func NewServer(triage *core.TriageService, feed SummaryFeed, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"date": func(t time.Time) string {
			return t.Local().Format("02/01/2006 15:04")
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		Triage:    triage,
		Feed:      feed,
		Templates: tmpl,
		Logger:    logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Questionnaire pages
	r.HandleFunc("/sessions", s.handleNewSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.handleSessionPage).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/answers", s.handleAnswer).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/analysis", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/clinician", s.handleClinicianPage).Methods(http.MethodGet)

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSessionAPI).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSessionAPI).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/answers", s.handleAnswerAPI).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/analysis", s.handleAnalyzeAPI).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/reset", s.handleResetAPI).Methods(http.MethodPost)
	api.HandleFunc("/clinician/sessions", s.handleClinicianSessionsAPI).Methods(http.MethodGet)
	if s.Feed != nil {
		api.HandleFunc("/clinician/stream", s.handleClinicianSSE).Methods(http.MethodGet)
	}
	return r
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets the SSE handler stream through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.InfoContext(r.Context(), "http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
