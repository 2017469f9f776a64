package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// writeSessionError reports err and, when the session is known, its current
// view so clients can resync.
func writeSessionError(w http.ResponseWriter, sess *pkg.Session, err error) {
	if sess == nil {
		writeError(w, err)
		return
	}
	view := core.View(sess)
	writeJSON(w, statusFor(err), struct {
		Error   string              `json:"error"`
		Session pkg.SessionResponse `json:"session"`
	}{err.Error(), view})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"model_available": s.Triage.ModelAvailable(r.Context()),
	})
}

func (s *Server) handleCreateSessionAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.View(sess))
}

func (s *Server) handleGetSessionAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, core.View(sess))
}

func (s *Server) handleAnswerAPI(w http.ResponseWriter, r *http.Request) {
	var req pkg.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	sess, err := s.Triage.Submit(r.Context(), mux.Vars(r)["id"], req.Choice)
	if err != nil {
		writeSessionError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, core.View(sess))
}

func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Analyze(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, core.View(sess))
}

func (s *Server) handleResetAPI(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, core.View(sess))
}

// handleClinicianSessionsAPI returns finished screenings as JSON.
func (s *Server) handleClinicianSessionsAPI(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
	}
	previews, err := s.Triage.ListCompleted(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if previews == nil {
		previews = []pkg.SessionPreview{}
	}
	writeJSON(w, http.StatusOK, previews)
}

// handleClinicianSSE streams a summary_ready event per finished screening
// until the client goes away.
func (s *Server) handleClinicianSSE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ids, err := s.Feed.Listen(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for id := range ids {
		sess, err := s.Triage.Get(ctx, id)
		if err != nil {
			s.Logger.WarnContext(ctx, "loading announced session", "session_id", id, "error", err)
			continue
		}
		if !sess.Complete || sess.CompletedAt == nil {
			continue
		}
		payload, err := json.Marshal(pkg.SessionPreview{
			SessionID:   sess.ID,
			Excerpt:     core.Excerpt(sess.Analysis, core.PreviewRunes),
			CompletedAt: *sess.CompletedAt,
		})
		if err != nil {
			s.Logger.ErrorContext(ctx, "encoding summary event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: summary_ready\ndata: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
