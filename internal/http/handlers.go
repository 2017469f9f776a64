package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

// sessionPage is the data rendered by questionnaire.html.
type sessionPage struct {
	View           pkg.SessionResponse
	Disclaimer     string
	Intro          string
	Completed      string
	Error          string
	ModelAvailable bool
}

// handleIndex resumes the browser's session or starts a new one.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := s.Triage.Get(ctx, c.Value); err == nil {
			http.Redirect(w, r, "/sessions/"+c.Value, http.StatusSeeOther)
			return
		}
	}
	s.handleNewSession(w, r)
}

// handleNewSession starts a fresh screening and redirects to it.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Start(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
}

// handleSessionPage renders the step the session is at.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Triage.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	s.renderSession(w, r, sess, "", http.StatusOK)
}

// handleAnswer records the selected option and moves to the next step.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	sess, err := s.Triage.Submit(r.Context(), id, r.FormValue("choice"))
	if err != nil {
		s.renderFailure(w, r, sess, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
}

// handleAnalyze requests the analysis.  A model failure is stored on the
// session, so the redirected page shows it next to the retry button.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.Triage.Analyze(r.Context(), id)
	if err != nil && !errors.Is(err, core.ErrModelUnavailable) {
		s.renderFailure(w, r, sess, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
}

// handleReset starts the questionnaire over on the same session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.Triage.Reset(r.Context(), id)
	if err != nil {
		s.renderFailure(w, r, sess, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+id, http.StatusSeeOther)
}

// handleClinicianPage lists finished screenings for review.
func (s *Server) handleClinicianPage(w http.ResponseWriter, r *http.Request) {
	previews, err := s.Triage.ListCompleted(r.Context(), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := struct {
		Disclaimer string
		Sessions   []pkg.SessionPreview
		Live       bool
	}{core.DisclaimerMessage, previews, s.Feed != nil}
	if err := s.Templates.ExecuteTemplate(w, "clinician.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// renderFailure shows the session again with the error, or a plain error
// when there is no session to show.
func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, sess *pkg.Session, err error) {
	if sess == nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	msg := "Não foi possível processar a ação."
	switch {
	case errors.Is(err, core.ErrInvalidSelection):
		msg = "Selecione uma das opções apresentadas."
	case errors.Is(err, core.ErrIllegalTransition):
		msg = "Esta ação não está disponível nesta etapa."
	}
	s.renderSession(w, r, sess, msg, statusFor(err))
}

func (s *Server) renderSession(w http.ResponseWriter, r *http.Request, sess *pkg.Session, errMsg string, status int) {
	view := core.View(sess)
	if errMsg == "" {
		errMsg = view.Error
	}
	data := sessionPage{
		View:           view,
		Disclaimer:     core.DisclaimerMessage,
		Intro:          core.IntroMessage,
		Completed:      core.CompletedMessage,
		Error:          errMsg,
		ModelAvailable: true,
	}
	if view.Phase == pkg.PhaseAwaitingAnalysis {
		data.ModelAvailable = s.Triage.ModelAvailable(r.Context())
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.Templates.ExecuteTemplate(w, "questionnaire.html", data); err != nil {
		s.Logger.ErrorContext(r.Context(), "rendering questionnaire", "error", err)
	}
}
