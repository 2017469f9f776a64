package core

import (
	"fmt"
	"time"

	"triage-assistant/pkg"
)

// The functions in this file are the questionnaire state machine.  They only
// mutate the session passed in and never perform I/O, so handlers can load a
// session, apply one action and persist the result.

// NewSession returns a session in the initial ASKING(0) state.
func NewSession(id string, now time.Time) *pkg.Session {
	return &pkg.Session{
		ID:        id,
		Answers:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PhaseOf derives the phase of a session.
func PhaseOf(s *pkg.Session) pkg.Phase {
	switch {
	case s.Complete:
		return pkg.PhaseShowingResult
	case s.Current >= len(questionnaire):
		return pkg.PhaseAwaitingAnalysis
	default:
		return pkg.PhaseAsking
	}
}

// CurrentQuestion returns the question awaiting an answer, or false when the
// session is not asking.
func CurrentQuestion(s *pkg.Session) (pkg.Question, bool) {
	if PhaseOf(s) != pkg.PhaseAsking {
		return pkg.Question{}, false
	}
	return questionnaire[s.Current], true
}

// Submit records choice for the current question and advances by one.  An
// empty choice selects the first option so an unanswered question never
// blocks the flow.  A choice outside the declared options is rejected and the
// session is left untouched.
func Submit(s *pkg.Session, choice string, now time.Time) error {
	q, ok := CurrentQuestion(s)
	if !ok {
		return fmt.Errorf("submit in phase %s: %w", PhaseOf(s), ErrIllegalTransition)
	}
	if choice == "" {
		choice = q.Options[0]
	}
	if !hasOption(q, choice) {
		return fmt.Errorf("%s: %q: %w", q.ID, choice, ErrInvalidSelection)
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	s.Answers[q.Prompt] = choice
	s.Current++
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// CheckAnalyzable reports whether an analysis may be requested.
func CheckAnalyzable(s *pkg.Session) error {
	if p := PhaseOf(s); p != pkg.PhaseAwaitingAnalysis {
		return fmt.Errorf("analyze in phase %s: %w", p, ErrIllegalTransition)
	}
	return nil
}

// CompleteAnalysis stores the model's text and moves to SHOWING_RESULT.  The
// analysis is write-once per run.
func CompleteAnalysis(s *pkg.Session, analysis string, now time.Time) error {
	if err := CheckAnalyzable(s); err != nil {
		return err
	}
	s.Analysis = analysis
	s.Complete = true
	s.LastError = ""
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// FailAnalysis records a surfaced failure without changing the phase.
func FailAnalysis(s *pkg.Session, msg string, now time.Time) {
	s.LastError = msg
	s.UpdatedAt = now
}

// Reset clears answers and analysis and returns to ASKING(0).  It is legal
// from SHOWING_RESULT; on a session already at ASKING(0) with no answers it is
// a no-op, so repeated resets leave the same state.
func Reset(s *pkg.Session, now time.Time) error {
	if PhaseOf(s) != pkg.PhaseShowingResult {
		if s.Current == 0 && len(s.Answers) == 0 {
			return nil
		}
		return fmt.Errorf("reset in phase %s: %w", PhaseOf(s), ErrIllegalTransition)
	}
	s.Current = 0
	s.Answers = map[string]string{}
	s.Complete = false
	s.Analysis = ""
	s.LastError = ""
	s.CompletedAt = nil
	s.UpdatedAt = now
	return nil
}

func hasOption(q pkg.Question, choice string) bool {
	for _, o := range q.Options {
		if o == choice {
			return true
		}
	}
	return false
}
