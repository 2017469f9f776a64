package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"triage-assistant/internal/llm"
	"triage-assistant/pkg"
)

// SessionStore persists sessions between user actions.  GetSession returns
// ErrSessionNotFound for unknown IDs.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*pkg.Session, error)
	SaveSession(ctx context.Context, s *pkg.Session) error
	ListCompleted(ctx context.Context, limit int) ([]pkg.SessionPreview, error)
}

// Notifier announces that a triage summary is ready for clinician review.
type Notifier interface {
	Notify(ctx context.Context, sessionID string) error
}

// DefaultAnalysisTimeout bounds the wait for the language model.
const DefaultAnalysisTimeout = 2 * time.Minute

// Options configures a TriageService.  Zero values select defaults.
type Options struct {
	Template *Template
	Timeout  time.Duration
	Notifier Notifier
	Logger   *slog.Logger
}

// TriageService runs the questionnaire flow for many independent sessions.
// Actions on one session are serialised; different sessions never share
// mutable state.
type TriageService struct {
	store    SessionStore
	llm      llm.Client
	template *Template
	timeout  time.Duration
	notifier Notifier
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
	locks [lockShards]sync.Mutex
}

// lockShards bounds the session locks; IDs hashing to the same shard
// simply wait on each other.
const lockShards = 64

// NewTriageService constructs a TriageService.
func NewTriageService(store SessionStore, client llm.Client, opts Options) *TriageService {
	if opts.Template == nil {
		opts.Template = DefaultTemplate()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAnalysisTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &TriageService{
		store:    store,
		llm:      client,
		template: opts.Template,
		timeout:  opts.Timeout,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// Start creates and persists a new session at ASKING(0).
func (s *TriageService) Start(ctx context.Context) (*pkg.Session, error) {
	sess := NewSession(s.newID(), s.now())
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving new session: %w", err)
	}
	s.logger.InfoContext(ctx, "session_started", "session_id", sess.ID)
	return sess, nil
}

// Get loads a session without changing it.
func (s *TriageService) Get(ctx context.Context, id string) (*pkg.Session, error) {
	return s.store.GetSession(ctx, id)
}

// Submit records a choice for the session's current question.
func (s *TriageService) Submit(ctx context.Context, id, choice string) (*pkg.Session, error) {
	return s.apply(ctx, "submit", id, func(sess *pkg.Session) error {
		return Submit(sess, choice, s.now())
	})
}

// Reset clears a finished session back to ASKING(0).
func (s *TriageService) Reset(ctx context.Context, id string) (*pkg.Session, error) {
	return s.apply(ctx, "reset", id, func(sess *pkg.Session) error {
		return Reset(sess, s.now())
	})
}

// Analyze formats the answers, calls the language model within the
// configured timeout and stores the result.  Any model failure leaves the
// session in AWAITING_ANALYSIS with its answers intact and is returned
// wrapped in ErrModelUnavailable.
func (s *TriageService) Analyze(ctx context.Context, id string) (*pkg.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	start := time.Now()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckAnalyzable(sess); err != nil {
		return sess, err
	}

	prompt := BuildAnalysisPrompt(s.template, sess)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	text, callErr := s.llm.Summarize(callCtx, prompt)
	cancel()

	if callErr != nil {
		FailAnalysis(sess, ModelUnavailableMessage, s.now())
		if err := s.store.SaveSession(ctx, sess); err != nil {
			s.logger.ErrorContext(ctx, "saving failed analysis state", "session_id", id, "error", err)
		}
		s.observe(ctx, "analyze", id, start, callErr)
		return sess, fmt.Errorf("%w: %v", ErrModelUnavailable, callErr)
	}

	// Persist a completed copy so a failed save leaves nothing marked complete.
	done := *sess
	if err := CompleteAnalysis(&done, text, s.now()); err != nil {
		return sess, err
	}
	if err := s.store.SaveSession(ctx, &done); err != nil {
		s.observe(ctx, "analyze", id, start, err)
		return sess, fmt.Errorf("saving analysis: %w", err)
	}
	s.observe(ctx, "analyze", id, start, nil)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "summary notification failed", "session_id", id, "error", err)
		}
	}
	return &done, nil
}

// ListCompleted returns the most recent finished screenings for clinicians.
func (s *TriageService) ListCompleted(ctx context.Context, limit int) ([]pkg.SessionPreview, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListCompleted(ctx, limit)
}

// ModelAvailable reports whether the language model answers.
func (s *TriageService) ModelAvailable(ctx context.Context) bool {
	return s.llm.Available(ctx)
}

// View builds the API representation of a session.
func View(sess *pkg.Session) pkg.SessionResponse {
	resp := pkg.SessionResponse{
		SessionID: sess.ID,
		Phase:     PhaseOf(sess),
		Index:     sess.Current,
		Total:     len(questionnaire),
		Answered:  len(sess.Answers),
		Analysis:  sess.Analysis,
		Error:     sess.LastError,
	}
	if q, ok := CurrentQuestion(sess); ok {
		resp.Question = &q
	}
	return resp
}

func (s *TriageService) apply(ctx context.Context, name, id string, action func(*pkg.Session) error) (*pkg.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	start := time.Now()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := action(sess); err != nil {
		s.observe(ctx, name, id, start, err)
		return sess, err
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		s.observe(ctx, name, id, start, err)
		return nil, fmt.Errorf("saving session: %w", err)
	}
	s.observe(ctx, name, id, start, nil)
	return sess, nil
}

func (s *TriageService) lock(id string) func() {
	mu := &s.locks[lockShard(id)]
	mu.Lock()
	return mu.Unlock
}

func lockShard(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32() % lockShards
}

func (s *TriageService) observe(ctx context.Context, name, id string, start time.Time, err error) {
	attrs := []any{
		"use_case", name,
		"session_id", id,
		"duration_ms", time.Since(start).Milliseconds(),
		"success", err == nil,
	}
	if err != nil {
		s.logger.WarnContext(ctx, "triage_use_case", append(attrs, "error", err.Error())...)
		return
	}
	s.logger.InfoContext(ctx, "triage_use_case", attrs...)
}
