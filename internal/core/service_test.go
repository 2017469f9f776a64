package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-assistant/pkg"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]pkg.Session
	saveErr  error
}

func newFakeStore() *fakeStore { return &fakeStore{sessions: map[string]pkg.Session{}} }

func (f *fakeStore) GetSession(_ context.Context, id string) (*pkg.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	answers := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	s.Answers = answers
	return &s, nil
}

func (f *fakeStore) SaveSession(_ context.Context, s *pkg.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *s
	cp.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		cp.Answers[k] = v
	}
	f.sessions[s.ID] = cp
	return nil
}

func (f *fakeStore) ListCompleted(_ context.Context, limit int) ([]pkg.SessionPreview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []pkg.SessionPreview
	for _, s := range f.sessions {
		if s.Complete {
			out = append(out, pkg.SessionPreview{SessionID: s.ID, Excerpt: s.Analysis, CompletedAt: *s.CompletedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeLLM) Summarize(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply, err, delay := f.reply, f.err, f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeLLM) Available(context.Context) bool { return f.err == nil }

type countingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *countingNotifier) Notify(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return nil
}

func startAnswered(t *testing.T, svc *TriageService) *pkg.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < QuestionCount(); i++ {
		sess, err = svc.Submit(ctx, sess.ID, "")
		require.NoError(t, err)
	}
	return sess
}

func TestTriageService_FullRun(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "**Resumo de Triagem para Análise Profissional**"}
	notifier := &countingNotifier{}
	svc := NewTriageService(store, model, Options{Notifier: notifier})
	ctx := context.Background()

	sess := startAnswered(t, svc)
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(sess))

	sess, err := svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.PhaseShowingResult, PhaseOf(sess))
	assert.Equal(t, model.reply, sess.Analysis)

	require.Len(t, model.prompts, 1)
	for _, q := range Questions() {
		assert.Contains(t, model.prompts[0], q.Prompt)
	}
	assert.Equal(t, []string{sess.ID}, notifier.ids)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Complete)

	previews, err := svc.ListCompleted(ctx, 0)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, sess.ID, previews[0].SessionID)

	sess, err = svc.Reset(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.PhaseAsking, PhaseOf(sess))
	assert.Empty(t, sess.Answers)
	assert.Empty(t, sess.Analysis)
}

func TestTriageService_AnalyzeFailureKeepsAnswersAndAllowsRetry(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{err: errors.New("connection refused")}
	svc := NewTriageService(store, model, Options{})
	ctx := context.Background()
	sess := startAnswered(t, svc)

	got, err := svc.Analyze(ctx, sess.ID)
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(got))

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(stored))
	assert.Len(t, stored.Answers, QuestionCount())
	assert.False(t, stored.Complete)
	assert.Empty(t, stored.Analysis)
	assert.Equal(t, ModelUnavailableMessage, stored.LastError)

	model.mu.Lock()
	model.err, model.reply = nil, "resumo"
	model.mu.Unlock()

	got, err = svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "resumo", got.Analysis)
	assert.Empty(t, got.LastError)
}

func TestTriageService_AnalyzeTimeoutIsRecoverable(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "late", delay: time.Second}
	svc := NewTriageService(store, model, Options{Timeout: 20 * time.Millisecond})
	sess := startAnswered(t, svc)

	_, err := svc.Analyze(context.Background(), sess.ID)
	require.ErrorIs(t, err, ErrModelUnavailable)

	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(stored))
}

func TestTriageService_SaveFailureDoesNotMarkComplete(t *testing.T) {
	store := newFakeStore()
	svc := NewTriageService(store, &fakeLLM{reply: "resumo"}, Options{})
	sess := startAnswered(t, svc)

	store.saveErr = errors.New("disk full")
	got, err := svc.Analyze(context.Background(), sess.ID)
	require.Error(t, err)
	assert.False(t, got.Complete)

	store.saveErr = nil
	stored, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, stored.Complete)
}

func TestTriageService_AnalyzeBeforeFinishingIsIllegal(t *testing.T) {
	model := &fakeLLM{reply: "x"}
	svc := NewTriageService(newFakeStore(), model, Options{})
	sess, err := svc.Start(context.Background())
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Empty(t, model.prompts)
}

func TestTriageService_InvalidChoiceIsNotPersisted(t *testing.T) {
	svc := NewTriageService(newFakeStore(), &fakeLLM{}, Options{})
	ctx := context.Background()
	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidSelection)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Current)
	assert.Empty(t, stored.Answers)
}

func TestTriageService_UnknownSession(t *testing.T) {
	svc := NewTriageService(newFakeStore(), &fakeLLM{}, Options{})
	_, err := svc.Submit(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTriageService_UnknownSessionsReuseLockShards(t *testing.T) {
	svc := NewTriageService(newFakeStore(), &fakeLLM{}, Options{})
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("missing-%d", i)
		assert.Less(t, lockShard(id), uint32(lockShards))
		_, err := svc.Submit(ctx, id, "")
		require.ErrorIs(t, err, ErrSessionNotFound)
	}
	assert.Equal(t, lockShard("missing-7"), lockShard("missing-7"))

	// every shard is released after a not-found action
	for i := range svc.locks {
		require.True(t, svc.locks[i].TryLock())
		svc.locks[i].Unlock()
	}
}

func TestTriageService_ConcurrentSubmitsAdvanceOncePerAction(t *testing.T) {
	svc := NewTriageService(newFakeStore(), &fakeLLM{}, Options{})
	ctx := context.Background()
	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Submit(ctx, sess.ID, "")
		}()
	}
	wg.Wait()

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Current)
	assert.Len(t, stored.Answers, 5)
}

func TestView_ReportsCurrentQuestion(t *testing.T) {
	s := NewSession("s1", t0)
	v := View(s)
	require.NotNil(t, v.Question)
	assert.Equal(t, "Q1", v.Question.ID)
	assert.Equal(t, pkg.PhaseAsking, v.Phase)
	assert.Equal(t, 10, v.Total)

	answerAll(t, s)
	v = View(s)
	assert.Nil(t, v.Question)
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, v.Phase)
	assert.True(t, strings.HasPrefix(string(v.Phase), "awaiting"))
}
