package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-assistant/pkg"
)

var t0 = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func answerAll(t *testing.T, s *pkg.Session) {
	t.Helper()
	for s.Current < QuestionCount() {
		require.NoError(t, Submit(s, "", t0))
	}
}

func TestQuestionnaire_Shape(t *testing.T) {
	qs := Questions()
	require.Len(t, qs, 10)
	seen := map[string]bool{}
	for _, q := range qs {
		assert.NotEmpty(t, q.Options, q.ID)
		assert.NotEmpty(t, q.Topic, q.ID)
		assert.False(t, seen[q.Prompt], "duplicate prompt %s", q.ID)
		seen[q.Prompt] = true
	}
}

func TestQuestions_ReturnsCopy(t *testing.T) {
	qs := Questions()
	qs[0].Options[0] = "mutated"
	qs[0].Prompt = "mutated"
	assert.NotEqual(t, "mutated", Questions()[0].Options[0])
	assert.NotEqual(t, "mutated", Questions()[0].Prompt)
}

func TestSubmit_AdvancesOneStepPerValidChoice(t *testing.T) {
	s := NewSession("s1", t0)
	qs := Questions()
	for i, q := range qs {
		require.Equal(t, pkg.PhaseAsking, PhaseOf(s))
		require.Equal(t, i, s.Current)

		choice := q.Options[len(q.Options)-1]
		require.NoError(t, Submit(s, choice, t0))

		assert.Equal(t, i+1, s.Current)
		assert.Len(t, s.Answers, i+1)
		assert.Equal(t, choice, s.Answers[q.Prompt])
	}
	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(s))
}

func TestSubmit_EmptyChoiceDefaultsToFirstOption(t *testing.T) {
	s := NewSession("s1", t0)
	require.NoError(t, Submit(s, "", t0))

	q := Questions()[0]
	assert.Equal(t, q.Options[0], s.Answers[q.Prompt])
	assert.Equal(t, 1, s.Current)
}

func TestSubmit_InvalidChoiceLeavesStateUnchanged(t *testing.T) {
	s := NewSession("s1", t0)
	require.NoError(t, Submit(s, "", t0))

	err := Submit(s, "Talvez", t0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, 1, s.Current)
	assert.Len(t, s.Answers, 1)
}

func TestSubmit_OptionOfAnotherQuestionIsRejected(t *testing.T) {
	s := NewSession("s1", t0)
	// "Sim, claramente" belongs to Q4 only.
	err := Submit(s, "Sim, claramente", t0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, 0, s.Current)
}

func TestSubmit_OutsideAskingIsIllegal(t *testing.T) {
	s := NewSession("s1", t0)
	answerAll(t, s)

	err := Submit(s, "", t0)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, QuestionCount(), s.Current)
	assert.Len(t, s.Answers, QuestionCount())

	require.NoError(t, CompleteAnalysis(s, "resumo", t0))
	assert.ErrorIs(t, Submit(s, "", t0), ErrIllegalTransition)
}

func TestCompleteAnalysis_RequiresAllAnswers(t *testing.T) {
	s := NewSession("s1", t0)
	require.NoError(t, Submit(s, "", t0))

	err := CompleteAnalysis(s, "resumo", t0)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.False(t, s.Complete)
	assert.Empty(t, s.Analysis)
}

func TestCompleteAnalysis_IsWriteOnce(t *testing.T) {
	s := NewSession("s1", t0)
	answerAll(t, s)
	require.NoError(t, CompleteAnalysis(s, "first", t0))

	assert.ErrorIs(t, CompleteAnalysis(s, "second", t0), ErrIllegalTransition)
	assert.Equal(t, "first", s.Analysis)
	assert.Equal(t, pkg.PhaseShowingResult, PhaseOf(s))
	require.NotNil(t, s.CompletedAt)
}

func TestFailAnalysis_KeepsPhaseAndAnswers(t *testing.T) {
	s := NewSession("s1", t0)
	answerAll(t, s)
	FailAnalysis(s, ModelUnavailableMessage, t0)

	assert.Equal(t, pkg.PhaseAwaitingAnalysis, PhaseOf(s))
	assert.Len(t, s.Answers, QuestionCount())
	assert.Equal(t, ModelUnavailableMessage, s.LastError)
	assert.NoError(t, CheckAnalyzable(s))
}

func TestReset_FromResultReturnsToStart(t *testing.T) {
	s := NewSession("s1", t0)
	answerAll(t, s)
	require.NoError(t, CompleteAnalysis(s, "resumo", t0))

	require.NoError(t, Reset(s, t0))
	assert.Equal(t, pkg.PhaseAsking, PhaseOf(s))
	assert.Equal(t, 0, s.Current)
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Analysis)
	assert.False(t, s.Complete)
	assert.Nil(t, s.CompletedAt)

	// Repeated reset leaves the same state.
	require.NoError(t, Reset(s, t0))
	assert.Equal(t, 0, s.Current)
	assert.Empty(t, s.Answers)
}

func TestReset_MidQuestionnaireIsIllegal(t *testing.T) {
	s := NewSession("s1", t0)
	require.NoError(t, Submit(s, "", t0))

	assert.ErrorIs(t, Reset(s, t0), ErrIllegalTransition)
	assert.Equal(t, 1, s.Current)

	answerAll(t, s)
	assert.ErrorIs(t, Reset(s, t0), ErrIllegalTransition)
	assert.Len(t, s.Answers, QuestionCount())
}
