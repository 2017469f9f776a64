package core

import (
	"strings"

	"triage-assistant/pkg"
)

// FormatAnswers renders one block per question, in questionnaire order, with
// the literal question text and the recorded answer.
func FormatAnswers(questions []pkg.Question, answers map[string]string) string {
	var b strings.Builder
	for _, q := range questions {
		answer, ok := answers[q.Prompt]
		if !ok {
			answer = UnansweredPlaceholder
		}
		b.WriteString("**")
		b.WriteString(q.Prompt)
		b.WriteString("**\n* Resposta: ")
		b.WriteString(answer)
		b.WriteString("\n\n")
	}
	return b.String()
}

// BuildAnalysisPrompt formats the session's answers into the template.
func BuildAnalysisPrompt(t *Template, s *pkg.Session) string {
	return t.Render(FormatAnswers(questionnaire, s.Answers))
}

// PreviewRunes bounds the analysis excerpt in clinician listings.
const PreviewRunes = 240

// Excerpt cuts text to at most n runes, marking the cut with an ellipsis.
func Excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}
