package core

// prompts.go holds the Portuguese copy shown to respondents and the analysis
// template.  The template is a versioned asset: it can be replaced from disk
// without touching the state machine.

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// AnswersPlaceholder marks where the formatted answers go in the template.
	AnswersPlaceholder = "{RESPOSTAS_DO_USUARIO}"

	// UnansweredPlaceholder is written for a question that has no recorded
	// answer.  The submit contract makes this unreachable for a finished run.
	UnansweredPlaceholder = "Não respondida"

	// DisclaimerMessage is shown on every page.
	DisclaimerMessage = "⚠️ Atenção: Esta ferramenta NÃO substitui um diagnóstico profissional. É apenas uma demonstração tecnológica."

	// IntroMessage is shown while the questionnaire is being answered.
	IntroMessage = "Este é um questionário de triagem acadêmico. Por favor, responda às 10 perguntas a seguir com base em como você se sentiu nas últimas duas semanas."

	// CompletedMessage is shown once every question has an answer.
	CompletedMessage = "Obrigado por suas respostas. Suas respostas foram registradas. Clique abaixo para gerar a análise."

	// ModelUnavailableMessage is surfaced when the analysis could not be produced.
	ModelUnavailableMessage = "O modelo de IA não está disponível para análise. Suas respostas foram mantidas; tente novamente."
)

//go:embed analysis_prompt.tmpl
var defaultTemplate string

// ErrTemplatePlaceholder is returned when a template does not contain the
// answers placeholder.
var ErrTemplatePlaceholder = errors.New("analysis template is missing " + AnswersPlaceholder)

// Template is the analysis prompt asset: rubric, tie-break rule and the
// mandated output structure around a single answers placeholder.
type Template struct {
	text string
}

// DefaultTemplate returns the embedded analysis template.
func DefaultTemplate() *Template { return &Template{text: defaultTemplate} }

// NewTemplate validates text and wraps it as a Template.
func NewTemplate(text string) (*Template, error) {
	if !strings.Contains(text, AnswersPlaceholder) {
		return nil, ErrTemplatePlaceholder
	}
	return &Template{text: text}, nil
}

// LoadTemplate reads a template from path.  An empty path yields the
// embedded default.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis template: %w", err)
	}
	return NewTemplate(string(data))
}

// Render substitutes the formatted answers into the template.
func (t *Template) Render(answers string) string {
	return strings.Replace(t.text, AnswersPlaceholder, answers, 1)
}

// Text returns the raw template text.
func (t *Template) Text() string { return t.text }
