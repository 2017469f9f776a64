package terminal

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"triage-assistant/pkg"
)

// Prompter asks the user for input.
type Prompter interface {
	Choose(ctx context.Context, q pkg.Question, index, total int) (string, error)
	Confirm(ctx context.Context, title string) (bool, error)
}

// HuhPrompter renders interactive forms on the terminal.
type HuhPrompter struct{}

func (HuhPrompter) Choose(ctx context.Context, q pkg.Question, index, total int) (string, error) {
	choice := q.Options[0]
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(q.Prompt).
				Description(fmt.Sprintf("Pergunta %d de %d", index+1, total)).
				Options(huh.NewOptions(q.Options...)...).
				Value(&choice),
		),
	).WithTheme(huhTheme()).WithShowHelp(false)
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return choice, nil
}

func (HuhPrompter) Confirm(ctx context.Context, title string) (bool, error) {
	ok := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Sim").
				Negative("Não").
				Value(&ok),
		),
	).WithTheme(huhTheme()).WithShowHelp(false)
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return ok, nil
}
