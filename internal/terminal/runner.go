package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"triage-assistant/internal/core"
	"triage-assistant/pkg"
)

// ErrNotInteractive is returned when stdin is not a terminal.
var ErrNotInteractive = errors.New("an interactive terminal is required")

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Runner drives one screening in the terminal over the same state machine
// as the web flow.
type Runner struct {
	Triage *core.TriageService
	Prompt Prompter
	Out    io.Writer
}

// Run asks every question, requests the analysis and offers a restart.
func (r *Runner) Run(ctx context.Context) error {
	fmt.Fprintln(r.Out, styleHeader.Render("Assistente de Triagem em Saúde Mental"))
	fmt.Fprintln(r.Out, styleWarning.Render(core.DisclaimerMessage))
	fmt.Fprintln(r.Out, styleDim.Render(core.IntroMessage))
	fmt.Fprintln(r.Out)

	sess, err := r.Triage.Start(ctx)
	if err != nil {
		return err
	}
	for {
		if sess, err = r.ask(ctx, sess); err != nil {
			return err
		}
		if sess, err = r.analyze(ctx, sess); err != nil || sess == nil {
			return err
		}
		fmt.Fprintln(r.Out, styleHeader.Render("Análise Preliminar"))
		fmt.Fprintln(r.Out, styleResult.Render(sess.Analysis))

		again, err := r.Prompt.Confirm(ctx, "Refazer questionário?")
		if err != nil || !again {
			return err
		}
		if sess, err = r.Triage.Reset(ctx, sess.ID); err != nil {
			return err
		}
	}
}

func (r *Runner) ask(ctx context.Context, sess *pkg.Session) (*pkg.Session, error) {
	total := core.QuestionCount()
	for {
		q, ok := core.CurrentQuestion(sess)
		if !ok {
			return sess, nil
		}
		choice, err := r.Prompt.Choose(ctx, q, sess.Current, total)
		if err != nil {
			return nil, err
		}
		next, err := r.Triage.Submit(ctx, sess.ID, choice)
		if errors.Is(err, core.ErrInvalidSelection) {
			fmt.Fprintln(r.Out, styleError.Render("Selecione uma das opções apresentadas."))
			continue
		}
		if err != nil {
			return nil, err
		}
		sess = next
	}
}

// analyze returns nil when the user gives up after a model failure.
func (r *Runner) analyze(ctx context.Context, sess *pkg.Session) (*pkg.Session, error) {
	fmt.Fprintln(r.Out, core.CompletedMessage)
	for {
		if !r.Triage.ModelAvailable(ctx) {
			fmt.Fprintln(r.Out, styleError.Render("Não foi possível conectar ao modelo de IA."))
		}
		fmt.Fprintln(r.Out, styleDim.Render("Analisando suas respostas..."))
		done, err := r.Triage.Analyze(ctx, sess.ID)
		if err == nil {
			return done, nil
		}
		if !errors.Is(err, core.ErrModelUnavailable) {
			return nil, err
		}
		fmt.Fprintln(r.Out, styleError.Render(core.ModelUnavailableMessage))
		retry, perr := r.Prompt.Confirm(ctx, "Tentar novamente?")
		if perr != nil {
			return nil, perr
		}
		if !retry {
			return nil, nil
		}
	}
}
