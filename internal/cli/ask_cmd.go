package cli

import (
	"github.com/spf13/cobra"

	"triage-assistant/internal/app"
	"triage-assistant/internal/terminal"
)

func newAskCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ask",
		Short: "Run the screening questionnaire in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !terminal.IsInteractive() {
				return terminal.ErrNotInteractive
			}
			a, err := app.Open(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			r := &terminal.Runner{
				Triage: a.Triage,
				Prompt: terminal.HuhPrompter{},
				Out:    cmd.OutOrStdout(),
			}
			return r.Run(cmd.Context())
		},
	}
}
