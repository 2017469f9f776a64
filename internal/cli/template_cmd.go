package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage-assistant/internal/core"
)

func newTemplateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Show the analysis prompt template",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the template the analysis request is built from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := core.LoadTemplate(e.cfg.Analysis.TemplatePath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tmpl.Text())
			return nil
		},
	})
	return cmd
}
