package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"triage-assistant/internal/app"
	"triage-assistant/internal/config"
)

// env carries what every subcommand resolves before it runs.
type env struct {
	configPath string
	cfg        *config.AppConfig
	logger     *slog.Logger
}

// NewRootCmd creates the top-level "triage" command and registers the
// knowledge-base, index and terminal questionnaire subcommands.
func NewRootCmd(logOut io.Writer) *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "triage",
		Short:         "Mental-health screening assistant tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = app.NewLogger(cfg.Log.Level, logOut)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")

	root.AddCommand(
		newKBCmd(e),
		newIndexCmd(e),
		newAskCmd(e),
		newConfigCmd(e),
		newTemplateCmd(e),
	)
	return root
}
