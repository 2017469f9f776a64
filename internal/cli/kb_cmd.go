package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage-assistant/internal/knowledge"
)

func newKBCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the screening knowledge base",
	}
	cmd.AddCommand(newKBBuildCmd(e))
	return cmd
}

func newKBBuildCmd(e *env) *cobra.Command {
	var tokenizerDir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the criteria documents and the fine-tuning dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kb := e.cfg.KnowledgeBase
			if tokenizerDir != "" {
				kb.TokenizerDir = tokenizerDir
			}
			b := &knowledge.Builder{
				Dir:          kb.Dir,
				DatasetPath:  kb.DatasetPath,
				TokenizerDir: kb.TokenizerDir,
				Logger:       e.logger,
			}
			res, err := b.Build(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Base de conhecimento criada em %s (%d documentos)\n", kb.Dir, len(res.Documents))
			fmt.Fprintf(out, "Dataset de fine-tuning salvo em %s (%d exemplos)\n", res.Dataset, res.Records)
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenizerDir, "tokenizer", "", "tokenizer directory providing the end-of-text token")
	return cmd
}
