package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"triage-assistant/internal/app"
	"triage-assistant/internal/indexer"
	"triage-assistant/internal/vectorstore"
)

func newIndexCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and query the criteria vector index",
	}
	cmd.AddCommand(
		newIndexBuildCmd(e),
		newIndexQueryCmd(e),
	)
	return cmd
}

func newIndexBuildCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "build [DIR]",
		Short: "Chunk, embed and persist every .txt document under DIR",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.cfg.KnowledgeBase.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			ix, err := app.NewIndexer(e.cfg, e.logger)
			if err != nil {
				return err
			}
			report, err := ix.Build(cmd.Context(), dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d documentos, %d trechos indexados\n", report.Documents, report.Chunks)
			if fileStore, ok := ix.Store.(*vectorstore.FileStore); ok {
				fmt.Fprintf(out, "Índice salvo em %s\n", fileStore.Path())
			}

			res, err := ix.Query(cmd.Context(), e.cfg.Index.SanityQuery, indexer.SanityTopK)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, indexer.Describe(res))
			return nil
		},
	}
}

func newIndexQueryCmd(e *env) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query TEXT",
		Short: "Print the chunks closest to TEXT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := app.OpenIndexer(e.cfg, e.logger)
			if err != nil {
				return err
			}
			res, err := ix.Query(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if k <= 1 {
				fmt.Fprintln(out, indexer.Describe(res))
				return nil
			}
			if len(res) == 0 {
				fmt.Fprintln(out, indexer.NoResultsMessage)
			}
			for _, r := range res {
				fmt.Fprintf(out, "[%.3f] %s\n%s\n\n", r.Score, r.Chunk.ChunkID, r.Chunk.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", indexer.SanityTopK, "number of chunks to return")
	return cmd
}
