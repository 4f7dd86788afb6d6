package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ken-1511/howard-financial/internal/index"
)

func newIndexCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the transaction store into the semantic index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, cmd.OutOrStdout(), repoDir)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "repository directory")

	return cmd
}

func runIndex(cmd *cobra.Command, out io.Writer, repoDir string) error {
	p, err := openProject(repoDir)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	s, err := p.loadStore()
	if err != nil {
		return err
	}

	emb, err := p.embedder(cmd.Context())
	if err != nil {
		return err
	}
	defer emb.Close()

	ix, err := index.Build(cmd.Context(), s, emb, p.indexDir(), p.indexOptions())
	if err != nil {
		return err
	}

	m := ix.Manifest()
	fmt.Fprintf(out, "Indexed %d transactions with %s (dimension %d) into %s\n", m.Count, m.Model, m.Dimension, p.indexDir())
	return nil
}
