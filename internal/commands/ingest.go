package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/gitops"
	"github.com/ken-1511/howard-financial/internal/importer"
	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/store"
)

type ingestOptions struct {
	repoDir string
	format  string
	replace bool
}

func newIngestCommand() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Import CSV exports into the transaction store",
		Long: "Parses the given CSV files, or every CSV in the import directory when none\n" +
			"are given, and appends them to the transaction store. Files taken from the\n" +
			"import directory are moved to its processed/ subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&opts.format, "format", importer.DefaultFormat, "export format (export or chase)")
	cmd.Flags().BoolVar(&opts.replace, "replace", false, "replace the store instead of appending")

	return cmd
}

func runIngest(out io.Writer, opts ingestOptions, files []string) error {
	p, err := openProject(opts.repoDir)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	registry := importer.DefaultRegistry()
	if exp, ok := registry.Get(importer.DefaultFormat).(*importer.ExportParser); ok {
		exp.Logger = p.logger
	}
	parser := registry.Get(opts.format)
	if parser == nil {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	// Explicit files stay where they are; scanned ones are moved when done.
	fromImportDir := len(files) == 0
	if fromImportDir {
		scanned, err := importer.Scan(p.importDir())
		if err != nil {
			return err
		}
		for _, f := range scanned {
			files = append(files, f.Path)
		}
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", p.importDir())
		return nil
	}

	var imported []model.Transaction
	for _, f := range files {
		txns, err := importer.ParseFile(parser, f)
		if err != nil {
			return err
		}
		p.logger.Info("parsed export", zap.String("file", f), zap.Int("transactions", len(txns)))
		imported = append(imported, txns...)
	}

	if verrs := store.Validate(imported); len(verrs) > 0 {
		for _, v := range verrs {
			fmt.Fprintf(out, "  %s\n", v)
		}
		return fmt.Errorf("%d validation errors; store unchanged", len(verrs))
	}

	var existing []model.Transaction
	if !opts.replace {
		s, err := p.loadStore()
		if err != nil {
			return err
		}
		existing = s.Transactions()
	}
	merged := store.New(append(existing, imported...))
	if err := merged.Save(p.storePath()); err != nil {
		return err
	}

	if fromImportDir {
		for _, f := range files {
			if err := importer.MarkProcessed(p.importDir(), filepath.Base(f)); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(out, "Ingested %d transactions from %d files (%d in store)\n", len(imported), len(files), merged.Len())

	if p.cfg.Git.AutoCommit && gitops.IsRepo(p.root) {
		msg := fmt.Sprintf("ingest: %d transactions from %d files", len(imported), len(files))
		hash, err := gitops.CommitAll(p.root, msg, p.cfg.Git.AuthorName, p.cfg.Git.AuthorEmail)
		switch {
		case errors.Is(err, gitops.ErrNothingToCommit):
			// Nothing changed on disk.
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}

	fmt.Fprintln(out, "Run `howard index` to refresh the semantic index.")
	return nil
}
