package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ken-1511/howard-financial/internal/config"
	"github.com/ken-1511/howard-financial/internal/embeddings"
	"github.com/ken-1511/howard-financial/internal/gitops"
	"github.com/ken-1511/howard-financial/internal/store"
)

func newInitCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new howard project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, provider)
		},
	}

	cmd.Flags().StringVar(&provider, "embeddings", embeddings.ProviderFastEmbed,
		"embedding provider (fastembed, gemini or hash)")

	return cmd
}

func runInit(out io.Writer, dir, provider string) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already contains %s", dir, config.FileName)
	}

	cfg := config.Default()
	cfg.Embeddings.Provider = provider
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	dirs := []string{
		cfg.Data.ImportDir,
		filepath.Join(cfg.Data.ImportDir, "processed"),
		filepath.Dir(cfg.Data.StorePath),
		cfg.Index.Dir,
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write howard.yaml.
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write an empty store so the server has something to load.
	if err := store.New(nil).Save(filepath.Join(dir, cfg.Data.StorePath)); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}

	// The index and model cache are derived and stay out of git.
	gitignore := cfg.Index.Dir + "/\n.cache/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Data.ImportDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	// Initialize git and create initial commit.
	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return err
		}
	}

	hash, err := gitops.CommitAll(dir, "init: Initialize howard project", cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized howard project at %s (%s)\n", dir, hash)
	return nil
}
