package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/agent"
	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/intent"
	"github.com/ken-1511/howard-financial/internal/querylog"
	"github.com/ken-1511/howard-financial/internal/server"
	"github.com/ken-1511/howard-financial/internal/snapshot"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	repoDir string
	host    string
	port    int
	noWatch bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "repository directory")
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload when the store or index changes")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	p, err := openProject(opts.repoDir)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	emb, err := p.embedder(ctx)
	if err != nil {
		return err
	}
	defer emb.Close()

	holder := snapshot.NewHolder(p.loader(emb), p.logger)
	a := agent.New(intent.Default(), agent.WithLogger(p.logger), agent.WithTopK(p.cfg.Agent.TopK))

	cfg := &server.Config{
		Host:         p.cfg.Server.Host,
		Port:         p.cfg.Server.Port,
		QueryTimeout: p.cfg.Server.QueryTimeout,
	}
	if opts.host != "" {
		cfg.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}

	srv, err := server.NewServer(holder, a, p.logger, cfg, server.WithQueryLog(querylog.NewWriter(p.root)))
	if err != nil {
		return err
	}
	holder.OnReload = srv.Metrics().ObserveReload

	// A store/index disagreement is fatal: nothing is served.
	if err := holder.Reload(ctx); err != nil {
		return err
	}

	if p.cfg.Server.Watch && !opts.noWatch {
		manifest := index.ManifestPath(p.indexDir())
		for _, f := range []string{p.storePath(), manifest} {
			if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(f), err)
			}
		}
		if err := holder.Watch(ctx, p.storePath(), manifest); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		p.logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
