package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/agent"
	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/intent"
	"github.com/ken-1511/howard-financial/internal/querylog"
)

type askOptions struct {
	repoDir string
	topK    int
	timeout time.Duration
	noLog   bool
}

func newAskCommand() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about your transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runAsk(cmd.Context(), cmd.OutOrStdout(), opts, query)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "repository directory")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "number of search results (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "query timeout (default from config)")
	cmd.Flags().BoolVar(&opts.noLog, "no-log", false, "do not record the query in logs/query-log.csv")

	return cmd
}

// errEmptyQuery rejects a blank question before any model is loaded.
var errEmptyQuery = errors.New("query cannot be empty")

func runAsk(ctx context.Context, out io.Writer, opts askOptions, query string) error {
	if strings.TrimSpace(query) == "" {
		return errEmptyQuery
	}

	p, err := openProject(opts.repoDir)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	timeout := opts.timeout
	if timeout == 0 {
		timeout = p.cfg.Server.QueryTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	emb, err := p.embedder(ctx)
	if err != nil {
		return err
	}
	defer emb.Close()

	snap, err := p.loader(emb)(ctx)
	if err != nil {
		return err
	}

	a := agent.New(intent.Default(), agent.WithLogger(p.logger), agent.WithTopK(p.cfg.Agent.TopK))
	res, err := a.Answer(ctx, query, snap.Store, snap.Index, opts.topK)
	if errors.Is(err, index.ErrEmptyIndex) {
		return errors.New("the semantic index is empty; run `howard index` first")
	}
	if err != nil {
		return err
	}

	renderResult(out, res, terminalWidth(os.Stdout))

	if !opts.noLog {
		entry := querylog.FromResult(time.Now(), uuid.NewString(), query, res)
		if err := querylog.Append(p.root, []querylog.Entry{entry}); err != nil {
			p.logger.Warn("writing query log", zap.Error(err))
		}
	}
	return nil
}
