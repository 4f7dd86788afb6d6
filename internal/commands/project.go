package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/config"
	"github.com/ken-1511/howard-financial/internal/embeddings"
	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/logging"
	"github.com/ken-1511/howard-financial/internal/snapshot"
	"github.com/ken-1511/howard-financial/internal/store"
)

// project is an initialized howard directory with its config and logger.
type project struct {
	root   string
	cfg    *config.Config
	logger *zap.Logger
}

func openProject(repoDir string) (*project, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s has no %s; run `howard init` first", root, config.FileName)
		}
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &project{root: root, cfg: cfg, logger: logger}, nil
}

func (p *project) storePath() string { return config.Resolve(p.root, p.cfg.Data.StorePath) }
func (p *project) importDir() string { return config.Resolve(p.root, p.cfg.Data.ImportDir) }
func (p *project) indexDir() string  { return config.Resolve(p.root, p.cfg.Index.Dir) }

func (p *project) indexOptions() index.Options {
	return index.Options{
		Collection: p.cfg.Index.Collection,
		Compress:   p.cfg.Index.Compress,
		Logger:     p.logger,
	}
}

func (p *project) embedder(ctx context.Context) (embeddings.Provider, error) {
	emb, err := embeddings.NewProvider(ctx, p.cfg.EmbeddingsProvider(p.root))
	if err != nil {
		return nil, fmt.Errorf("creating %s embedder: %w", p.cfg.Embeddings.Provider, err)
	}
	return emb, nil
}

// loadStore reads the transaction store; a missing store is empty.
func (p *project) loadStore() (*store.Store, error) {
	s, err := store.Load(p.storePath())
	if errors.Is(err, os.ErrNotExist) {
		return store.New(nil), nil
	}
	return s, err
}

// loader builds snapshots. When an index has been built, its metadata table
// is the store, so search rows and formula answers read the same records.
// Without an index the raw store is served and searches report an empty
// index.
func (p *project) loader(emb embeddings.Provider) snapshot.LoadFunc {
	return func(ctx context.Context) (*snapshot.Snapshot, error) {
		if _, err := os.Stat(index.ManifestPath(p.indexDir())); errors.Is(err, os.ErrNotExist) {
			s, err := p.loadStore()
			if err != nil {
				return nil, err
			}
			return &snapshot.Snapshot{Store: s}, nil
		}
		ix, err := index.Load(ctx, p.indexDir(), emb, p.indexOptions())
		if err != nil {
			return nil, err
		}
		return &snapshot.Snapshot{Store: ix.Metadata(), Index: ix}, nil
	}
}
