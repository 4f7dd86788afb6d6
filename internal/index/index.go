// Package index persists transaction-summary embeddings and answers
// nearest-neighbour queries over them. Vectors live in a chromem-go
// database; the rows they describe live in a parallel metadata table.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/embeddings"
	"github.com/ken-1511/howard-financial/internal/store"
)

var tracer = otel.Tracer("github.com/ken-1511/howard-financial/internal/index")

var (
	// ErrEmptyIndex is returned when searching an index with no vectors.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrMetadataMismatch is returned when vector and metadata counts disagree
	// or a vector addresses a row outside the metadata table.
	ErrMetadataMismatch = errors.New("index metadata mismatch")
	// ErrDimensionMismatch is returned when the embedder does not produce
	// vectors of the dimension the index was built with.
	ErrDimensionMismatch = errors.New("index dimension mismatch")
	// ErrInvalidTopK is returned for a non-positive topK.
	ErrInvalidTopK = errors.New("topK must be positive")
)

// DefaultName is the default chromem collection name.
const DefaultName = "transactions"

// Files inside an index directory.
const (
	vectorsDir   = "vectors"
	metadataFile = "metadata.csv"
	manifestFile = "manifest.yaml"

	stagingPrefix     = ".build-"
	retiredVectorsDir = ".vectors-old"
)

// Metadata keys stored with every vector.
const (
	metaKeyRow  = "row"
	metaKeyType = "type"
	metaKeyCat  = "category"
	metaKeyAcct = "account"
)

// Options configures Build and Load.
type Options struct {
	// Collection names the chromem collection. Defaults to DefaultName.
	Collection string
	// Compress gzips the persisted vector files. Load ignores it and uses
	// the setting recorded in the manifest.
	Compress bool
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Collection == "" {
		o.Collection = DefaultName
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Hit is one search result: a metadata row and its cosine similarity.
type Hit struct {
	Row   int
	Score float32
}

// Index is a loaded, read-only semantic index.
type Index struct {
	coll     *chromem.Collection
	meta     *store.Store
	manifest Manifest
	emb      embeddings.Provider
	logger   *zap.Logger
}

// Build embeds every transaction summary in s and writes a fresh index to
// dir, replacing any index already there. The new index is written to a
// staging directory first, so a failed build leaves the previous one intact.
func Build(ctx context.Context, s *store.Store, emb embeddings.Provider, dir string, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	ctx, span := tracer.Start(ctx, "index.Build")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", s.Len()), attribute.String("model", emb.Model()))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fail(span, fmt.Errorf("creating index dir: %w", err))
	}
	staging, err := os.MkdirTemp(dir, stagingPrefix+"*")
	if err != nil {
		return nil, fail(span, fmt.Errorf("creating staging dir: %w", err))
	}
	defer os.RemoveAll(staging)

	db, err := chromem.NewPersistentDB(filepath.Join(staging, vectorsDir), opts.Compress)
	if err != nil {
		return nil, fail(span, fmt.Errorf("creating vector DB: %w", err))
	}
	coll, err := db.GetOrCreateCollection(opts.Collection, nil, embedFunc(emb))
	if err != nil {
		return nil, fail(span, fmt.Errorf("creating collection %s: %w", opts.Collection, err))
	}

	if s.Len() > 0 {
		texts := make([]string, 0, s.Len())
		for _, t := range s.All() {
			texts = append(texts, t.Text)
		}
		vecs, err := emb.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fail(span, fmt.Errorf("embedding summaries: %w", err))
		}
		if len(vecs) != len(texts) {
			return nil, fail(span, fmt.Errorf("%w: %d vectors for %d rows", ErrMetadataMismatch, len(vecs), len(texts)))
		}

		docs := make([]chromem.Document, len(texts))
		for i, t := range s.All() {
			if len(vecs[i]) != emb.Dimension() {
				return nil, fail(span, fmt.Errorf("%w: row %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vecs[i]), emb.Dimension()))
			}
			docs[i] = chromem.Document{
				ID:        strconv.Itoa(i),
				Content:   t.Text,
				Embedding: vecs[i],
				Metadata: map[string]string{
					metaKeyRow:  strconv.Itoa(i),
					metaKeyType: t.Type,
					metaKeyCat:  t.Category,
					metaKeyAcct: t.Account,
				},
			}
		}
		if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fail(span, fmt.Errorf("adding documents: %w", err))
		}
	}

	if err := s.Save(filepath.Join(staging, metadataFile)); err != nil {
		return nil, fail(span, fmt.Errorf("writing metadata: %w", err))
	}

	m := Manifest{
		Model:      emb.Model(),
		Dimension:  emb.Dimension(),
		Count:      s.Len(),
		Collection: opts.Collection,
		Compress:   opts.Compress,
		BuiltAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := writeManifest(filepath.Join(staging, manifestFile), m); err != nil {
		return nil, fail(span, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(span, err)
	}
	if err := install(dir, staging); err != nil {
		return nil, fail(span, err)
	}

	opts.Logger.Info("index built",
		zap.String("dir", dir),
		zap.Int("vectors", m.Count),
		zap.Int("dimension", m.Dimension),
		zap.String("model", m.Model),
	)

	// The collection stays in memory; nothing writes to it after install.
	return &Index{coll: coll, meta: s, manifest: m, emb: emb, logger: opts.Logger}, nil
}

// install moves a complete staged index into dir. Vectors go first and the
// manifest last, since watchers reload when the manifest changes. The old
// vectors are removed only once the new set is in place.
func install(dir, staging string) error {
	live := filepath.Join(dir, vectorsDir)
	retired := filepath.Join(dir, retiredVectorsDir)

	if err := os.RemoveAll(retired); err != nil {
		return fmt.Errorf("clearing retired vectors: %w", err)
	}
	hadLive := true
	if err := os.Rename(live, retired); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("retiring vectors: %w", err)
		}
		hadLive = false
	}
	rollback := func() {
		_ = os.RemoveAll(live)
		if hadLive {
			_ = os.Rename(retired, live)
		}
	}

	if err := os.Rename(filepath.Join(staging, vectorsDir), live); err != nil {
		rollback()
		return fmt.Errorf("installing vectors: %w", err)
	}
	if err := os.Rename(filepath.Join(staging, metadataFile), filepath.Join(dir, metadataFile)); err != nil {
		rollback()
		return fmt.Errorf("installing metadata: %w", err)
	}
	if err := os.Rename(filepath.Join(staging, manifestFile), filepath.Join(dir, manifestFile)); err != nil {
		return fmt.Errorf("installing manifest: %w", err)
	}

	if err := os.RemoveAll(retired); err != nil {
		return fmt.Errorf("removing retired vectors: %w", err)
	}
	return nil
}

// Load opens the index in dir. A vector count that disagrees with the
// metadata row count is fatal.
func Load(ctx context.Context, dir string, emb embeddings.Provider, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	_, span := tracer.Start(ctx, "index.Load")
	defer span.End()

	m, err := readManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fail(span, err)
	}
	if m.Collection != "" {
		opts.Collection = m.Collection
	}
	// Vectors are read back the way they were written, whatever the
	// current config says.
	opts.Compress = m.Compress

	meta, err := store.Load(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fail(span, fmt.Errorf("reading metadata: %w", err))
	}

	db, err := chromem.NewPersistentDB(filepath.Join(dir, vectorsDir), opts.Compress)
	if err != nil {
		return nil, fail(span, fmt.Errorf("opening vector DB: %w", err))
	}
	coll := db.GetCollection(opts.Collection, embedFunc(emb))
	vectors := 0
	if coll != nil {
		vectors = coll.Count()
	} else {
		coll, err = db.GetOrCreateCollection(opts.Collection, nil, embedFunc(emb))
		if err != nil {
			return nil, fail(span, fmt.Errorf("opening collection %s: %w", opts.Collection, err))
		}
	}

	if vectors != meta.Len() || vectors != m.Count {
		return nil, fail(span, fmt.Errorf("%w: %d vectors, %d metadata rows, manifest count %d",
			ErrMetadataMismatch, vectors, meta.Len(), m.Count))
	}
	if vectors > 0 && m.Dimension != emb.Dimension() {
		return nil, fail(span, fmt.Errorf("%w: index built with %s (%d), embedder %s (%d)",
			ErrDimensionMismatch, m.Model, m.Dimension, emb.Model(), emb.Dimension()))
	}

	span.SetAttributes(attribute.Int("vectors", vectors))
	opts.Logger.Info("index loaded", zap.String("dir", dir), zap.Int("vectors", vectors), zap.String("model", m.Model))

	return &Index{coll: coll, meta: meta, manifest: m, emb: emb, logger: opts.Logger}, nil
}

// Search returns up to topK rows most similar to query, by descending
// score with ties broken by row order. topK is capped at the vector count.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	ctx, span := tracer.Start(ctx, "index.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("top_k", topK))

	if topK <= 0 {
		return nil, fail(span, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK))
	}
	n := ix.Count()
	if n == 0 {
		return nil, fail(span, ErrEmptyIndex)
	}

	q, err := ix.emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fail(span, fmt.Errorf("embedding query: %w", err))
	}

	// chromem does not order equal scores deterministically, so rank every
	// vector and re-sort before truncating.
	results, err := ix.coll.QueryEmbedding(ctx, q, n, nil, nil)
	if err != nil {
		return nil, fail(span, fmt.Errorf("querying vectors: %w", err))
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		row, err := strconv.Atoi(r.ID)
		if err != nil || row < 0 || row >= ix.meta.Len() {
			return nil, fail(span, fmt.Errorf("%w: vector %q has no metadata row", ErrMetadataMismatch, r.ID))
		}
		hits = append(hits, Hit{Row: row, Score: r.Similarity})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Row - b.Row
		}
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	span.SetAttributes(attribute.Int("hits", len(hits)))
	ix.logger.Debug("index search", zap.Int("top_k", topK), zap.Int("hits", len(hits)))
	return hits, nil
}

// Metadata returns the rows the vectors describe.
func (ix *Index) Metadata() *store.Store { return ix.meta }

// Count returns the number of vectors.
func (ix *Index) Count() int {
	if ix == nil || ix.coll == nil {
		return 0
	}
	return ix.coll.Count()
}

// Dimension returns the vector dimension recorded at build time.
func (ix *Index) Dimension() int { return ix.manifest.Dimension }

// Manifest returns the build manifest.
func (ix *Index) Manifest() Manifest { return ix.manifest }

func embedFunc(emb embeddings.Provider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return emb.EmbedQuery(ctx, text)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
