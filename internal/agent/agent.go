// Package agent answers free-text finance questions. A query that matches
// a registered intent is answered exactly from the transaction store; any
// other query falls back to semantic search.
package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/intent"
	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/rules"
	"github.com/ken-1511/howard-financial/internal/store"
)

var tracer = otel.Tracer("github.com/ken-1511/howard-financial/internal/agent")

// DefaultTopK is the number of search rows returned when the caller does
// not ask for a specific count.
const DefaultTopK = 5

// Follow-up prompts appended to every answer.
const (
	searchFollowUp  = "I found these transactions that seem relevant. Would you like to filter or refine?"
	formulaFollowUp = "I used `%s`. Need any tweaks—different tags, date range, etc.?"
)

// Kind tags the variant held by a Result.
type Kind string

const (
	KindFormula Kind = "formula"
	KindSearch  Kind = "search"
)

// Searcher is the semantic lookup the agent falls back to.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]index.Hit, error)
}

// Formula is an exact answer computed by an intent.
type Formula struct {
	Intent string
	Value  rules.Value
	Label  string
}

// Row is one search result.
type Row struct {
	Transaction model.Transaction
	Score       float32
}

// Search is the semantic-search answer.
type Search struct {
	Rows []Row
}

// Result holds exactly one of Formula or Search, selected by Kind.
type Result struct {
	Kind     Kind
	Formula  *Formula
	Search   *Search
	FollowUp string
}

// Agent dispatches queries. It holds no per-query state and is safe for
// concurrent use.
type Agent struct {
	registry *intent.Registry
	topK     int
	logger   *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(a *Agent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// New returns an agent using registry for intent dispatch.
func New(registry *intent.Registry, opts ...Option) *Agent {
	a := &Agent{registry: registry, topK: DefaultTopK, logger: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Answer resolves query against s, falling back to idx when no intent
// matches. topK <= 0 selects the agent default. Index errors, including
// index.ErrEmptyIndex, are returned wrapped and never produce a partial
// result. Search hits address rows of s.
func (a *Agent) Answer(ctx context.Context, query string, s *store.Store, idx Searcher, topK int) (Result, error) {
	ctx, span := tracer.Start(ctx, "agent.Answer")
	defer span.End()

	if m, ok := a.registry.Match(query); ok {
		value := m.Binding.Compute(s)
		span.SetAttributes(attribute.String("kind", string(KindFormula)), attribute.String("intent", m.Intent))
		a.logger.Debug("intent matched",
			zap.String("intent", m.Intent),
			zap.String("formula", m.Binding.Formula),
			zap.Stringer("value", value),
		)
		return Result{
			Kind:     KindFormula,
			Formula:  &Formula{Intent: m.Intent, Value: value, Label: m.Binding.Formula},
			FollowUp: fmt.Sprintf(formulaFollowUp, m.Binding.Formula),
		}, nil
	}

	if topK <= 0 {
		topK = a.topK
	}
	span.SetAttributes(attribute.String("kind", string(KindSearch)), attribute.Int("top_k", topK))

	hits, err := idx.Search(ctx, query, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("semantic search: %w", err)
	}

	rows := make([]Row, 0, len(hits))
	for _, h := range hits {
		if h.Row < 0 || h.Row >= s.Len() {
			err := fmt.Errorf("%w: row %d outside store of %d", index.ErrMetadataMismatch, h.Row, s.Len())
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{}, err
		}
		rows = append(rows, Row{Transaction: s.At(h.Row), Score: h.Score})
	}

	a.logger.Debug("semantic fallback", zap.Int("top_k", topK), zap.Int("rows", len(rows)))
	return Result{
		Kind:     KindSearch,
		Search:   &Search{Rows: rows},
		FollowUp: searchFollowUp,
	}, nil
}
