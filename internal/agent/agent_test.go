package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ken-1511/howard-financial/internal/embeddings"
	"github.com/ken-1511/howard-financial/internal/index"
	"github.com/ken-1511/howard-financial/internal/intent"
	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/rules"
	"github.com/ken-1511/howard-financial/internal/store"
)

// spySearcher records calls and returns canned hits.
type spySearcher struct {
	calls   int
	queries []string
	topK    int
	hits    []index.Hit
	err     error
}

func (s *spySearcher) Search(_ context.Context, query string, topK int) ([]index.Hit, error) {
	s.calls++
	s.queries = append(s.queries, query)
	s.topK = topK
	return s.hits, s.err
}

func rec(typ, category, tags, amount string) model.Transaction {
	return model.Transaction{
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Account:  "checking",
		Vendor:   "somewhere",
		Type:     typ,
		Category: category,
		Tags:     tags,
		Amount:   decimal.RequireFromString(amount),
	}
}

func TestAnswer_Scenario1_EatingOut(t *testing.T) {
	s := store.New([]model.Transaction{rec("expense", "food", "eating out", "-45.00")})
	spy := &spySearcher{}

	res, err := New(intent.Default()).Answer(context.Background(), "how much did I spend eating out", s, spy, 5)
	require.NoError(t, err)

	require.Equal(t, KindFormula, res.Kind)
	require.NotNil(t, res.Formula)
	assert.Nil(t, res.Search)
	assert.Equal(t, "-45.00", res.Formula.Value.String())
	assert.Equal(t, "Σ Amount where Tags~='eating out'", res.Formula.Label)
	assert.Equal(t, intent.EatingOut, res.Formula.Intent)
	assert.Equal(t, "I used `Σ Amount where Tags~='eating out'`. Need any tweaks—different tags, date range, etc.?", res.FollowUp)
	assert.Zero(t, spy.calls, "matched queries must not reach the index")
}

func TestAnswer_Scenario2_IncomeShare(t *testing.T) {
	s := store.New([]model.Transaction{
		rec("expense", "food", "", "-150.00"),
		rec("expense", "food", "eating out", "-50.00"),
		rec("income", "income", "", "1000.00"),
	})
	spy := &spySearcher{}

	res, err := New(intent.Default()).Answer(context.Background(), "what portion of my income went to food", s, spy, 5)
	require.NoError(t, err)
	require.Equal(t, KindFormula, res.Kind)

	f, ok := res.Formula.Value.Float64()
	require.True(t, ok)
	// sum(food) / |sum(income)| keeps the sign of the food total. Expenses
	// are stored negative, so spending 200 of 1000 reads as -0.2, not 0.2.
	assert.InDelta(t, -0.2, f, 1e-12)
	assert.Equal(t, "Σ Amount(food) / |Σ Amount(income)|", res.Formula.Label)
	assert.Zero(t, spy.calls)
}

func TestAnswer_Scenario3_DegenerateRatio(t *testing.T) {
	s := store.New([]model.Transaction{
		rec("expense", "food", "", "-20.00"),
		rec("reimbursement", "food", "", "20.00"),
		rec("income", "income", "", "500.00"),
	})
	res, err := New(intent.Default()).Answer(context.Background(), "what portion of my income went to food", s, &spySearcher{}, 5)
	require.NoError(t, err)
	require.Equal(t, KindFormula, res.Kind)
	// A food total of zero over real income is a defined 0. Only a zero
	// income total leaves the ratio undefined.
	assert.Equal(t, "0.00", res.Formula.Value.String())

	// Zero denominator: no income at all.
	s = store.New([]model.Transaction{rec("expense", "food", "", "-20.00")})
	res, err = New(intent.Default()).Answer(context.Background(), "what portion of my income went to food", s, &spySearcher{}, 5)
	require.NoError(t, err)
	assert.True(t, res.Formula.Value.IsNaN())
	assert.Equal(t, "undefined", res.Formula.Value.String())
	assert.Contains(t, res.FollowUp, "Σ Amount(food) / |Σ Amount(income)|")
}

func TestAnswer_Scenario4_SearchFallback(t *testing.T) {
	s := store.New([]model.Transaction{
		rec("expense", "coffee", "", "-4.00"),
		rec("expense", "gas", "", "-30.00"),
		rec("income", "income", "", "900.00"),
	})
	spy := &spySearcher{hits: []index.Hit{{Row: 2, Score: 0.9}, {Row: 0, Score: 0.4}}}

	res, err := New(intent.Default()).Answer(context.Background(), "who is the president", s, spy, 2)
	require.NoError(t, err)

	require.Equal(t, KindSearch, res.Kind)
	assert.Nil(t, res.Formula)
	require.Len(t, res.Search.Rows, 2)
	assert.Equal(t, "income", res.Search.Rows[0].Transaction.Category)
	assert.Equal(t, float32(0.9), res.Search.Rows[0].Score)
	assert.Equal(t, "coffee", res.Search.Rows[1].Transaction.Category)
	assert.Equal(t, "I found these transactions that seem relevant. Would you like to filter or refine?", res.FollowUp)

	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, []string{"who is the president"}, spy.queries)
	assert.Equal(t, 2, spy.topK)
}

func TestAnswer_Scenario4_RealIndex(t *testing.T) {
	s := store.New([]model.Transaction{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Account: "visa", Vendor: "blue bottle", Category: "coffee", Type: "expense", Amount: decimal.RequireFromString("-6.00")},
		{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Account: "checking", Vendor: "acme", Category: "income", Type: "income", Amount: decimal.RequireFromString("3000.00")},
		{Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Account: "visa", Vendor: "shell", Category: "gas", Type: "expense", Amount: decimal.RequireFromString("-41.00")},
	})
	ix, err := index.Build(context.Background(), s, embeddings.NewHashProvider(256), t.TempDir(), index.Options{})
	require.NoError(t, err)

	res, err := New(intent.Default()).Answer(context.Background(), "who is the president", ix.Metadata(), ix, 0)
	require.NoError(t, err)
	require.Equal(t, KindSearch, res.Kind)
	require.Len(t, res.Search.Rows, 3, "default topK is capped at the vector count")
	for i := 1; i < len(res.Search.Rows); i++ {
		assert.GreaterOrEqual(t, res.Search.Rows[i-1].Score, res.Search.Rows[i].Score)
	}
}

func TestAnswer_Scenario5_EmptyIndex(t *testing.T) {
	ix, err := index.Build(context.Background(), store.New(nil), embeddings.NewHashProvider(16), t.TempDir(), index.Options{})
	require.NoError(t, err)

	res, err := New(intent.Default()).Answer(context.Background(), "who is the president", store.New(nil), ix, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrEmptyIndex)
	assert.Equal(t, Result{}, res)
}

func TestAnswer_PropagatesSearchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(intent.Default()).Answer(context.Background(), "coffee", store.New(nil), &spySearcher{err: boom}, 5)
	assert.ErrorIs(t, err, boom)
}

func TestAnswer_DefaultTopK(t *testing.T) {
	spy := &spySearcher{}
	_, err := New(intent.Default()).Answer(context.Background(), "coffee", store.New(nil), spy, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, spy.topK)

	spy = &spySearcher{}
	_, err = New(intent.Default(), WithTopK(9)).Answer(context.Background(), "coffee", store.New(nil), spy, -1)
	require.NoError(t, err)
	assert.Equal(t, 9, spy.topK)
}

func TestAnswer_HitOutsideStore(t *testing.T) {
	spy := &spySearcher{hits: []index.Hit{{Row: 3, Score: 1}}}
	_, err := New(intent.Default()).Answer(context.Background(), "coffee", store.New(nil), spy, 5)
	assert.ErrorIs(t, err, index.ErrMetadataMismatch)
}

func rulesIncome() rules.ScalarRule {
	return rules.Sum(rules.Amounts(rules.Filter{Category: "income"}))
}

func rulesFood() rules.ScalarRule {
	return rules.Sum(rules.Amounts(rules.Filter{Category: "food"}))
}

func TestAnswer_CustomRegistryOrder(t *testing.T) {
	s := store.New([]model.Transaction{
		rec("expense", "food", "eating out", "-10.00"),
		rec("income", "income", "", "100.00"),
	})
	reg := intent.NewRegistry(
		intent.New("income-first", `income`, func(string) intent.Binding {
			return intent.Binding{Compute: rulesIncome(), Formula: "income"}
		}),
		intent.New("food", `food`, func(string) intent.Binding {
			return intent.Binding{Compute: rulesFood(), Formula: "food"}
		}),
	)
	res, err := New(reg).Answer(context.Background(), "income spent on food", s, &spySearcher{}, 5)
	require.NoError(t, err)
	assert.Equal(t, "income-first", res.Formula.Intent)
	assert.Equal(t, "100.00", res.Formula.Value.String())
}

func TestAnswer_LogsIntent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := New(intent.Default(), WithLogger(zap.New(core)))

	_, err := a.Answer(context.Background(), "what is my total income", store.New(nil), &spySearcher{}, 5)
	require.NoError(t, err)

	entries := logs.FilterMessage("intent matched").All()
	require.Len(t, entries, 1)
	assert.Equal(t, intent.TotalIncome, entries[0].ContextMap()["intent"])
}
