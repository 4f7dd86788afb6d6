package rules

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(typ, category, tags, amount string) model.Transaction {
	return model.Transaction{Type: typ, Category: category, Tags: tags, Amount: dec(amount)}
}

func fixture() *store.Store {
	return store.New([]model.Transaction{
		txn("expense", "food", "eating out", "-45.00"),
		txn("expense", "food", "groceries", "-80.00"),
		txn("income", "income", "", "1000.00"),
		txn("expense", "fast food", "eating out;late night", "-12.50"),
		txn("transfer", "savings", "", "200.00"),
	})
}

func strs(ds []decimal.Decimal) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.StringFixed(2)
	}
	return out
}

func TestSelectAmounts_NoFilters(t *testing.T) {
	got := SelectAmounts(fixture(), Filter{})
	assert.Equal(t, []string{"-45.00", "-80.00", "1000.00", "-12.50", "200.00"}, strs(got))
}

func TestSelectAmounts(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"tag substring", Filter{Tag: "eating out"}, []string{"-45.00", "-12.50"}},
		{"case insensitive", Filter{Tag: "EATING"}, []string{"-45.00", "-12.50"}},
		{"category over-matches", Filter{Category: "food"}, []string{"-45.00", "-80.00", "-12.50"}},
		{"AND across filters", Filter{Tag: "eating", Category: "fast"}, []string{"-12.50"}},
		{"type", Filter{Type: "income"}, []string{"1000.00"}},
		{"unknown tag", Filter{Tag: "vacation"}, []string{}},
		{"all three", Filter{Tag: "groceries", Category: "food", Type: "exp"}, []string{"-80.00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strs(SelectAmounts(fixture(), tt.filter)))
		})
	}
}

func TestSelectAmounts_EmptyStore(t *testing.T) {
	got := SelectAmounts(store.New(nil), Filter{Tag: "x"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, SelectAmounts(nil, Filter{}))
}

func TestSum_NoSignFlip(t *testing.T) {
	v := Sum(Amounts(Filter{Tag: "eating out"}))(fixture())
	require.False(t, v.IsNaN())
	assert.Equal(t, "-57.50", v.String())
}

func TestSum_Empty(t *testing.T) {
	v := Sum(Amounts(Filter{Tag: "nothing"}))(fixture())
	assert.False(t, v.IsNaN())
	assert.Equal(t, "0.00", v.String())
}

func TestRatio(t *testing.T) {
	v := Ratio(Amounts(Filter{Category: "food"}), Amounts(Filter{Category: "income"}))(fixture())
	f, ok := v.Float64()
	require.True(t, ok)
	assert.InDelta(t, -0.1375, f, 1e-9)
}

func TestRatio_ZeroDenominator(t *testing.T) {
	v := Ratio(Amounts(Filter{Category: "food"}), Amounts(Filter{Category: "nonexistent"}))(fixture())
	assert.True(t, v.IsNaN())

	f, ok := v.Float64()
	assert.False(t, ok)
	assert.True(t, math.IsNaN(f))
	assert.Equal(t, "undefined", v.String())
}

func TestRatio_CancellingDenominator(t *testing.T) {
	s := store.New([]model.Transaction{
		txn("income", "salary", "", "100.00"),
		txn("expense", "salary", "", "-100.00"),
	})
	v := Ratio(Amounts(Filter{}), Amounts(Filter{Category: "salary"}))(s)
	assert.True(t, v.IsNaN())
}

func TestRatio_DenominatorSignInvariant(t *testing.T) {
	pos := store.New([]model.Transaction{
		txn("expense", "food", "", "-50.00"),
		txn("income", "den", "", "400.00"),
	})
	neg := store.New([]model.Transaction{
		txn("expense", "food", "", "-50.00"),
		txn("expense", "den", "", "-400.00"),
	})
	r := Ratio(Amounts(Filter{Category: "food"}), Amounts(Filter{Category: "den"}))

	a, _ := r(pos).Decimal()
	b, _ := r(neg).Decimal()
	assert.True(t, a.Equal(b), "%s != %s", a, b)
	assert.Equal(t, "-0.1250", r(pos).StringFixed(4))
}

func TestValue_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{Defined(dec("0.25")), Undefined()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.25,"b":null}`, string(b))
}

func TestFilter_Matches(t *testing.T) {
	assert.True(t, Filter{}.Matches("", "", ""))
	assert.False(t, Filter{Tag: "x"}.Matches("", "x", "x"))
	assert.True(t, Filter{Type: "Expense"}.Matches("", "", "expense"))
}
