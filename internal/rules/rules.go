// Package rules evaluates amount selections and aggregates over a
// transaction store. Every rule is a pure function of the store.
package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ken-1511/howard-financial/internal/store"
)

// Filter selects transactions by case-insensitive substring. Empty fields
// impose no constraint; non-empty fields are ANDed.
type Filter struct {
	Tag      string
	Category string
	Type     string
}

// Matches reports whether tags, category and typ satisfy every non-empty field.
func (f Filter) Matches(tags, category, typ string) bool {
	return contains(tags, f.Tag) && contains(category, f.Category) && contains(typ, f.Type)
}

func contains(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// SelectAmounts returns the amounts of every transaction matching f, in store
// order. It never returns nil.
func SelectAmounts(s *store.Store, f Filter) []decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, s.Len())
	for _, t := range s.All() {
		if f.Matches(t.Tags, t.Category, t.Type) {
			amounts = append(amounts, t.Amount)
		}
	}
	return amounts
}

// AmountRule selects a sequence of amounts from a store.
type AmountRule func(s *store.Store) []decimal.Decimal

// ScalarRule computes a single value from a store.
type ScalarRule func(s *store.Store) Value

// Amounts returns the rule form of SelectAmounts.
func Amounts(f Filter) AmountRule {
	return func(s *store.Store) []decimal.Decimal {
		return SelectAmounts(s, f)
	}
}

// Sum adds the selected amounts as-is, without changing their sign.
func Sum(r AmountRule) ScalarRule {
	return func(s *store.Store) Value {
		return Defined(total(r(s)))
	}
}

// Ratio computes sum(num) / |sum(den)|. A zero denominator yields an
// undefined Value instead of an error.
func Ratio(num, den AmountRule) ScalarRule {
	return func(s *store.Store) Value {
		d := total(den(s)).Abs()
		if d.IsZero() {
			return Undefined()
		}
		return Defined(total(num(s)).DivRound(d, divPrecision))
	}
}

const divPrecision = 16

func total(amounts []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum
}
