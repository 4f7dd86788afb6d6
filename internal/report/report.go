// Package report computes listing and summary views over a transaction
// store for the HTTP API and the CLI.
package report

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/store"
)

// trendMonths is how many trailing months Summarize reports.
const trendMonths = 6

// Summary aggregates a whole store.
type Summary struct {
	TotalIncome      decimal.Decimal // sum of positive amounts
	TotalExpenses    decimal.Decimal // absolute sum of negative amounts
	NetIncome        decimal.Decimal
	TransactionCount int
	Categories       []CategoryTotal // first-seen order
	MonthlyTrends    []MonthTotal    // chronological, last six months with data
}

// CategoryTotal is the signed sum of one category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// MonthTotal is the signed sum of one calendar month ("2006-01").
type MonthTotal struct {
	Month  string
	Amount decimal.Decimal
}

// Summarize computes totals, per-category sums and recent monthly trends.
func Summarize(s *store.Store) Summary {
	sum := Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		NetIncome:     decimal.Zero,
	}
	catIdx := make(map[string]int)
	months := make(map[string]decimal.Decimal)

	for _, t := range s.All() {
		sum.TransactionCount++
		if t.Amount.IsPositive() {
			sum.TotalIncome = sum.TotalIncome.Add(t.Amount)
		} else {
			sum.TotalExpenses = sum.TotalExpenses.Add(t.Amount.Neg())
		}

		i, ok := catIdx[t.Category]
		if !ok {
			i = len(sum.Categories)
			catIdx[t.Category] = i
			sum.Categories = append(sum.Categories, CategoryTotal{Category: t.Category, Amount: decimal.Zero})
		}
		sum.Categories[i].Amount = sum.Categories[i].Amount.Add(t.Amount)

		if t.HasDate() {
			key := t.Date.Format("2006-01")
			months[key] = months[key].Add(t.Amount)
		}
	}
	sum.NetIncome = sum.TotalIncome.Sub(sum.TotalExpenses)

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if len(keys) > trendMonths {
		keys = keys[len(keys)-trendMonths:]
	}
	for _, k := range keys {
		sum.MonthlyTrends = append(sum.MonthlyTrends, MonthTotal{Month: k, Amount: months[k]})
	}
	return sum
}

// FieldFunc selects one text attribute of a transaction.
type FieldFunc func(model.Transaction) string

// Distinct returns the distinct non-empty values of field in first-seen order.
func Distinct(s *store.Store, field FieldFunc) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range s.All() {
		v := field(t)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Field accessors for Distinct.
var (
	Categories FieldFunc = func(t model.Transaction) string { return t.Category }
	Types      FieldFunc = func(t model.Transaction) string { return t.Type }
	Accounts   FieldFunc = func(t model.Transaction) string { return t.Account }
)

// Query filters and pages a listing. Type and Category match exactly
// (case-insensitive); Start and End are inclusive and ignored when zero.
type Query struct {
	Type     string
	Category string
	Start    time.Time
	End      time.Time
	Limit    int // 0 means no limit
	Offset   int
}

// Entry is a listed transaction with its 1-based store position.
type Entry struct {
	ID          int
	Transaction model.Transaction
}

// Page is one page of a listing; Total counts matches before paging.
type Page struct {
	Entries []Entry
	Total   int
}

// List returns the transactions matching q, paged.
func List(s *store.Store, q Query) Page {
	var matched []Entry
	for i, t := range s.All() {
		if q.Type != "" && !strings.EqualFold(t.Type, q.Type) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(t.Category, q.Category) {
			continue
		}
		if !q.Start.IsZero() && (!t.HasDate() || t.Date.Before(q.Start)) {
			continue
		}
		if !q.End.IsZero() && (!t.HasDate() || t.Date.After(q.End)) {
			continue
		}
		matched = append(matched, Entry{ID: i + 1, Transaction: t})
	}

	page := Page{Total: len(matched), Entries: []Entry{}}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset >= len(matched) {
		return page
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	page.Entries = matched
	return page
}

// Get returns the transaction with 1-based id.
func Get(s *store.Store, id int) (model.Transaction, bool) {
	if id <= 0 || id > s.Len() {
		return model.Transaction{}, false
	}
	return s.At(id - 1), true
}
