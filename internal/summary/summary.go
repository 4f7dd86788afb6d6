// Package summary renders transactions as natural-language sentences and
// derives the calendar attributes stored next to them.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/ken-1511/howard-financial/internal/model"
)

const dateFormat = "2006-01-02"

// Placeholders used when a record is missing an attribute.
const (
	unknownDate    = "an unknown date"
	unknownVendor  = "an unknown vendor"
	unknownAccount = "an unknown account"
	unknownType    = "unknown"
)

// fixedCategories are categories treated as recurring fixed costs.
var fixedCategories = map[string]bool{
	"rent":         true,
	"subscription": true,
	"insurance":    true,
	"loan payment": true,
}

// Describe returns the sentence used for embedding and display. Records with
// an unknown or missing type fall back to a generic sentence.
func Describe(t model.Transaction) string {
	date := unknownDate
	if t.HasDate() {
		date = t.Date.Format(dateFormat)
	}
	amount := t.Amount.Abs().StringFixed(2)
	vendor := orDefault(t.Vendor, unknownVendor)
	account := orDefault(t.Account, unknownAccount)
	category := t.Category

	var s string
	switch t.Type {
	case model.TypeExpense:
		s = fmt.Sprintf("On %s, you spent $%s at %s (Category: %s) using %s.", date, amount, vendor, category, account)
	case model.TypeIncome:
		s = fmt.Sprintf("On %s, you received an income of $%s from %s (Category: %s) into %s.", date, amount, vendor, category, account)
	case model.TypeTransfer:
		s = fmt.Sprintf("On %s, $%s was transferred involving %s (Category: %s) from %s.", date, amount, vendor, category, account)
	case model.TypeWithdrawal:
		s = fmt.Sprintf("On %s, you withdrew $%s from %s (Vendor: %s, Category: %s).", date, amount, account, vendor, category)
	case model.TypeReimbursement:
		s = fmt.Sprintf("On %s, you were reimbursed $%s by %s (Category: %s) into %s.", date, amount, vendor, category, account)
	default:
		s = fmt.Sprintf("On %s, a transaction of $%s occurred at %s (Type: %s, Category: %s) using %s.",
			date, amount, vendor, orDefault(t.Type, unknownType), category, account)
	}

	if tags := strings.TrimSpace(t.Tags); tags != "" {
		s += " (tags: " + tags + ")"
	}
	return s
}

// Enrich returns a copy of t with every derived attribute recomputed.
func Enrich(t model.Transaction) model.Transaction {
	t.Text = Describe(t)
	t.Weekday = ""
	t.IsWeekend = false
	if t.HasDate() {
		wd := t.Date.Weekday()
		t.Weekday = wd.String()
		t.IsWeekend = wd == time.Saturday || wd == time.Sunday
	}
	t.IsFixed = IsFixed(t.Category)
	return t
}

// IsFixed reports whether category is a recurring fixed cost.
func IsFixed(category string) bool {
	return fixedCategories[category]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
