package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ken-1511/howard-financial/internal/model"
)

// ValidationError describes a single invariant violation on one row.
type ValidationError struct {
	Invariant   int
	Row         int // 0-based store row
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [row %d]: %s", e.Invariant, e.Row, e.Description)
}

// Validate checks the ingestion-boundary invariants on a set of records:
//
//  1. The sign of Amount matches the outflow/inflow direction of Type.
//  2. Amount has at most 2 decimal places.
//  3. Text attributes are trimmed and lower-cased.
//  4. Type is present.
func Validate(txns []model.Transaction) []ValidationError {
	var errs []ValidationError
	hundred := decimal.NewFromInt(100)

	for i, t := range txns {
		if model.Outflow(t.Type) && t.Amount.IsPositive() {
			errs = append(errs, ValidationError{
				Invariant:   1,
				Row:         i,
				Description: fmt.Sprintf("%s amount %s must not be positive", t.Type, t.Amount.StringFixed(2)),
			})
		}
		if !model.Outflow(t.Type) && t.Amount.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   1,
				Row:         i,
				Description: fmt.Sprintf("%s amount %s must not be negative", orUnknown(t.Type), t.Amount.StringFixed(2)),
			})
		}

		scaled := t.Amount.Mul(hundred)
		if !scaled.Equal(scaled.Truncate(0)) {
			errs = append(errs, ValidationError{
				Invariant:   2,
				Row:         i,
				Description: fmt.Sprintf("amount %s has more than 2 decimal places", t.Amount),
			})
		}

		for _, f := range []struct{ name, value string }{
			{"account", t.Account},
			{"vendor", t.Vendor},
			{"category", t.Category},
			{"type", t.Type},
			{"tags", t.Tags},
		} {
			if f.value != Normalize(f.value) {
				errs = append(errs, ValidationError{
					Invariant:   3,
					Row:         i,
					Description: fmt.Sprintf("%s %q is not normalized", f.name, f.value),
				})
			}
		}

		if t.Type == "" {
			errs = append(errs, ValidationError{
				Invariant:   4,
				Row:         i,
				Description: "missing type",
			})
		}
	}
	return errs
}

// Normalize trims and lower-cases a free-text attribute.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func orUnknown(s string) string {
	if s == "" {
		return "untyped"
	}
	return s
}
