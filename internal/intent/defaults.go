package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/rules"
)

// Built-in intent names.
const (
	EatingOut       = "eating-out"
	IncomeShareFood = "income-share-food"
	CategorySpend   = "category-spend"
	TotalIncome     = "total-income"
)

// categorySpendExpr captures the words after "spend on". Words may carry
// digits, hyphens, apostrophes and ampersands ("in-n-out", "b&h").
const categorySpendExpr = `\bhow much did i spend on ([a-z][a-z0-9'&-]*(?: +[a-z][a-z0-9'&-]*)*)`

var categorySpendRe = regexp.MustCompile("(?i)" + categorySpendExpr)

// categoryStopWords end the category phrase in a category-spend query.
var categoryStopWords = map[string]bool{
	"in": true, "last": true, "this": true, "during": true, "since": true,
	"over": true, "for": true, "at": true, "per": true, "each": true, "so": true,
}

// Default returns the built-in registry. More specific patterns come first.
func Default() *Registry {
	return NewRegistry(
		New(EatingOut, `\bhow (?:much|many).*?(?:eat|eating out|fast food)\b`, func(string) Binding {
			return Binding{
				Compute: rules.Sum(rules.Amounts(rules.Filter{Tag: "eating out"})),
				Formula: "Σ Amount where Tags~='eating out'",
			}
		}),
		New(IncomeShareFood, `\bportion\b.*\bincome\b.*\bfood\b`, func(string) Binding {
			return Binding{
				Compute: rules.Ratio(
					rules.Amounts(rules.Filter{Category: "food"}),
					rules.Amounts(rules.Filter{Category: "income"}),
				),
				Formula: "Σ Amount(food) / |Σ Amount(income)|",
			}
		}),
		New(CategorySpend, categorySpendExpr, buildCategorySpend).
			When(func(query string) bool { return spentCategory(query) != "" }),
		New(TotalIncome, `\btotal income\b`, func(string) Binding {
			return Binding{
				Compute: rules.Sum(rules.Amounts(rules.Filter{Type: model.TypeIncome})),
				Formula: "Σ Amount where Type~='income'",
			}
		}),
	)
}

// spentCategory returns the category named after "spend on", up to the
// first stop word. It is empty when the phrase opens with a stop word.
func spentCategory(query string) string {
	m := categorySpendRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	var words []string
	for _, w := range strings.Fields(strings.ToLower(m[1])) {
		if categoryStopWords[w] {
			break
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func buildCategorySpend(query string) Binding {
	category := spentCategory(query)
	return Binding{
		Compute: rules.Sum(rules.Amounts(rules.Filter{Category: category, Type: model.TypeExpense})),
		Formula: fmt.Sprintf("Σ Amount where Category~='%s' and Type~='expense'", category),
	}
}
