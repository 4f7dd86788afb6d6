package server

import (
	"time"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/rules"
)

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryResponse is the response body for POST /api/v1/query. Exactly one of
// Formula or Rows is set, selected by Kind.
type QueryResponse struct {
	QueryID  string            `json:"query_id"`
	Kind     string            `json:"kind"`
	Formula  *FormulaAnswer    `json:"formula,omitempty"`
	Rows     []TransactionJSON `json:"rows,omitempty"`
	FollowUp string            `json:"follow_up"`
}

// FormulaAnswer is an exact answer. Value is null when the ratio is undefined.
type FormulaAnswer struct {
	Intent string      `json:"intent"`
	Label  string      `json:"label"`
	Value  rules.Value `json:"value"`
}

// TransactionJSON is the wire form of a transaction.
type TransactionJSON struct {
	ID       int      `json:"id,omitempty"`
	Date     string   `json:"date"`
	Amount   float64  `json:"amount"`
	Type     string   `json:"type"`
	Category string   `json:"category"`
	Vendor   string   `json:"vendor"`
	Account  string   `json:"account"`
	Tags     string   `json:"tags"`
	Text     string   `json:"text"`
	Score    *float32 `json:"score,omitempty"`
}

// TransactionsResponse is the response body for GET /api/v1/transactions.
type TransactionsResponse struct {
	Transactions []TransactionJSON `json:"transactions"`
	Total        int               `json:"total"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}

// SummaryResponse is the response body for GET /api/v1/summary.
type SummaryResponse struct {
	TotalIncome      float64            `json:"total_income"`
	TotalExpenses    float64            `json:"total_expenses"`
	NetIncome        float64            `json:"net_income"`
	TransactionCount int                `json:"transaction_count"`
	Categories       map[string]float64 `json:"categories"`
	MonthlyTrends    []MonthJSON        `json:"monthly_trends"`
}

// MonthJSON is one monthly trend point.
type MonthJSON struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Loaded       bool   `json:"loaded"`
	Transactions int    `json:"transactions"`
	Vectors      int    `json:"vectors"`
}

// ReloadResponse is the response body for POST /api/v1/reload.
type ReloadResponse struct {
	Status       string    `json:"status"`
	Transactions int       `json:"transactions"`
	Vectors      int       `json:"vectors"`
	LoadedAt     time.Time `json:"loaded_at"`
}

func toJSON(id int, t model.Transaction) TransactionJSON {
	out := TransactionJSON{
		ID:       id,
		Amount:   t.Amount.InexactFloat64(),
		Type:     t.Type,
		Category: t.Category,
		Vendor:   t.Vendor,
		Account:  t.Account,
		Tags:     t.Tags,
		Text:     t.Text,
	}
	if t.HasDate() {
		out.Date = t.Date.Format("2006-01-02")
	}
	return out
}
