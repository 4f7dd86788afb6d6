package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/store"
)

// ExportParser parses the personal finance export:
// Date,Account,Dollars,Type,Category,Vendor,Tags.
// Only Date and Dollars are required; other columns may be missing.
type ExportParser struct {
	Logger *zap.Logger
}

const exportDateFormat = "01/02/2006"

// Export column names after header normalization.
const (
	exportColDate     = "Date"
	exportColDollars  = "Dollars"
	exportColAccount  = "Account"
	exportColType     = "Type"
	exportColCategory = "Category"
	exportColVendor   = "Vendor"
	exportColTags     = "Tags"
)

// Format returns the parser name.
func (p *ExportParser) Format() string { return "export" }

// Parse reads an export CSV. Amounts take their sign from Type: expense and
// withdrawal rows are negative, everything else is non-negative. A row with
// an unparseable date keeps the zero date; an unparseable amount fails.
func (p *ExportParser) Parse(r io.Reader) ([]model.Transaction, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = normalizeHeader(name)
		cols[strings.ToLower(header[i])] = i
	}
	for _, required := range []string{exportColDate, exportColDollars} {
		if _, ok := cols[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("expected %q column, got %q", required, header)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok {
			return ""
		}
		return rec[i]
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		row := i + 2

		amount, err := parseDollars(field(rec, exportColDollars))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		rawDate := strings.TrimSpace(field(rec, exportColDate))
		date, err := time.Parse(exportDateFormat, rawDate)
		if err != nil {
			logger.Warn("unparseable date, keeping row without a date",
				zap.Int("row", row), zap.String("date", rawDate))
			date = time.Time{}
		}

		typ := store.Normalize(field(rec, exportColType))
		amount = amount.Abs()
		if model.Outflow(typ) {
			amount = amount.Neg()
		}

		txns = append(txns, model.Transaction{
			Date:     date,
			Account:  store.Normalize(field(rec, exportColAccount)),
			Amount:   amount,
			Vendor:   store.Normalize(field(rec, exportColVendor)),
			Category: store.Normalize(field(rec, exportColCategory)),
			Type:     typ,
			Tags:     store.Normalize(field(rec, exportColTags)),
		})
	}
	return txns, nil
}

// normalizeHeader trims a column name and collapses inner whitespace.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseDollars reads "$1,200.00" or "($45.00)" as an unsigned amount
// rounded to cents.
func parseDollars(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '(', ')', ' ':
			return -1
		}
		return r
	}, s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d.Round(2), nil
}
