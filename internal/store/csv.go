package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ken-1511/howard-financial/internal/model"
)

// Header is the CSV header for the enriched transaction store.
const Header = "text,date,account,amount,vendor,category,type,tags,weekday,is_weekend,is_fixed"

const (
	numFields    = 11
	dateFormat   = "2006-01-02"
	colText      = 0
	colDate      = 1
	colAccount   = 2
	colAmount    = 3
	colVendor    = 4
	colCategory  = 5
	colType      = 6
	colTags      = 7
	colWeekday   = 8
	colIsWeekend = 9
	colIsFixed   = 10
)

// ReadTransactions reads all rows from an enriched store CSV.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading store CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes rows to an enriched store CSV (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colText] = t.Text
	if t.HasDate() {
		row[colDate] = t.Date.Format(dateFormat)
	}
	row[colAccount] = t.Account
	row[colAmount] = t.Amount.StringFixed(2)
	row[colVendor] = t.Vendor
	row[colCategory] = t.Category
	row[colType] = t.Type
	row[colTags] = t.Tags
	row[colWeekday] = t.Weekday
	row[colIsWeekend] = strconv.FormatBool(t.IsWeekend)
	row[colIsFixed] = strconv.FormatBool(t.IsFixed)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction. Derived columns
// are read as-is; store.New recomputes them.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var date time.Time
	if record[colDate] != "" {
		var err error
		date, err = time.Parse(dateFormat, record[colDate])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
		}
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	isWeekend, err := parseBool(record[colIsWeekend])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing is_weekend %q: %w", record[colIsWeekend], err)
	}
	isFixed, err := parseBool(record[colIsFixed])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing is_fixed %q: %w", record[colIsFixed], err)
	}

	return model.Transaction{
		Date:      date,
		Account:   record[colAccount],
		Amount:    amount,
		Vendor:    record[colVendor],
		Category:  record[colCategory],
		Type:      record[colType],
		Tags:      record[colTags],
		Text:      record[colText],
		Weekday:   record[colWeekday],
		IsWeekend: isWeekend,
		IsFixed:   isFixed,
	}, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
