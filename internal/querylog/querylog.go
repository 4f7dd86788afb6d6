// Package querylog records every answered query in logs/query-log.csv.
package querylog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ken-1511/howard-financial/internal/agent"
)

// Entry is one row in the query log.
type Entry struct {
	Timestamp time.Time
	QueryID   string
	Kind      agent.Kind
	Query     string
	Intent    string // formula answers only
	Formula   string // formula answers only
	Value     string // formula answers only; "undefined" for NaN
	Hits      int    // search answers only
}

// Header is the CSV header for query-log.csv.
const Header = "timestamp,query_id,kind,query,intent,formula,value,hits"

const (
	numFields  = 8
	logDir     = "logs"
	logFile    = "logs/query-log.csv"
	colTime    = 0
	colQueryID = 1
	colKind    = 2
	colQuery   = 3
	colIntent  = 4
	colFormula = 5
	colValue   = 6
	colHits    = 7
)

// FromResult builds the log entry for an answered query.
func FromResult(ts time.Time, queryID, query string, res agent.Result) Entry {
	e := Entry{Timestamp: ts, QueryID: queryID, Kind: res.Kind, Query: query}
	switch res.Kind {
	case agent.KindFormula:
		e.Intent = res.Formula.Intent
		e.Formula = res.Formula.Label
		e.Value = res.Formula.Value.String()
	case agent.KindSearch:
		e.Hits = len(res.Search.Rows)
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colQueryID] = e.QueryID
	row[colKind] = string(e.Kind)
	row[colQuery] = e.Query
	row[colIntent] = e.Intent
	row[colFormula] = e.Formula
	row[colValue] = e.Value
	row[colHits] = strconv.Itoa(e.Hits)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	hits, err := strconv.Atoi(record[colHits])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing hits %q: %w", record[colHits], err)
	}

	return Entry{
		Timestamp: ts,
		QueryID:   record[colQueryID],
		Kind:      agent.Kind(record[colKind]),
		Query:     record[colQuery],
		Intent:    record[colIntent],
		Formula:   record[colFormula],
		Value:     record[colValue],
		Hits:      hits,
	}, nil
}

// Append writes entries to <repoRoot>/logs/query-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening query log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/query-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening query log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading query log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Writer serialises appends from concurrent request handlers.
type Writer struct {
	mu   sync.Mutex
	root string
}

// NewWriter returns a Writer appending under repoRoot.
func NewWriter(repoRoot string) *Writer {
	return &Writer{root: repoRoot}
}

// Append writes one entry.
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Append(w.root, []Entry{e})
}
