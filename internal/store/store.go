// Package store holds the immutable, ordered collection of cleaned
// transactions that queries are evaluated against.
package store

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/ken-1511/howard-financial/internal/model"
	"github.com/ken-1511/howard-financial/internal/summary"
)

// Store is an ordered, read-only set of transactions. The zero value is an
// empty store.
type Store struct {
	txns []model.Transaction
}

// New copies records into a store, recomputing every derived attribute so
// the summary text always matches the fields it describes.
func New(records []model.Transaction) *Store {
	txns := make([]model.Transaction, len(records))
	for i, r := range records {
		txns[i] = summary.Enrich(r)
	}
	return &Store{txns: txns}
}

// Len returns the number of transactions.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.txns)
}

// At returns the transaction at row i (0-based).
func (s *Store) At(i int) model.Transaction {
	return s.txns[i]
}

// All iterates rows in store order.
func (s *Store) All() iter.Seq2[int, model.Transaction] {
	return func(yield func(int, model.Transaction) bool) {
		if s == nil {
			return
		}
		for i, t := range s.txns {
			if !yield(i, t) {
				return
			}
		}
	}
}

// Transactions returns a copy of the rows.
func (s *Store) Transactions() []model.Transaction {
	if s == nil {
		return nil
	}
	out := make([]model.Transaction, len(s.txns))
	copy(out, s.txns)
	return out
}

// Load reads an enriched store CSV from path.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer f.Close()

	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return New(txns), nil
}

// Save writes the store to path as enriched CSV, creating parent directories.
func (s *Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating store file: %w", err)
	}
	if err := WriteTransactions(f, s.Transactions()); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing store file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
