package store

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken-1511/howard-financial/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sample() []model.Transaction {
	return []model.Transaction{
		{Date: date(2024, 1, 5), Account: "visa", Amount: dec("-45.00"), Vendor: "taco shop", Category: "food", Type: "expense", Tags: "eating out"},
		{Date: date(2024, 1, 6), Account: "checking", Amount: dec("1200.00"), Vendor: "acme corp", Category: "income", Type: "income"},
		{Date: date(2024, 1, 7), Account: "checking", Amount: dec("-900.00"), Vendor: "landlord", Category: "rent", Type: "expense"},
	}
}

func TestNew_EnrichesAndCopies(t *testing.T) {
	in := sample()
	in[0].Text = "stale text"
	s := New(in)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, "On 2024-01-05, you spent $45.00 at taco shop (Category: food) using visa. (tags: eating out)", s.At(0).Text)
	assert.True(t, s.At(1).IsWeekend)
	assert.True(t, s.At(2).IsFixed)

	in[0].Vendor = "mutated"
	assert.Equal(t, "taco shop", s.At(0).Vendor)
}

func TestAll_Order(t *testing.T) {
	s := New(sample())
	var vendors []string
	for i, txn := range s.All() {
		assert.Equal(t, len(vendors), i)
		vendors = append(vendors, txn.Vendor)
	}
	assert.Equal(t, []string{"taco shop", "acme corp", "landlord"}, vendors)
}

func TestAll_EarlyStop(t *testing.T) {
	s := New(sample())
	n := 0
	for range s.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Transactions())
	for range s.All() {
		t.Fatal("nil store must not yield")
	}
}

func TestRoundTrip(t *testing.T) {
	s := New(sample())

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, s.Transactions()))

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Transactions(), got)
}

func TestWriteTransactions_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil))
	assert.Equal(t, Header+"\n", buf.String())
}

func TestMarshalTransaction_NoDate(t *testing.T) {
	row := MarshalTransaction(model.Transaction{Amount: dec("3")})
	assert.Equal(t, "", row[colDate])
	assert.Equal(t, "3.00", row[colAmount])
	assert.Equal(t, "false", row[colIsWeekend])
}

func TestReadTransactions_BadAmount(t *testing.T) {
	csv := Header + "\nx,2024-01-05,visa,NOPE,v,c,expense,,Friday,false,false\n"
	_, err := ReadTransactions(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestReadTransactions_BadDate(t *testing.T) {
	csv := Header + "\nx,01/05/2024,visa,1.00,v,c,income,,Friday,false,false\n"
	_, err := ReadTransactions(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")
}

func TestReadTransactions_WrongFieldCount(t *testing.T) {
	_, err := ReadTransactions(strings.NewReader("a,b,c\n"))
	assert.Error(t, err)
}

func TestReadTransactions_Empty(t *testing.T) {
	txns, err := ReadTransactions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "transactions.csv")
	s := New(sample())
	require.NoError(t, s.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Transactions(), loaded.Transactions())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLoad_Fixture(t *testing.T) {
	s, err := Load("../../testdata/store.csv")
	require.NoError(t, err)
	assert.Equal(t, 8, s.Len())
	assert.Empty(t, Validate(s.Transactions()))
}
