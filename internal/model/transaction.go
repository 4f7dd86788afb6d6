package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types recognised by the summary templates and the sign convention.
const (
	TypeExpense       = "expense"
	TypeIncome        = "income"
	TypeTransfer      = "transfer"
	TypeWithdrawal    = "withdrawal"
	TypeReimbursement = "reimbursement"
)

// Transaction is one cleaned row of the transaction store.
type Transaction struct {
	Date     time.Time       // zero when the export carried an unparseable date
	Account  string
	Amount   decimal.Decimal // negative = money leaving the owner
	Vendor   string
	Category string
	Type     string
	Tags     string

	// Derived at store construction; never user input.
	Text      string
	Weekday   string
	IsWeekend bool
	IsFixed   bool
}

// Outflow reports whether typ moves money away from the owner.
func Outflow(typ string) bool {
	return typ == TypeExpense || typ == TypeWithdrawal
}

// HasDate reports whether the transaction carries a usable date.
func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}
