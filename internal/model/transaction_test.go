package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutflow(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{TypeExpense, true},
		{TypeWithdrawal, true},
		{TypeIncome, false},
		{TypeTransfer, false},
		{TypeReimbursement, false},
		{"", false},
		{"refund", false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, Outflow(tt.typ))
		})
	}
}

func TestHasDate(t *testing.T) {
	assert.False(t, Transaction{}.HasDate())
	assert.True(t, Transaction{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}.HasDate())
}
