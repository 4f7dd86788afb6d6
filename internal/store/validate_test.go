package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken-1511/howard-financial/internal/model"
)

func TestValidate_Clean(t *testing.T) {
	assert.Empty(t, Validate(sample()))
}

func TestValidate_Sign(t *testing.T) {
	txns := []model.Transaction{
		{Amount: dec("45.00"), Type: "expense"},
		{Amount: dec("-10.00"), Type: "income"},
		{Amount: dec("-10.00"), Type: "withdrawal"},
	}
	errs := Validate(txns)
	require.Len(t, errs, 2)
	assert.Equal(t, 1, errs[0].Invariant)
	assert.Equal(t, 0, errs[0].Row)
	assert.Equal(t, 1, errs[1].Invariant)
	assert.Equal(t, 1, errs[1].Row)
}

func TestValidate_Precision(t *testing.T) {
	errs := Validate([]model.Transaction{{Amount: dec("1.005"), Type: "income"}})
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Invariant)
	assert.Contains(t, errs[0].Description, "1.005")
}

func TestValidate_Normalized(t *testing.T) {
	errs := Validate([]model.Transaction{{Amount: dec("1"), Type: "income", Vendor: " Acme"}})
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Invariant)
	assert.Contains(t, errs[0].Error(), "vendor")
}

func TestValidate_MissingType(t *testing.T) {
	errs := Validate([]model.Transaction{{Amount: dec("1")}})
	require.Len(t, errs, 1)
	assert.Equal(t, 4, errs[0].Invariant)
	assert.Equal(t, "invariant 4 [row 0]: missing type", errs[0].Error())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "eating out", Normalize("  Eating Out "))
	assert.Equal(t, "", Normalize("   "))
}
