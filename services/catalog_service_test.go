package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.Len(t, catalog, 6)

	pkg, ok := FindPackage(catalog, "one-on-one", "35")
	require.True(t, ok)
	assert.Equal(t, "35课时", pkg.NameZh)
	assert.True(t, pkg.Price.Equal(decimal.NewFromInt(8330)))
	assert.Equal(t, 35, pkg.ClassCount)
	assert.Equal(t, 364, pkg.ValidityDays)
	assert.Equal(t, "15%", pkg.Discount)
	assert.True(t, pkg.PricePerClass().Equal(decimal.NewFromInt(238)))

	trial, ok := FindPackage(catalog, "culture", "trial")
	require.True(t, ok)
	assert.True(t, trial.IsFree())
	assert.Equal(t, 1, trial.ClassCount)

	_, ok = FindPackage(catalog, "kids", "35")
	assert.False(t, ok)
}
