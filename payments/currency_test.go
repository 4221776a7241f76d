package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConvertCNYToUSD(t *testing.T) {
	rate := decimal.RequireFromString("0.14")
	cases := map[string]string{
		"100":   "14.00",
		"8330":  "1166.20",
		"2800":  "392.00",
		"0.5":   "0.07",
		"10.03": "1.40",
	}
	for cny, usd := range cases {
		got := ConvertCNYToUSD(decimal.RequireFromString(cny), rate)
		assert.Equal(t, usd, got.StringFixed(2), "¥%s", cny)
	}
	assert.Equal(t, int64(116620), ToMinorUnits(decimal.RequireFromString("1166.20")))
}
