package payments

import "github.com/shopspring/decimal"

// ConvertCNYToUSD applies a fixed rate and rounds half away from zero to cents.
func ConvertCNYToUSD(amountCNY, rate decimal.Decimal) decimal.Decimal {
	return amountCNY.Mul(rate).Round(2)
}

// ToMinorUnits converts a currency amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
