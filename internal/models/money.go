package models

import "github.com/shopspring/decimal"

// RoundMoney rounds v to cents, half away from zero.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatMoney renders v with two decimals, the way the broker expects amounts.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
