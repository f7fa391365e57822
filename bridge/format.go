package bridge

import "github.com/shopspring/decimal"

const tokenDecimals = 18

// formatAmount renders an 18-decimal integer amount for logs.
func formatAmount(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.Shift(-tokenDecimals).String()
}
