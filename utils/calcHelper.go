package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// CalculateDiscountAmount returns the discount for a percentage rate applied to an amount.
func CalculateDiscountAmount(amount decimal.Decimal, discountPercent decimal.Decimal) decimal.Decimal {
	if !discountPercent.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Mul(discountPercent).DivRound(decimalOneHundred, 4)
}

// CalculateTaxAmount returns the exclusive tax for a percentage rate applied to an amount.
func CalculateTaxAmount(amount decimal.Decimal, taxPercent decimal.Decimal) decimal.Decimal {
	if !taxPercent.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Mul(taxPercent).DivRound(decimalOneHundred, 4)
}

// CalculateItemSubtotal computes qty * rate less percentage discount plus percentage tax.
func CalculateItemSubtotal(qty, unitPrice, discountPercent, taxPercent decimal.Decimal) decimal.Decimal {
	gross := qty.Mul(unitPrice)
	net := gross.Sub(CalculateDiscountAmount(gross, discountPercent))
	return net.Add(CalculateTaxAmount(net, taxPercent))
}
