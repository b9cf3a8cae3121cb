package service

import (
	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// reprice recomputes the money fields of an order from its lines, discounts
// and tax-rate snapshot. Discounts are applied in parallel against the
// subtotal and clamped to it.
func reprice(o *domain.Order) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	raw := decimal.Zero
	for _, d := range o.Discounts {
		raw = raw.Add(discountAmount(d, subtotal))
	}
	applied := decimal.Min(subtotal, raw)

	taxable := subtotal.Sub(applied)
	tax := taxable.Mul(o.TaxRate).Div(hundred).Round(2)

	o.Subtotal = subtotal.Round(2)
	o.TotalDiscount = applied.Round(2)
	o.Tax = tax
	o.Total = taxable.Round(2).Add(tax)
}

func discountAmount(d domain.Discount, subtotal decimal.Decimal) decimal.Decimal {
	if d.Type == domain.DiscountPercentage {
		return subtotal.Mul(d.Value).Div(hundred)
	}
	return d.Value
}
