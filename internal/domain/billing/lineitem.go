package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/domain/values"
)

// DiscountType distinguishes percentage discounts from flat amounts.
type DiscountType int

const (
	DiscountPercent DiscountType = iota
	DiscountAmount
)

func (d DiscountType) String() string {
	switch d {
	case DiscountPercent:
		return "percent"
	case DiscountAmount:
		return "amount"
	default:
		return "unknown"
	}
}

// Discount is a percentage or flat reduction. For DiscountPercent the
// value is the percentage (10 means 10%); for DiscountAmount it is the
// monetary value.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// NoDiscount is the zero-value percent discount.
func NoDiscount() Discount {
	return Discount{Type: DiscountPercent, Value: decimal.Zero}
}

// AmountOff computes the discount against a base amount, clamped to
// [0, base] so a discount can never drive the taxable amount negative.
func (d Discount) AmountOff(base values.Money) values.Money {
	var off values.Money
	switch d.Type {
	case DiscountAmount:
		off = values.NewMoney(d.Value)
	default:
		off = base.Percent(d.Value).Round()
	}

	if off.IsNegative() {
		return values.Zero()
	}
	if off.GreaterThan(base) {
		return base
	}
	return off
}

// LineItem is one row of a financial document. Line items are immutable
// value objects; edits replace the document's whole line collection.
type LineItem struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       *uuid.UUID      `json:"item_id,omitempty"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	Rate         values.Money    `json:"rate"`
	Discount     Discount        `json:"discount"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	HSNCode      string          `json:"hsn_code"`
	IsInterstate bool            `json:"is_interstate"`
}

// LineComputation is the priced output of one line item.
type LineComputation struct {
	Gross     values.Money `json:"gross_amount"`
	Discount  values.Money `json:"discount_amount"`
	Taxable   values.Money `json:"taxable_amount"`
	Tax       values.Money `json:"tax_amount"`
	Total     values.Money `json:"total"`
	Breakdown TaxBreakdown `json:"tax_breakdown"`
}

// ComputeLine turns a raw line item into its monetary figures.
// Each derived field is rounded once when final, so intermediate
// precision is never compounded away.
func ComputeLine(item LineItem) (LineComputation, error) {
	if !item.Quantity.IsPositive() {
		return LineComputation{}, errors.ErrInvalidLineItem.WithDetails(map[string]interface{}{
			"field": "quantity", "value": item.Quantity.String(),
		})
	}
	if item.Rate.IsNegative() {
		return LineComputation{}, errors.ErrInvalidLineItem.WithDetails(map[string]interface{}{
			"field": "rate", "value": item.Rate.Amount().String(),
		})
	}
	if item.TaxPercent.IsNegative() || item.TaxPercent.GreaterThan(decimal.NewFromInt(100)) {
		return LineComputation{}, errors.ErrInvalidLineItem.WithDetails(map[string]interface{}{
			"field": "tax_percent", "value": item.TaxPercent.String(),
		})
	}

	gross := item.Rate.Mul(item.Quantity).Round()
	discount := item.Discount.AmountOff(gross)
	taxable := gross.Sub(discount)
	tax := taxable.Percent(item.TaxPercent).Round()
	total := taxable.Add(tax)

	return LineComputation{
		Gross:     gross,
		Discount:  discount,
		Taxable:   taxable,
		Tax:       tax,
		Total:     total,
		Breakdown: SplitTax(tax, item.IsInterstate),
	}, nil
}
