package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/values"
)

// fakeRow replays the values the postgres driver would hand back for
// one documents row: NUMERIC as string, JSONB as raw bytes, nullable
// dates as sql.NullTime.
type fakeRow struct {
	vals []interface{}
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(r.vals) {
		return fmt.Errorf("expected %d columns, got %d", len(r.vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.vals[i].(uuid.UUID)
		case *sql.NullTime:
			*p = r.vals[i].(sql.NullTime)
		case *string:
			*p = r.vals[i].(string)
		case *json.RawMessage:
			*p = r.vals[i].(json.RawMessage)
		case *int:
			*p = r.vals[i].(int)
		case *int64:
			*p = r.vals[i].(int64)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		default:
			sc, ok := d.(sql.Scanner)
			if !ok {
				return fmt.Errorf("unsupported destination %T", d)
			}
			if err := sc.Scan(r.vals[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// rowFor marshals the document exactly as Create/Update would and lays
// the column values out in selectDocument order.
func rowFor(t *testing.T, doc *billing.FinancialDocument) fakeRow {
	t.Helper()

	lineItems, charges, totals, err := marshalDocumentParts(doc)
	require.NoError(t, err)

	nullDate := func(d *time.Time) sql.NullTime {
		if d == nil {
			return sql.NullTime{}
		}
		return sql.NullTime{Time: *d, Valid: true}
	}
	numeric := func(m values.Money) string {
		v, err := m.Value()
		require.NoError(t, err)
		return v.(string)
	}

	return fakeRow{vals: []interface{}{
		doc.ID, doc.Kind.String(), doc.Number, doc.CounterpartyID, doc.Status.String(),
		json.RawMessage(lineItems), json.RawMessage(charges), json.RawMessage(totals),
		numeric(doc.AmountPaid), numeric(doc.BalanceDue),
		string(doc.PaymentTerms), doc.CustomTermDays,
		doc.IssueDate, nullDate(doc.DueDate), nullDate(doc.ExpiryDate),
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	}}
}

func storedInvoice(t *testing.T) *billing.FinancialDocument {
	t.Helper()

	itemID := uuid.New()
	items := []billing.LineItem{
		{
			ID:         uuid.New(),
			ItemID:     &itemID,
			Name:       "Widget",
			Quantity:   decimal.RequireFromString("1.5"),
			Unit:       "pcs",
			Rate:       values.MustNewMoneyFromString("333.33"),
			Discount:   billing.Discount{Type: billing.DiscountPercent, Value: decimal.RequireFromString("10")},
			TaxPercent: decimal.NewFromInt(18),
			HSNCode:    "8471",
		},
		{
			ID:           uuid.New(),
			Name:         "Freight",
			Quantity:     decimal.NewFromInt(1),
			Unit:         "job",
			Rate:         values.MustNewMoneyFromString("250"),
			Discount:     billing.Discount{Type: billing.DiscountAmount, Value: decimal.RequireFromString("25")},
			TaxPercent:   decimal.NewFromInt(12),
			IsInterstate: true,
		},
	}
	charges := billing.DocumentCharges{
		Discount:       billing.Discount{Type: billing.DiscountPercent, Value: decimal.RequireFromString("5")},
		ShippingCharge: values.MustNewMoneyFromString("50"),
		Adjustment:     values.MustNewMoneyFromString("-0.37"),
	}

	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc, err := billing.NewDocument(billing.KindInvoice, "INV-7", uuid.New(), items, charges, billing.TermsNet30, 0, issue)
	require.NoError(t, err)

	_, err = doc.Transition(billing.ActionApprove)
	require.NoError(t, err)
	payment, err := billing.NewPayment(doc.ID, values.MustNewMoneyFromString("100"), issue, billing.PaymentModeUPI, "TXN-9")
	require.NoError(t, err)
	_, err = doc.ApplyPayment(payment)
	require.NoError(t, err)
	return doc
}

// A marshal-then-scan cycle must lose nothing: monetary strings,
// discount kinds, line flags and nullable dates all survive untouched.
func TestDocumentRowRoundTrip(t *testing.T) {
	doc := storedInvoice(t)

	got, err := scanDocument(rowFor(t, doc))
	require.NoError(t, err)

	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, billing.KindInvoice, got.Kind)
	assert.Equal(t, doc.Number, got.Number)
	assert.Equal(t, doc.CounterpartyID, got.CounterpartyID)
	assert.Equal(t, billing.StatusPartialPaid, got.Status)
	assert.Equal(t, billing.TermsNet30, got.PaymentTerms)
	assert.Equal(t, doc.Version, got.Version)

	assert.True(t, got.AmountPaid.Equal(doc.AmountPaid), "amount_paid %s != %s", got.AmountPaid, doc.AmountPaid)
	assert.True(t, got.BalanceDue.Equal(doc.BalanceDue), "balance_due %s != %s", got.BalanceDue, doc.BalanceDue)

	require.Len(t, got.LineItems, 2)
	for i, want := range doc.LineItems {
		line := got.LineItems[i]
		assert.Equal(t, want.ID, line.ID)
		assert.Equal(t, want.ItemID, line.ItemID)
		assert.Equal(t, want.Name, line.Name)
		assert.True(t, line.Quantity.Equal(want.Quantity), "quantity %s != %s", line.Quantity, want.Quantity)
		assert.True(t, line.Rate.Equal(want.Rate), "rate %s != %s", line.Rate, want.Rate)
		assert.Equal(t, want.Discount.Type, line.Discount.Type)
		assert.True(t, line.Discount.Value.Equal(want.Discount.Value))
		assert.True(t, line.TaxPercent.Equal(want.TaxPercent))
		assert.Equal(t, want.HSNCode, line.HSNCode)
		assert.Equal(t, want.IsInterstate, line.IsInterstate)
	}

	assert.Equal(t, billing.DiscountPercent, got.Charges.Discount.Type)
	assert.True(t, got.Charges.Discount.Value.Equal(doc.Charges.Discount.Value))
	assert.True(t, got.Charges.ShippingCharge.Equal(doc.Charges.ShippingCharge))
	assert.True(t, got.Charges.Adjustment.Equal(doc.Charges.Adjustment))

	assert.True(t, got.Totals.GrandTotal.Equal(doc.Totals.GrandTotal), "grand_total %s != %s", got.Totals.GrandTotal, doc.Totals.GrandTotal)
	assert.True(t, got.Totals.TaxBreakdown.CGST.Equal(doc.Totals.TaxBreakdown.CGST))
	assert.True(t, got.Totals.TaxBreakdown.SGST.Equal(doc.Totals.TaxBreakdown.SGST))
	assert.True(t, got.Totals.TaxBreakdown.IGST.Equal(doc.Totals.TaxBreakdown.IGST))

	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(*doc.DueDate))
	assert.Nil(t, got.ExpiryDate)
}

func TestEstimateRowKeepsExpiryDate(t *testing.T) {
	items := []billing.LineItem{{
		ID:         uuid.New(),
		Name:       "Consulting",
		Quantity:   decimal.NewFromInt(2),
		Unit:       "hrs",
		Rate:       values.MustNewMoneyFromString("1200"),
		Discount:   billing.NoDiscount(),
		TaxPercent: decimal.NewFromInt(18),
	}}

	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc, err := billing.NewDocument(billing.KindEstimate, "EST-3", uuid.New(), items, billing.DocumentCharges{
		Discount:       billing.NoDiscount(),
		ShippingCharge: values.Zero(),
		Adjustment:     values.Zero(),
	}, billing.TermsNet15, 0, issue)
	require.NoError(t, err)

	got, err := scanDocument(rowFor(t, doc))
	require.NoError(t, err)

	assert.Equal(t, billing.KindEstimate, got.Kind)
	require.NotNil(t, got.ExpiryDate)
	assert.True(t, got.ExpiryDate.Equal(*doc.ExpiryDate))
	assert.Nil(t, got.DueDate)
	assert.True(t, got.BalanceDue.Equal(doc.Totals.GrandTotal))
}
