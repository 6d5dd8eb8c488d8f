package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/domain/values"
)

// PaymentTerms derives a due date from the issue date.
type PaymentTerms string

const (
	TermsDueOnReceipt    PaymentTerms = "due_on_receipt"
	TermsNet15           PaymentTerms = "net_15"
	TermsNet30           PaymentTerms = "net_30"
	TermsNet45           PaymentTerms = "net_45"
	TermsNet60           PaymentTerms = "net_60"
	TermsDueMonthEnd     PaymentTerms = "due_month_end"
	TermsDueNextMonthEnd PaymentTerms = "due_next_month_end"
	TermsCustom          PaymentTerms = "custom"
)

// DueDateFor computes the due date for the given terms. customDays is
// only consulted for TermsCustom.
func DueDateFor(terms PaymentTerms, customDays int, issue time.Time) time.Time {
	switch terms {
	case TermsNet15:
		return issue.AddDate(0, 0, 15)
	case TermsNet30:
		return issue.AddDate(0, 0, 30)
	case TermsNet45:
		return issue.AddDate(0, 0, 45)
	case TermsNet60:
		return issue.AddDate(0, 0, 60)
	case TermsDueMonthEnd:
		return endOfMonth(issue)
	case TermsDueNextMonthEnd:
		return endOfMonth(issue.AddDate(0, 1, 0))
	case TermsCustom:
		return issue.AddDate(0, 0, customDays)
	default:
		return issue
	}
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// DocumentCharges are the document-level amounts applied on top of the
// line computations.
type DocumentCharges struct {
	Discount       Discount     `json:"discount"`
	ShippingCharge values.Money `json:"shipping_charge"`
	Adjustment     values.Money `json:"adjustment"`
}

// DocumentTotals is the aggregated monetary state of a document.
type DocumentTotals struct {
	Subtotal       values.Money `json:"subtotal"`
	DiscountAmount values.Money `json:"discount_amount"`
	TaxBreakdown   TaxBreakdown `json:"tax_breakdown"`
	TaxTotal       values.Money `json:"tax_total"`
	ShippingCharge values.Money `json:"shipping_charge"`
	Adjustment     values.Money `json:"adjustment"`
	GrandTotal     values.Money `json:"grand_total"`
}

// ComputeDocumentTotals aggregates priced lines and document charges.
// Line discounts have already been applied inside each computation; the
// document discount comes off the summed taxable amount and does not
// re-derive per-line tax, so the stored breakdown stays the sum of the
// line splits.
func ComputeDocumentTotals(comps []LineComputation, charges DocumentCharges) (DocumentTotals, error) {
	subtotal := values.Zero()
	lineTotal := values.Zero()
	breakdown := TaxBreakdown{CGST: values.Zero(), SGST: values.Zero(), IGST: values.Zero()}

	for _, c := range comps {
		subtotal = subtotal.Add(c.Taxable)
		lineTotal = lineTotal.Add(c.Total)
		breakdown = breakdown.Add(c.Breakdown)
	}

	discount := charges.Discount.AmountOff(subtotal)
	grand := lineTotal.Sub(discount).Add(charges.ShippingCharge).Add(charges.Adjustment)

	if grand.IsNegative() {
		return DocumentTotals{}, errors.ErrInvalidTotals.WithDetails(map[string]interface{}{
			"grand_total": grand.Amount().String(),
		})
	}

	return DocumentTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxBreakdown:   breakdown,
		TaxTotal:       breakdown.Total(),
		ShippingCharge: charges.ShippingCharge,
		Adjustment:     charges.Adjustment,
		GrandTotal:     grand,
	}, nil
}

// FinancialDocument is the aggregate for estimates, invoices and bills.
// It is created in draft and mutated only through lifecycle transitions
// and payment application; once a terminal status is reached the line
// items and monetary fields are read-only.
type FinancialDocument struct {
	ID             uuid.UUID       `json:"id"`
	Kind           DocumentKind    `json:"kind"`
	Number         string          `json:"number"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Status         Status          `json:"status"`
	LineItems      []LineItem      `json:"line_items"`
	Charges        DocumentCharges `json:"charges"`
	Totals         DocumentTotals  `json:"totals"`
	AmountPaid     values.Money    `json:"amount_paid"`
	BalanceDue     values.Money    `json:"balance_due"`
	PaymentTerms   PaymentTerms    `json:"payment_terms"`
	CustomTermDays int             `json:"custom_term_days,omitempty"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewDocument prices the line items, aggregates totals and returns a
// draft document. Estimates get an expiry date instead of a due date.
func NewDocument(kind DocumentKind, number string, counterpartyID uuid.UUID, items []LineItem, charges DocumentCharges, terms PaymentTerms, customTermDays int, issueDate time.Time) (*FinancialDocument, error) {
	if counterpartyID == uuid.Nil {
		return nil, fmt.Errorf("counterparty ID cannot be nil")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("document needs at least one line item")
	}

	totals, err := priceAndTotal(items, charges)
	if err != nil {
		return nil, err
	}

	now := now()
	doc := &FinancialDocument{
		ID:             uuid.New(),
		Kind:           kind,
		Number:         number,
		CounterpartyID: counterpartyID,
		Status:         StatusDraft,
		LineItems:      items,
		Charges:        charges,
		Totals:         totals,
		AmountPaid:     values.Zero(),
		BalanceDue:     totals.GrandTotal,
		PaymentTerms:   terms,
		CustomTermDays: customTermDays,
		IssueDate:      issueDate,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	due := DueDateFor(terms, customTermDays, issueDate)
	if kind == KindEstimate {
		doc.ExpiryDate = &due
	} else {
		doc.DueDate = &due
	}

	return doc, nil
}

func priceAndTotal(items []LineItem, charges DocumentCharges) (DocumentTotals, error) {
	comps := make([]LineComputation, 0, len(items))
	for _, item := range items {
		comp, err := ComputeLine(item)
		if err != nil {
			return DocumentTotals{}, err
		}
		comps = append(comps, comp)
	}
	return ComputeDocumentTotals(comps, charges)
}

// ReplaceLineItems swaps the whole line collection and recomputes
// totals. Lines are never patched in place. Only legal while the
// document has not been paid against or reached a terminal state.
func (d *FinancialDocument) ReplaceLineItems(items []LineItem, charges DocumentCharges) error {
	if d.Status.IsTerminal() {
		return errors.ErrDocumentImmutable.WithDetails(map[string]interface{}{
			"status": d.Status.String(),
		})
	}
	if d.AmountPaid.IsPositive() {
		return errors.ErrDocumentImmutable.WithDetails(map[string]interface{}{
			"reason": "payments already applied",
		})
	}
	if len(items) == 0 {
		return fmt.Errorf("document needs at least one line item")
	}

	totals, err := priceAndTotal(items, charges)
	if err != nil {
		return err
	}

	d.LineItems = items
	d.Charges = charges
	d.Totals = totals
	d.BalanceDue = totals.GrandTotal.Sub(d.AmountPaid)
	d.UpdatedAt = now()
	return nil
}

func (d *FinancialDocument) setStatus(s Status) {
	d.Status = s
	d.UpdatedAt = now()
}

// IsOverdue reports whether an unpaid payable is past its due date.
func (d *FinancialDocument) IsOverdue(today time.Time) bool {
	if d.DueDate == nil {
		return false
	}
	if d.Status == StatusPaid || d.Status == StatusCancelled {
		return false
	}
	return d.DueDate.Before(truncateToDay(today))
}

// DisplayStatus returns the status for rendering, substituting the
// derived overdue state for payables past their due date. The stored
// status is never rewritten.
func (d *FinancialDocument) DisplayStatus(today time.Time) Status {
	if d.Kind != KindEstimate && d.IsOverdue(today) {
		return StatusOverdue
	}
	return d.Status
}

// DaysOverdue returns max(0, today-due) in whole days.
func (d *FinancialDocument) DaysOverdue(today time.Time) int {
	if d.DueDate == nil {
		return 0
	}
	days := int(truncateToDay(today).Sub(truncateToDay(*d.DueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// IsExpired reports whether an estimate's expiry date has passed.
func (d *FinancialDocument) IsExpired(today time.Time) bool {
	return d.Kind == KindEstimate && d.ExpiryDate != nil && d.ExpiryDate.Before(truncateToDay(today))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
