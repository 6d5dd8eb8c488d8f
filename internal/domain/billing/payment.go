package billing

import (
	"time"

	"github.com/google/uuid"

	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/domain/values"
)

// PaymentMode is how a payment was made.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeCheque       PaymentMode = "cheque"
	PaymentModeCard         PaymentMode = "card"
)

// Payment is one amount applied against a document's balance. Payments
// are owned by exactly one document and immutable once recorded;
// corrections are new payments, never edits. Reversals are not modeled
// as negative entries - the amount must be strictly positive.
type Payment struct {
	ID         uuid.UUID    `json:"id"`
	DocumentID uuid.UUID    `json:"document_id"`
	Amount     values.Money `json:"amount"`
	Date       time.Time    `json:"date"`
	Mode       PaymentMode  `json:"mode"`
	Reference  string       `json:"reference"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewPayment validates and creates a payment record for a document.
func NewPayment(documentID uuid.UUID, amount values.Money, date time.Time, mode PaymentMode, reference string) (*Payment, error) {
	if documentID == uuid.Nil {
		return nil, errors.ErrInvalidPayment.WithDetails(map[string]interface{}{
			"field": "document_id",
		})
	}
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidPayment.WithDetails(map[string]interface{}{
			"amount": amount.Amount().String(),
		})
	}

	return &Payment{
		ID:         uuid.New(),
		DocumentID: documentID,
		Amount:     amount,
		Date:       date,
		Mode:       mode,
		Reference:  reference,
		CreatedAt:  now(),
	}, nil
}

// ApplyPayment applies a payment against the document's balance and
// drives the resulting status transition. A payment above the balance
// due is rejected and leaves the document unchanged; a payment that
// clears the balance exactly lands on paid, anything less on
// partial_paid.
func (d *FinancialDocument) ApplyPayment(p *Payment) (TransitionResult, error) {
	if p.DocumentID != d.ID {
		return TransitionResult{}, errors.ErrInvalidPayment.WithDetails(map[string]interface{}{
			"document_id": p.DocumentID.String(),
		})
	}
	if !p.Amount.IsPositive() {
		return TransitionResult{}, errors.ErrInvalidPayment.WithDetails(map[string]interface{}{
			"amount": p.Amount.Amount().String(),
		})
	}
	if !d.CanTransition(ActionRecordPayment) {
		return TransitionResult{}, errors.ErrIllegalTransition.WithDetails(map[string]interface{}{
			"kind":   d.Kind.String(),
			"status": d.Status.String(),
			"action": ActionRecordPayment.String(),
		})
	}
	if p.Amount.GreaterThan(d.BalanceDue) {
		return TransitionResult{}, errors.ErrAmountExceedsBalance.WithDetails(map[string]interface{}{
			"amount":      p.Amount.Amount().String(),
			"balance_due": d.BalanceDue.Amount().String(),
		})
	}

	d.AmountPaid = d.AmountPaid.Add(p.Amount)
	d.BalanceDue = d.Totals.GrandTotal.Sub(d.AmountPaid)

	// The ledger mutates first so the transition can pick paid vs.
	// partial_paid off the new balance.
	return d.apply(ActionRecordPayment)
}
