package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/pricing"
	"bizbooks-backend/internal/domain/values"
)

// Service is the write-side boundary of the billing engine: pricing
// previews, document creation and the lifecycle mutations.
type Service interface {
	// Pure computation (also used by clients for previews, so displayed
	// and submitted totals can never drift)
	ComputeLine(input LineItemInput) (domain.LineComputation, error)
	PreviewTotals(inputs []LineItemInput, charges ChargesInput) (domain.DocumentTotals, error)

	// Price resolution
	ResolvePrice(ctx context.Context, itemID, customerID uuid.UUID) (pricing.Resolution, error)

	// Document lifecycle
	CreateDocument(ctx context.Context, input DocumentInput) (*domain.FinancialDocument, error)
	ReplaceLines(ctx context.Context, docID uuid.UUID, inputs []LineItemInput, charges ChargesInput) (*domain.FinancialDocument, error)
	Transition(ctx context.Context, docID uuid.UUID, action domain.Action) (domain.TransitionResult, error)
	ApplyPayment(ctx context.Context, docID uuid.UUID, input PaymentInput) (*domain.FinancialDocument, error)
	DeleteDocument(ctx context.Context, docID uuid.UUID) error

	// Automatic transitions (driven by the lifecycle worker)
	ExpireDueEstimates(ctx context.Context, asOf time.Time) (int, error)
}

// CatalogItem is the item master record the engine consults for base
// rates and tax defaults.
type CatalogItem struct {
	ID         uuid.UUID
	Name       string
	Unit       string
	Rate       values.Money
	TaxPercent decimal.Decimal
	HSNCode    string
}

// ItemCatalog looks up catalog items. Implementations return
// errors.ErrItemNotFound for unknown ids.
type ItemCatalog interface {
	ItemByID(ctx context.Context, id uuid.UUID) (*CatalogItem, error)
}

// PriceListDirectory resolves a customer's assigned price list.
// A customer with no assignment yields (nil, nil).
type PriceListDirectory interface {
	ListForCustomer(ctx context.Context, customerID uuid.UUID) (*pricing.PriceList, error)
}

// DocumentStore persists documents. Update must enforce the document's
// optimistic version so concurrent writers to the same id serialize;
// a stale write returns errors.ErrStaleDocument.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.FinancialDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FinancialDocument, error)
	Update(ctx context.Context, doc *domain.FinancialDocument) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpirableEstimates(ctx context.Context, asOf time.Time) ([]*domain.FinancialDocument, error)
}

// PaymentStore appends payment records. Payments are immutable; there
// is deliberately no update or delete.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]*domain.Payment, error)
}

// LineItemInput is the boundary shape for one document line. When
// ItemID is set the catalog supplies defaults and the customer's price
// list may override the rate; free-form lines carry everything inline.
type LineItemInput struct {
	ItemID       *uuid.UUID      `json:"item_id,omitempty"`
	Name         string          `json:"name" validate:"required_without=ItemID"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	Rate         decimal.Decimal `json:"rate"`
	Discount     domain.Discount `json:"discount"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	HSNCode      string          `json:"hsn_code"`
	IsInterstate bool            `json:"is_interstate"`
}

// ChargesInput is the document-level charges boundary shape.
type ChargesInput struct {
	Discount       domain.Discount `json:"discount"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	Adjustment     decimal.Decimal `json:"adjustment"`
}

// DocumentInput is the boundary shape for creating a document.
type DocumentInput struct {
	Kind           string          `json:"kind" validate:"required,oneof=estimate invoice bill"`
	Number         string          `json:"number" validate:"required"`
	CounterpartyID uuid.UUID       `json:"counterparty_id" validate:"required"`
	Lines          []LineItemInput `json:"lines" validate:"required,min=1,dive"`
	Charges        ChargesInput    `json:"charges"`
	PaymentTerms   string          `json:"payment_terms" validate:"omitempty,oneof=due_on_receipt net_15 net_30 net_45 net_60 due_month_end due_next_month_end custom"`
	CustomTermDays int             `json:"custom_term_days" validate:"gte=0"`
	IssueDate      time.Time       `json:"issue_date"`
}

// PaymentInput is the boundary shape for recording a payment.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Mode      string          `json:"mode" validate:"omitempty,oneof=cash bank_transfer upi cheque card"`
	Reference string          `json:"reference"`
}
