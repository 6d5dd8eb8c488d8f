package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domain "bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/domain/pricing"
	"bizbooks-backend/internal/domain/values"
)

// Settings carries the tenant-wide billing defaults.
type Settings struct {
	RoundOff     pricing.RoundOffPolicy
	DefaultTerms domain.PaymentTerms
}

// service implements the Service interface
type service struct {
	catalog    ItemCatalog
	priceLists PriceListDirectory
	documents  DocumentStore
	payments   PaymentStore
	settings   Settings
	logger     *slog.Logger
	validate   *validator.Validate
}

// NewService creates a new billing service.
func NewService(
	catalog ItemCatalog,
	priceLists PriceListDirectory,
	documents DocumentStore,
	payments PaymentStore,
	settings Settings,
	logger *slog.Logger,
) Service {
	if settings.DefaultTerms == "" {
		settings.DefaultTerms = domain.TermsDueOnReceipt
	}
	return &service{
		catalog:    catalog,
		priceLists: priceLists,
		documents:  documents,
		payments:   payments,
		settings:   settings,
		logger:     logger,
		validate:   validator.New(),
	}
}

// ComputeLine prices a single line without touching any store. The
// same computation backs document creation, so a client previewing a
// line sees exactly what will be submitted.
func (s *service) ComputeLine(input LineItemInput) (domain.LineComputation, error) {
	return domain.ComputeLine(s.toLineItem(input))
}

// PreviewTotals aggregates a full document preview without persisting.
func (s *service) PreviewTotals(inputs []LineItemInput, charges ChargesInput) (domain.DocumentTotals, error) {
	comps := make([]domain.LineComputation, 0, len(inputs))
	for _, in := range inputs {
		comp, err := domain.ComputeLine(s.toLineItem(in))
		if err != nil {
			return domain.DocumentTotals{}, err
		}
		comps = append(comps, comp)
	}
	return domain.ComputeDocumentTotals(comps, toCharges(charges))
}

// ResolvePrice resolves the effective rate for an item/customer pair.
// Unknown items surface ErrItemNotFound; callers degrade to the rate
// they already hold rather than blocking entry.
func (s *service) ResolvePrice(ctx context.Context, itemID, customerID uuid.UUID) (pricing.Resolution, error) {
	item, err := s.catalog.ItemByID(ctx, itemID)
	if err != nil {
		return pricing.Resolution{}, err
	}

	list, err := s.priceLists.ListForCustomer(ctx, customerID)
	if err != nil {
		return pricing.Resolution{}, err
	}

	return pricing.Resolve(list, itemID, item.Rate, s.settings.RoundOff), nil
}

// CreateDocument prices the input lines (consulting the catalog and
// the customer's price list for cataloged items) and persists a draft.
func (s *service) CreateDocument(ctx context.Context, input DocumentInput) (*domain.FinancialDocument, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.NewValidationError("INVALID_DOCUMENT_INPUT", "invalid document input").WithCause(err)
	}

	kind, err := domain.ParseKind(input.Kind)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_DOCUMENT_INPUT", err.Error())
	}

	list, err := s.priceLists.ListForCustomer(ctx, input.CounterpartyID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(input.Lines))
	for _, in := range input.Lines {
		items = append(items, s.resolveLine(ctx, in, list))
	}

	terms := domain.PaymentTerms(input.PaymentTerms)
	if terms == "" {
		terms = s.settings.DefaultTerms
	}
	issue := input.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}

	doc, err := domain.NewDocument(kind, input.Number, input.CounterpartyID, items, toCharges(input.Charges), terms, input.CustomTermDays, issue)
	if err != nil {
		return nil, err
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "document created",
		"document_id", doc.ID,
		"kind", doc.Kind.String(),
		"number", doc.Number,
		"grand_total", doc.Totals.GrandTotal.StringWithCode(),
	)
	return doc, nil
}

// resolveLine fills catalog defaults and the price-list rate for a
// cataloged line. A stale item id degrades to the inline values with a
// warning instead of blocking entry.
func (s *service) resolveLine(ctx context.Context, in LineItemInput, list *pricing.PriceList) domain.LineItem {
	item := s.toLineItem(in)
	if in.ItemID == nil {
		return item
	}

	catalogItem, err := s.catalog.ItemByID(ctx, *in.ItemID)
	if err != nil {
		s.logger.WarnContext(ctx, "item not in catalog, using inline rate",
			"item_id", *in.ItemID,
			"name", in.Name,
			"error", err,
		)
		return item
	}

	if item.Name == "" {
		item.Name = catalogItem.Name
	}
	if item.Unit == "" {
		item.Unit = catalogItem.Unit
	}
	if item.HSNCode == "" {
		item.HSNCode = catalogItem.HSNCode
	}
	if item.TaxPercent.IsZero() {
		item.TaxPercent = catalogItem.TaxPercent
	}

	res := pricing.Resolve(list, *in.ItemID, catalogItem.Rate, s.settings.RoundOff)
	item.Rate = res.EffectiveRate
	if res.Source != pricing.SourceCatalog {
		s.logger.DebugContext(ctx, "price list applied",
			"item_id", *in.ItemID,
			"source", res.Source.String(),
			"price_list", res.PriceListName,
			"effective_rate", res.EffectiveRate.StringWithCode(),
		)
	}
	return item
}

// ReplaceLines swaps a draft document's line collection wholesale.
func (s *service) ReplaceLines(ctx context.Context, docID uuid.UUID, inputs []LineItemInput, charges ChargesInput) (*domain.FinancialDocument, error) {
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	list, err := s.priceLists.ListForCustomer(ctx, doc.CounterpartyID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, s.resolveLine(ctx, in, list))
	}

	if err := doc.ReplaceLineItems(items, toCharges(charges)); err != nil {
		return nil, err
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Transition applies a lifecycle action and persists the result. The
// returned side effects are authorizations for the caller's
// collaborators; the engine performs none of them.
func (s *service) Transition(ctx context.Context, docID uuid.UUID, action domain.Action) (domain.TransitionResult, error) {
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	result, err := doc.Transition(action)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return domain.TransitionResult{}, err
	}

	s.logger.InfoContext(ctx, "document transitioned",
		"document_id", doc.ID,
		"action", action.String(),
		"from", result.From.String(),
		"to", result.To.String(),
	)
	return result, nil
}

// ApplyPayment records a payment against a document, moving it to
// partial_paid or paid.
func (s *service) ApplyPayment(ctx context.Context, docID uuid.UUID, input PaymentInput) (*domain.FinancialDocument, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.NewValidationError("INVALID_PAYMENT_INPUT", "invalid payment input").WithCause(err)
	}

	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	mode := domain.PaymentMode(input.Mode)
	if mode == "" {
		mode = domain.PaymentModeBankTransfer
	}
	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	payment, err := domain.NewPayment(docID, values.NewMoney(input.Amount), date, mode, input.Reference)
	if err != nil {
		return nil, err
	}

	result, err := doc.ApplyPayment(payment)
	if err != nil {
		return nil, err
	}

	// The payment row lands first; the version bump on the document
	// keeps a concurrent writer from applying against a stale balance.
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment applied",
		"document_id", doc.ID,
		"payment_id", payment.ID,
		"amount", payment.Amount.StringWithCode(),
		"status", result.To.String(),
		"balance_due", doc.BalanceDue.StringWithCode(),
	)
	return doc, nil
}

// DeleteDocument removes a draft. Anything past draft must be voided
// or cancelled instead.
func (s *service) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if !doc.CanDelete() {
		return errors.ErrIllegalTransition.WithDetails(map[string]interface{}{
			"status": doc.Status.String(),
			"action": "delete",
		})
	}
	return s.documents.Delete(ctx, docID)
}

// ExpireDueEstimates finds open estimates past their expiry date and
// applies the automatic expire transition. Returns the number expired.
func (s *service) ExpireDueEstimates(ctx context.Context, asOf time.Time) (int, error) {
	docs, err := s.documents.ListExpirableEstimates(ctx, asOf)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, doc := range docs {
		if !doc.IsExpired(asOf) {
			continue
		}
		if _, err := doc.Transition(domain.ActionExpire); err != nil {
			// Estimates in a state expire does not cover (e.g. just
			// accepted by a racing writer) are simply skipped.
			continue
		}
		if err := s.documents.Update(ctx, doc); err != nil {
			return expired, err
		}
		expired++
		s.logger.InfoContext(ctx, "estimate expired", "document_id", doc.ID, "number", doc.Number)
	}
	return expired, nil
}

func (s *service) toLineItem(in LineItemInput) domain.LineItem {
	return domain.LineItem{
		ID:           uuid.New(),
		ItemID:       in.ItemID,
		Name:         in.Name,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		Rate:         values.NewMoney(in.Rate),
		Discount:     in.Discount,
		TaxPercent:   in.TaxPercent,
		HSNCode:      in.HSNCode,
		IsInterstate: in.IsInterstate,
	}
}

func toCharges(in ChargesInput) domain.DocumentCharges {
	return domain.DocumentCharges{
		Discount:       in.Discount,
		ShippingCharge: values.NewMoney(in.ShippingCharge),
		Adjustment:     values.NewMoney(in.Adjustment),
	}
}
