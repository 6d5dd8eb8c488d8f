package reporting

import (
	"context"
	"time"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/values"
)

// Service is the read-side reporting boundary. All reads operate on
// point-in-time snapshots supplied by the store; they never contend
// with the write path.
type Service interface {
	ReceivablesAging(ctx context.Context, asOf time.Time) (AgingReport, error)
	PayablesAging(ctx context.Context, asOf time.Time) (AgingReport, error)
	EstimateFunnel(ctx context.Context) (FunnelRates, error)
	OutstandingSummary(ctx context.Context, kind billing.DocumentKind, asOf time.Time) (OutstandingSummary, error)
}

// DocumentReader supplies reporting snapshots.
type DocumentReader interface {
	// ListOutstanding returns non-terminal documents of the kind with a
	// positive balance due.
	ListOutstanding(ctx context.Context, kind billing.DocumentKind) ([]*billing.FinancialDocument, error)
	// CountFunnel returns the estimate pipeline stage counts. A stage
	// counts every document that reached it, not just those sitting in
	// it (an accepted estimate still counts as sent).
	CountFunnel(ctx context.Context) (FunnelCounts, error)
}

// OutstandingSummary is the headline receivables/payables card.
type OutstandingSummary struct {
	TotalOutstanding values.Money `json:"total_outstanding"`
	TotalOverdue     values.Money `json:"total_overdue"`
	OpenCount        int64        `json:"open_count"`
	OverdueCount     int64        `json:"overdue_count"`
}

type service struct {
	docs DocumentReader
}

// NewService creates a new reporting service.
func NewService(docs DocumentReader) Service {
	return &service{docs: docs}
}

// ReceivablesAging buckets customer invoices by days overdue.
func (s *service) ReceivablesAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	docs, err := s.docs.ListOutstanding(ctx, billing.KindInvoice)
	if err != nil {
		return AgingReport{}, err
	}
	return BucketAging(docs, asOf), nil
}

// PayablesAging buckets vendor bills by days overdue.
func (s *service) PayablesAging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	docs, err := s.docs.ListOutstanding(ctx, billing.KindBill)
	if err != nil {
		return AgingReport{}, err
	}
	return BucketAging(docs, asOf), nil
}

// EstimateFunnel rolls the estimate pipeline up into conversion rates.
func (s *service) EstimateFunnel(ctx context.Context) (FunnelRates, error) {
	counts, err := s.docs.CountFunnel(ctx)
	if err != nil {
		return FunnelRates{}, err
	}
	return AggregateFunnel(counts), nil
}

// OutstandingSummary totals the open and overdue balances for a kind.
func (s *service) OutstandingSummary(ctx context.Context, kind billing.DocumentKind, asOf time.Time) (OutstandingSummary, error) {
	docs, err := s.docs.ListOutstanding(ctx, kind)
	if err != nil {
		return OutstandingSummary{}, err
	}

	summary := OutstandingSummary{
		TotalOutstanding: values.Zero(),
		TotalOverdue:     values.Zero(),
	}
	for _, doc := range docs {
		if !doc.BalanceDue.IsPositive() {
			continue
		}
		summary.TotalOutstanding = summary.TotalOutstanding.Add(doc.BalanceDue)
		summary.OpenCount++
		if doc.IsOverdue(asOf) {
			summary.TotalOverdue = summary.TotalOverdue.Add(doc.BalanceDue)
			summary.OverdueCount++
		}
	}
	return summary, nil
}
