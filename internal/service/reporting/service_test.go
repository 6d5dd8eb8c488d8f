package reporting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizbooks-backend/internal/domain/billing"
)

type fakeReader struct {
	byKind map[billing.DocumentKind][]*billing.FinancialDocument
	funnel FunnelCounts
}

func (f *fakeReader) ListOutstanding(_ context.Context, kind billing.DocumentKind) ([]*billing.FinancialDocument, error) {
	return f.byKind[kind], nil
}

func (f *fakeReader) CountFunnel(_ context.Context) (FunnelCounts, error) {
	return f.funnel, nil
}

func TestReceivablesAndPayablesAging(t *testing.T) {
	asOf := date(2024, 3, 1)
	customer := uuid.New()
	vendor := uuid.New()

	reader := &fakeReader{byKind: map[billing.DocumentKind][]*billing.FinancialDocument{
		billing.KindInvoice: {outstandingDoc(customer, "750", date(2024, 1, 15))},
		billing.KindBill:    {outstandingDoc(vendor, "320", date(2024, 2, 25))},
	}}
	svc := NewService(reader)

	recv, err := svc.ReceivablesAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, recv.Rows, 1)
	assert.Equal(t, customer, recv.Rows[0].CounterpartyID)
	assert.Equal(t, "750.00", recv.Rows[0].D31To60.Amount().StringFixed(2))

	pay, err := svc.PayablesAging(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, pay.Rows, 1)
	assert.Equal(t, vendor, pay.Rows[0].CounterpartyID)
	assert.Equal(t, "320.00", pay.Rows[0].D1To30.Amount().StringFixed(2))
}

func TestEstimateFunnel(t *testing.T) {
	reader := &fakeReader{funnel: FunnelCounts{Created: 10, Sent: 8, Accepted: 4, Converted: 3}}
	svc := NewService(reader)

	rates, err := svc.EstimateFunnel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(80), rates.SendRate)
	assert.Equal(t, int64(50), rates.AcceptanceRate)
	assert.Equal(t, int64(75), rates.ConversionRate)
}

func TestOutstandingSummary(t *testing.T) {
	asOf := date(2024, 3, 1)
	vendor := uuid.New()

	overdue := outstandingDoc(vendor, "1000", date(2024, 1, 1))
	current := outstandingDoc(vendor, "400", date(2024, 3, 20))
	reader := &fakeReader{byKind: map[billing.DocumentKind][]*billing.FinancialDocument{
		billing.KindBill: {overdue, current},
	}}
	svc := NewService(reader)

	summary, err := svc.OutstandingSummary(context.Background(), billing.KindBill, asOf)
	require.NoError(t, err)
	assert.Equal(t, "1400.00", summary.TotalOutstanding.Amount().StringFixed(2))
	assert.Equal(t, "1000.00", summary.TotalOverdue.Amount().StringFixed(2))
	assert.Equal(t, int64(2), summary.OpenCount)
	assert.Equal(t, int64(1), summary.OverdueCount)
}
