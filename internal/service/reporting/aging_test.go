package reporting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/values"
)

func outstandingDoc(party uuid.UUID, balance string, due time.Time) *billing.FinancialDocument {
	return &billing.FinancialDocument{
		ID:             uuid.New(),
		Kind:           billing.KindInvoice,
		CounterpartyID: party,
		Status:         billing.StatusApproved,
		BalanceDue:     values.MustNewMoneyFromString(balance),
		DueDate:        &due,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketAging(t *testing.T) {
	asOf := date(2024, 3, 1)
	party := uuid.New()

	docs := []*billing.FinancialDocument{
		outstandingDoc(party, "100", date(2024, 3, 10)),  // not yet due
		outstandingDoc(party, "200", date(2024, 2, 20)),  // 10 days
		outstandingDoc(party, "300", date(2024, 1, 15)),  // 46 days
		outstandingDoc(party, "400", date(2023, 12, 15)), // 77 days
		outstandingDoc(party, "500", date(2023, 10, 1)),  // 152 days
	}

	report := BucketAging(docs, asOf)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, "100.00", row.Current.Amount().StringFixed(2))
	assert.Equal(t, "200.00", row.D1To30.Amount().StringFixed(2))
	assert.Equal(t, "300.00", row.D31To60.Amount().StringFixed(2))
	assert.Equal(t, "400.00", row.D61To90.Amount().StringFixed(2))
	assert.Equal(t, "500.00", row.D90Plus.Amount().StringFixed(2))
	assert.Equal(t, "1500.00", row.Total.Amount().StringFixed(2))

	assert.Equal(t, row.Total.Amount().String(), report.GrandTotal.Total.Amount().String())
}

func TestBucketAgingBoundaries(t *testing.T) {
	asOf := date(2024, 3, 1)

	tests := []struct {
		name   string
		due    time.Time
		bucket func(AgingRow) values.Money
	}{
		{"due today is current", date(2024, 3, 1), func(r AgingRow) values.Money { return r.Current }},
		{"one day overdue", date(2024, 2, 29), func(r AgingRow) values.Money { return r.D1To30 }},
		{"exactly 30 days", date(2024, 1, 31), func(r AgingRow) values.Money { return r.D1To30 }},
		{"31 days", date(2024, 1, 30), func(r AgingRow) values.Money { return r.D31To60 }},
		{"exactly 60 days", date(2024, 1, 1), func(r AgingRow) values.Money { return r.D31To60 }},
		{"exactly 90 days", date(2023, 12, 2), func(r AgingRow) values.Money { return r.D61To90 }},
		{"91 days", date(2023, 12, 1), func(r AgingRow) values.Money { return r.D90Plus }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := BucketAging([]*billing.FinancialDocument{
				outstandingDoc(uuid.New(), "100", tt.due),
			}, asOf)
			require.Len(t, report.Rows, 1)
			assert.Equal(t, "100.00", tt.bucket(report.Rows[0]).Amount().StringFixed(2))
		})
	}
}

func TestBucketAgingSkipsSettled(t *testing.T) {
	asOf := date(2024, 3, 1)
	due := date(2024, 1, 1)

	paid := outstandingDoc(uuid.New(), "100", due)
	paid.Status = billing.StatusPaid
	cancelled := outstandingDoc(uuid.New(), "100", due)
	cancelled.Status = billing.StatusCancelled
	zeroBalance := outstandingDoc(uuid.New(), "0", due)

	report := BucketAging([]*billing.FinancialDocument{paid, cancelled, zeroBalance}, asOf)
	assert.Empty(t, report.Rows)
	assert.True(t, report.GrandTotal.Total.IsZero())
}

// Bucketing is a partition of the outstanding balances: for any input,
// the buckets sum to the row total and the rows sum to the grand total
// with no paisa leaking.
func TestBucketAgingPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	asOf := date(2024, 3, 1)

	parties := make([]uuid.UUID, 7)
	for i := range parties {
		parties[i] = uuid.New()
	}

	docs := make([]*billing.FinancialDocument, 0, 200)
	for i := 0; i < 200; i++ {
		due := asOf.AddDate(0, 0, rng.Intn(241)-120) // -120..+120 days
		balance := values.NewMoneyFromPaise(rng.Int63n(10_000_00) + 1)
		doc := outstandingDoc(parties[rng.Intn(len(parties))], "0", due)
		doc.BalanceDue = balance
		docs = append(docs, doc)
	}

	report := BucketAging(docs, asOf)

	rowSum := values.Zero()
	for _, row := range report.Rows {
		bucketSum := row.Current.Add(row.D1To30).Add(row.D31To60).Add(row.D61To90).Add(row.D90Plus)
		require.True(t, bucketSum.Equal(row.Total), "buckets must partition the row total")
		rowSum = rowSum.Add(row.Total)
	}
	require.True(t, rowSum.Equal(report.GrandTotal.Total), "rows must sum to the grand total")

	expected := values.Zero()
	for _, doc := range docs {
		expected = expected.Add(doc.BalanceDue)
	}
	require.True(t, expected.Equal(report.GrandTotal.Total))
}

func TestBucketAgingRowsSorted(t *testing.T) {
	asOf := date(2024, 3, 1)
	docs := make([]*billing.FinancialDocument, 0, 10)
	for i := 0; i < 10; i++ {
		docs = append(docs, outstandingDoc(uuid.New(), "50", date(2024, 1, 1)))
	}

	report := BucketAging(docs, asOf)
	require.Len(t, report.Rows, 10)
	for i := 1; i < len(report.Rows); i++ {
		assert.Less(t, report.Rows[i-1].CounterpartyID.String(), report.Rows[i].CounterpartyID.String())
	}
}
