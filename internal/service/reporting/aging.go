package reporting

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/values"
)

// AgingRow buckets one counterparty's outstanding balances by days
// overdue. The buckets partition the balances: they always sum to
// Total exactly, because each document lands in one bucket whole.
type AgingRow struct {
	CounterpartyID uuid.UUID    `json:"entity_id"`
	Current        values.Money `json:"current"`
	D1To30         values.Money `json:"d1_30"`
	D31To60        values.Money `json:"d31_60"`
	D61To90        values.Money `json:"d61_90"`
	D90Plus        values.Money `json:"d90_plus"`
	Total          values.Money `json:"total"`
}

func emptyRow(id uuid.UUID) AgingRow {
	return AgingRow{
		CounterpartyID: id,
		Current:        values.Zero(),
		D1To30:         values.Zero(),
		D31To60:        values.Zero(),
		D61To90:        values.Zero(),
		D90Plus:        values.Zero(),
		Total:          values.Zero(),
	}
}

func (r *AgingRow) add(balance values.Money, daysOverdue int) {
	switch {
	case daysOverdue == 0:
		r.Current = r.Current.Add(balance)
	case daysOverdue <= 30:
		r.D1To30 = r.D1To30.Add(balance)
	case daysOverdue <= 60:
		r.D31To60 = r.D31To60.Add(balance)
	case daysOverdue <= 90:
		r.D61To90 = r.D61To90.Add(balance)
	default:
		r.D90Plus = r.D90Plus.Add(balance)
	}
	r.Total = r.Total.Add(balance)
}

// AgingReport is the per-counterparty rows plus a grand-total row.
// Reports are ephemeral: recomputed from the live set of unpaid
// documents on every request, never persisted.
type AgingReport struct {
	AsOf       time.Time  `json:"as_of"`
	Rows       []AgingRow `json:"rows"`
	GrandTotal AgingRow   `json:"grand_total"`
}

// BucketAging classifies every document with an outstanding balance
// into aging buckets relative to asOf. Documents with no balance due
// are skipped. Rows come back ordered by counterparty id for stable
// report rendering.
func BucketAging(docs []*billing.FinancialDocument, asOf time.Time) AgingReport {
	byParty := make(map[uuid.UUID]*AgingRow)
	grand := emptyRow(uuid.Nil)

	for _, doc := range docs {
		if !doc.BalanceDue.IsPositive() {
			continue
		}
		if doc.Status == billing.StatusPaid || doc.Status == billing.StatusCancelled || doc.Status == billing.StatusVoid {
			continue
		}

		row, ok := byParty[doc.CounterpartyID]
		if !ok {
			r := emptyRow(doc.CounterpartyID)
			row = &r
			byParty[doc.CounterpartyID] = row
		}

		days := doc.DaysOverdue(asOf)
		row.add(doc.BalanceDue, days)
		grand.add(doc.BalanceDue, days)
	}

	rows := make([]AgingRow, 0, len(byParty))
	for _, row := range byParty {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CounterpartyID.String() < rows[j].CounterpartyID.String()
	})

	return AgingReport{AsOf: asOf, Rows: rows, GrandTotal: grand}
}
