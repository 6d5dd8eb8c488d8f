package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/errors"
)

// PaymentRepository implements the billing service's PaymentStore over
// PostgreSQL. The table is append-only; there is no update or delete.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create appends a payment record
func (r *PaymentRepository) Create(ctx context.Context, p *billing.Payment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (
			id, document_id, amount, paid_on, mode, reference, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.DocumentID, p.Amount, p.Date, string(p.Mode), p.Reference, p.CreatedAt)

	if err != nil {
		return errors.NewInternalError("failed to create payment").WithCause(err)
	}
	return nil
}

// ListByDocument returns a document's payments in the order they were
// recorded.
func (r *PaymentRepository) ListByDocument(ctx context.Context, docID uuid.UUID) ([]*billing.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, amount, paid_on, mode, reference, created_at
		FROM payments
		WHERE document_id = $1
		ORDER BY created_at
	`, docID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list payments").WithCause(err)
	}
	defer rows.Close()

	var payments []*billing.Payment
	for rows.Next() {
		var p billing.Payment
		var mode string
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Amount, &p.Date, &mode, &p.Reference, &p.CreatedAt); err != nil {
			return nil, errors.NewInternalError("failed to scan payment").WithCause(err)
		}
		p.Mode = billing.PaymentMode(mode)
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("failed to iterate payments").WithCause(err)
	}
	return payments, nil
}
