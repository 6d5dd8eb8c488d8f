package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/service/reporting"
)

// DocumentRepository implements the billing service's DocumentStore and
// the reporting service's DocumentReader over PostgreSQL. Line items,
// charges and totals are stored as JSONB; the columns the queries
// filter and aggregate on are first-class.
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new PostgreSQL document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *billing.FinancialDocument) error {
	lineItems, charges, totals, err := marshalDocumentParts(doc)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO documents (
			id, kind, number, counterparty_id, status,
			line_items, charges, totals,
			amount_paid, balance_due,
			payment_terms, custom_term_days,
			issue_date, due_date, expiry_date,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, doc.ID, doc.Kind.String(), doc.Number, doc.CounterpartyID, doc.Status.String(),
		lineItems, charges, totals,
		doc.AmountPaid, doc.BalanceDue,
		string(doc.PaymentTerms), doc.CustomTermDays,
		doc.IssueDate, doc.DueDate, doc.ExpiryDate,
		doc.Version, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return errors.NewInternalError("failed to create document").WithCause(err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.FinancialDocument, error) {
	row := r.db.QueryRow(ctx, selectDocument+` WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrDocumentNotFound
		}
		return nil, errors.NewInternalError("failed to get document").WithCause(err)
	}
	return doc, nil
}

// Update writes a document back, enforcing its optimistic version. A
// row whose stored version no longer matches yields ErrStaleDocument;
// the caller re-reads and retries.
func (r *DocumentRepository) Update(ctx context.Context, doc *billing.FinancialDocument) error {
	lineItems, charges, totals, err := marshalDocumentParts(doc)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE documents SET
			status = $2,
			line_items = $3,
			charges = $4,
			totals = $5,
			amount_paid = $6,
			balance_due = $7,
			due_date = $8,
			expiry_date = $9,
			version = version + 1,
			updated_at = $10
		WHERE id = $1 AND version = $11
	`, doc.ID, doc.Status.String(),
		lineItems, charges, totals,
		doc.AmountPaid, doc.BalanceDue,
		doc.DueDate, doc.ExpiryDate,
		doc.UpdatedAt, doc.Version)

	if err != nil {
		return errors.NewInternalError("failed to update document").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or a concurrent writer bumped the
		// version first; distinguish so the caller can react.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, doc.ID).Scan(&exists); err != nil {
			return errors.NewInternalError("failed to check document").WithCause(err)
		}
		if !exists {
			return errors.ErrDocumentNotFound
		}
		return errors.ErrStaleDocument
	}

	doc.Version++
	return nil
}

// Delete removes a document. The service layer only permits this for
// drafts, which can never have payments attached.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return errors.NewInternalError("failed to delete document").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrDocumentNotFound
	}
	return nil
}

// ListExpirableEstimates returns open estimates whose expiry date has
// passed as of the given day.
func (r *DocumentRepository) ListExpirableEstimates(ctx context.Context, asOf time.Time) ([]*billing.FinancialDocument, error) {
	rows, err := r.db.Query(ctx, selectDocument+`
		WHERE kind = 'estimate'
		  AND status IN ('sent', 'customer_viewed')
		  AND expiry_date < $1
		ORDER BY expiry_date
	`, asOf)
	if err != nil {
		return nil, errors.NewInternalError("failed to list expirable estimates").WithCause(err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// ListOutstanding returns non-terminal documents of the kind carrying a
// positive balance due.
func (r *DocumentRepository) ListOutstanding(ctx context.Context, kind billing.DocumentKind) ([]*billing.FinancialDocument, error) {
	rows, err := r.db.Query(ctx, selectDocument+`
		WHERE kind = $1
		  AND balance_due > 0
		  AND status NOT IN ('paid', 'cancelled', 'void')
		ORDER BY due_date NULLS LAST, number
	`, kind.String())
	if err != nil {
		return nil, errors.NewInternalError("failed to list outstanding documents").WithCause(err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// CountFunnel counts the estimate pipeline stages. Each stage counts
// every estimate that reached it: accepted and converted estimates
// still count as sent, converted still counts as accepted.
func (r *DocumentRepository) CountFunnel(ctx context.Context) (reporting.FunnelCounts, error) {
	var counts reporting.FunnelCounts

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'draft'),
			COUNT(*) FILTER (WHERE status IN ('accepted', 'converted')),
			COUNT(*) FILTER (WHERE status = 'converted')
		FROM documents
		WHERE kind = 'estimate'
	`).Scan(&counts.Created, &counts.Sent, &counts.Accepted, &counts.Converted)

	if err != nil {
		return reporting.FunnelCounts{}, errors.NewInternalError("failed to count estimate funnel").WithCause(err)
	}
	return counts, nil
}

const selectDocument = `
	SELECT id, kind, number, counterparty_id, status,
	       line_items, charges, totals,
	       amount_paid, balance_due,
	       payment_terms, custom_term_days,
	       issue_date, due_date, expiry_date,
	       version, created_at, updated_at
	FROM documents`

func marshalDocumentParts(doc *billing.FinancialDocument) ([]byte, []byte, []byte, error) {
	lineItems, err := json.Marshal(doc.LineItems)
	if err != nil {
		return nil, nil, nil, errors.NewInternalError("failed to marshal line items").WithCause(err)
	}
	charges, err := json.Marshal(doc.Charges)
	if err != nil {
		return nil, nil, nil, errors.NewInternalError("failed to marshal charges").WithCause(err)
	}
	totals, err := json.Marshal(doc.Totals)
	if err != nil {
		return nil, nil, nil, errors.NewInternalError("failed to marshal totals").WithCause(err)
	}
	return lineItems, charges, totals, nil
}

func scanDocument(row pgx.Row) (*billing.FinancialDocument, error) {
	var doc billing.FinancialDocument
	var kind, status, terms string
	var lineItems, charges, totals json.RawMessage
	var dueDate, expiryDate sql.NullTime

	err := row.Scan(&doc.ID, &kind, &doc.Number, &doc.CounterpartyID, &status,
		&lineItems, &charges, &totals,
		&doc.AmountPaid, &doc.BalanceDue,
		&terms, &doc.CustomTermDays,
		&doc.IssueDate, &dueDate, &expiryDate,
		&doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	doc.Kind, err = billing.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	doc.Status, err = billing.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	doc.PaymentTerms = billing.PaymentTerms(terms)

	if err := json.Unmarshal(lineItems, &doc.LineItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(charges, &doc.Charges); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(totals, &doc.Totals); err != nil {
		return nil, err
	}

	if dueDate.Valid {
		doc.DueDate = &dueDate.Time
	}
	if expiryDate.Valid {
		doc.ExpiryDate = &expiryDate.Time
	}
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]*billing.FinancialDocument, error) {
	var docs []*billing.FinancialDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewInternalError("failed to scan document").WithCause(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("failed to iterate documents").WithCause(err)
	}
	return docs, nil
}
