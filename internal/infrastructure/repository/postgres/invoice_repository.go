package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, invoice_number, job_id, customer_id, line_items, subtotal, tax_rate, tax_amount, total,
	status, issued_at, due_at, created_at`

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	items := invoice.LineItems
	if items == nil {
		items = []domain.LineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		invoice.ID, invoice.InvoiceNumber, invoice.JobID, invoice.CustomerID, itemsJSON,
		invoice.Subtotal, invoice.TaxRate, invoice.TaxAmount, invoice.Total,
		string(invoice.Status), invoice.IssuedAt, invoice.DueAt, invoice.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert invoice", err, domain.ErrJobNotFound)
	}
	return nil
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE id = $1
`, id)

	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) ListInvoicesByJob(ctx context.Context, jobID string) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE job_id = $1
ORDER BY created_at DESC
`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var (
		invoice  domain.Invoice
		itemsRaw []byte
		status   string
	)
	err := row.Scan(
		&invoice.ID, &invoice.InvoiceNumber, &invoice.JobID, &invoice.CustomerID, &itemsRaw,
		&invoice.Subtotal, &invoice.TaxRate, &invoice.TaxAmount, &invoice.Total,
		&status, &invoice.IssuedAt, &invoice.DueAt, &invoice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invoice, err
		}
		return invoice, fmt.Errorf("scan invoice: %w", err)
	}
	invoice.Status = domain.InvoiceStatus(status)
	if err := json.Unmarshal(itemsRaw, &invoice.LineItems); err != nil {
		return invoice, fmt.Errorf("unmarshal line items: %w", err)
	}
	if invoice.LineItems == nil {
		invoice.LineItems = []domain.LineItem{}
	}
	return invoice, nil
}
