package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

const priceAdjustmentDescription = "Price Adjustment"

type InvoiceUseCase struct {
	jobs      ports.JobRepository
	customers ports.CustomerRepository
	invoices  ports.InvoiceRepository
	renderer  ports.InvoiceRenderer
	engine    *pricing.Engine

	taxRate decimal.Decimal
	dueIn   time.Duration
	now     func() time.Time
}

type InvoiceOptions struct {
	TaxRate decimal.Decimal
	DueDays int
}

func NewInvoiceUseCase(
	jobs ports.JobRepository,
	customers ports.CustomerRepository,
	invoices ports.InvoiceRepository,
	renderer ports.InvoiceRenderer,
	engine *pricing.Engine,
	options InvoiceOptions,
) *InvoiceUseCase {
	dueDays := options.DueDays
	if dueDays <= 0 {
		dueDays = 30
	}
	return &InvoiceUseCase{
		jobs:      jobs,
		customers: customers,
		invoices:  invoices,
		renderer:  renderer,
		engine:    engine,
		taxRate:   options.TaxRate,
		dueIn:     time.Duration(dueDays) * 24 * time.Hour,
		now:       utcNow,
	}
}

// CreateInvoice snapshots the job's current pricing into a draft invoice.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, jobID string) (*domain.Invoice, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.InvalidInput("create invoice", "job id is required")
	}
	job, err := uc.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	snapshot := *job
	snapshot.Rooms = append([]domain.Room(nil), job.Rooms...)
	totals, _ := uc.engine.RecomputeJob(&snapshot)

	items := uc.engine.FormatLineItems(snapshot.Rooms, snapshot.Adjustments)
	if quoted := snapshot.QuotedPrice(); !quoted.Equal(totals.FinalPrice) {
		diff := pricing.RoundMoney(quoted.Sub(totals.FinalPrice))
		items = append(items, domain.LineItem{
			Description: priceAdjustmentDescription,
			Quantity:    1,
			UnitPrice:   diff,
			Total:       diff,
		})
	}
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrConflict, "create invoice", errors.New("job has nothing to invoice"))
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}
	subtotal = pricing.RoundMoney(subtotal)
	tax := pricing.RoundMoney(subtotal.Mul(uc.taxRate))

	now := uc.now()
	invoice := &domain.Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: domain.NewDocumentNumber("INV", now),
		JobID:         job.ID,
		CustomerID:    job.CustomerID,
		LineItems:     items,
		Subtotal:      subtotal,
		TaxRate:       uc.taxRate,
		TaxAmount:     tax,
		Total:         subtotal.Add(tax),
		Status:        domain.InvoiceStatusDraft,
		IssuedAt:      now,
		DueAt:         now.Add(uc.dueIn),
		CreatedAt:     now,
	}
	if err := uc.invoices.CreateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	slog.Info("invoice_created",
		"invoice_id", invoice.ID,
		"invoice_number", invoice.InvoiceNumber,
		"job_id", job.ID,
		"lines", len(items),
		"total", invoice.Total.StringFixed(2),
	)
	return invoice, nil
}

func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.InvalidInput("get invoice", "invoice id is required")
	}
	return uc.invoices.GetInvoice(ctx, id)
}

func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, jobID string) ([]domain.Invoice, error) {
	if _, err := uc.jobs.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return uc.invoices.ListInvoicesByJob(ctx, jobID)
}

func (uc *InvoiceUseCase) ExportInvoice(ctx context.Context, id string) (string, string, []byte, error) {
	if uc.renderer == nil {
		return "", "", nil, domain.WrapError(domain.ErrConflict, "export invoice", errors.New("invoice export is not configured"))
	}
	invoice, err := uc.GetInvoice(ctx, id)
	if err != nil {
		return "", "", nil, err
	}
	job, err := uc.jobs.GetJob(ctx, invoice.JobID)
	if err != nil {
		return "", "", nil, err
	}
	customer, err := uc.customers.GetCustomer(ctx, invoice.CustomerID)
	if err != nil {
		return "", "", nil, err
	}

	body, err := uc.renderer.RenderInvoice(invoice, customer, job)
	if err != nil {
		return "", "", nil, fmt.Errorf("render invoice: %w", err)
	}
	return invoice.InvoiceNumber + uc.renderer.FileExtension(), uc.renderer.ContentType(), body, nil
}
