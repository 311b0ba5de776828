package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

type rendererFake struct {
	rendered *domain.Invoice
}

func (f *rendererFake) RenderInvoice(invoice *domain.Invoice, _ *domain.Customer, _ *domain.Job) ([]byte, error) {
	f.rendered = invoice
	return []byte("xlsx"), nil
}

func (f *rendererFake) ContentType() string   { return "application/test" }
func (f *rendererFake) FileExtension() string { return ".xlsx" }

func newInvoiceFixture(t *testing.T, taxRate string) (*roomFixture, *InvoiceUseCase, *rendererFake) {
	t.Helper()
	f := newRoomFixture(t)
	seedCustomer(f.store)
	renderer := &rendererFake{}
	uc := NewInvoiceUseCase(f.store, f.store, f.store, renderer, pricing.NewEngine(nil), InvoiceOptions{
		TaxRate: decimal.RequireFromString(taxRate),
		DueDays: 14,
	})
	return f, uc, renderer
}

func TestCreateInvoiceBuildsLinesFromRoomsAndAdjustments(t *testing.T) {
	f, uc, _ := newInvoiceFixture(t, "0")
	f.createRoom(t, "Kitchen")
	job := f.store.jobs[f.jobID]
	job.Adjustments = []domain.Adjustment{{Label: "Dumpster Rental", Amount: decimal.RequireFromString("200")}}
	f.store.jobs[f.jobID] = job

	invoice, err := uc.CreateInvoice(context.Background(), f.jobID)
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if len(invoice.LineItems) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(invoice.LineItems))
	}
	if invoice.LineItems[0].Description != "Kitchen Cleanout" || invoice.LineItems[1].Description != "Dumpster Rental" {
		t.Fatalf("unexpected descriptions %+v", invoice.LineItems)
	}
	money(t, "subtotal", invoice.Subtotal, "680.00")
	money(t, "tax", invoice.TaxAmount, "0")
	money(t, "total", invoice.Total, "680.00")
	if invoice.Status != domain.InvoiceStatusDraft || !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Fatalf("unexpected invoice header %+v", invoice)
	}
	if got := invoice.DueAt.Sub(invoice.IssuedAt).Hours(); got != 14*24 {
		t.Fatalf("expected 14 day terms, got %v hours", got)
	}
	for _, item := range invoice.LineItems {
		for _, word := range []string{"large", "heavy", "confidence"} {
			if strings.Contains(strings.ToLower(item.Description), word) {
				t.Fatalf("line %q leaks classification vocabulary", item.Description)
			}
		}
	}
}

func TestCreateInvoiceBridgesToPinnedEstimateAndAppliesTax(t *testing.T) {
	f, uc, _ := newInvoiceFixture(t, "0.0825")
	f.createRoom(t, "")
	job := f.store.jobs[f.jobID]
	job.HumanAdjustedEstimate = decimal.RequireFromString("450.00")
	f.store.jobs[f.jobID] = job

	invoice, err := uc.CreateInvoice(context.Background(), f.jobID)
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if len(invoice.LineItems) != 2 {
		t.Fatalf("expected room line plus price adjustment, got %+v", invoice.LineItems)
	}
	if invoice.LineItems[0].Description != "Room Cleanout" {
		t.Fatalf("expected fallback description, got %q", invoice.LineItems[0].Description)
	}
	bridge := invoice.LineItems[1]
	if bridge.Description != priceAdjustmentDescription {
		t.Fatalf("unexpected bridge line %+v", bridge)
	}
	money(t, "bridge", bridge.Total, "-30.00")
	money(t, "subtotal", invoice.Subtotal, "450.00")
	money(t, "tax", invoice.TaxAmount, "37.13")
	money(t, "total", invoice.Total, "487.13")
}

func TestCreateInvoiceRejectsEmptyJob(t *testing.T) {
	f, uc, _ := newInvoiceFixture(t, "0")
	if _, err := uc.CreateInvoice(context.Background(), f.jobID); !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for empty job, got %v", err)
	}
}

func TestExportInvoiceUsesRenderer(t *testing.T) {
	f, uc, renderer := newInvoiceFixture(t, "0")
	f.createRoom(t, "Garage")
	invoice, err := uc.CreateInvoice(context.Background(), f.jobID)
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	filename, contentType, body, err := uc.ExportInvoice(context.Background(), invoice.ID)
	if err != nil {
		t.Fatalf("ExportInvoice() error = %v", err)
	}
	if filename != invoice.InvoiceNumber+".xlsx" || contentType != "application/test" || string(body) != "xlsx" {
		t.Fatalf("unexpected export %q %q %q", filename, contentType, body)
	}
	if renderer.rendered == nil || renderer.rendered.ID != invoice.ID {
		t.Fatalf("renderer did not receive the invoice")
	}

	if _, _, _, err := uc.ExportInvoice(context.Background(), "missing"); !domain.IsKind(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice not found, got %v", err)
	}
}
