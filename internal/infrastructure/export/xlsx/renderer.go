package xlsx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

const (
	sheetName = "Invoice"
	// Built-in number format "#,##0.00".
	moneyNumFmt = 4
	dateLayout  = "2006-01-02"
)

// Renderer writes invoices as a single-sheet workbook.
type Renderer struct {
	companyName string
}

func NewRenderer(companyName string) *Renderer {
	if strings.TrimSpace(companyName) == "" {
		companyName = "Property Cleanout Services"
	}
	return &Renderer{companyName: companyName}
}

func (r *Renderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r *Renderer) FileExtension() string {
	return ".xlsx"
}

func (r *Renderer) RenderInvoice(invoice *domain.Invoice, customer *domain.Customer, job *domain.Job) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("render invoice: invoice is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}

	w := &sheetWriter{f: f}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("render invoice: create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return nil, fmt.Errorf("render invoice: create style: %w", err)
	}

	w.set(1, 1, r.companyName)
	w.style(1, 1, bold)
	w.set(1, 3, "Invoice")
	w.set(2, 3, invoice.InvoiceNumber)
	w.set(1, 4, "Issued")
	w.set(2, 4, invoice.IssuedAt.Format(dateLayout))
	w.set(1, 5, "Due")
	w.set(2, 5, invoice.DueAt.Format(dateLayout))

	if customer != nil {
		w.set(1, 6, "Bill To")
		w.set(2, 6, customer.Name)
		if customer.Address != "" {
			w.set(2, 7, customer.Address)
		}
	}
	if job != nil {
		w.set(1, 8, "Job")
		w.set(2, 8, job.JobNumber)
		if job.PropertyAddress != "" {
			w.set(1, 9, "Property")
			w.set(2, 9, job.PropertyAddress)
		}
	}

	const headerRow = 11
	for col, title := range []string{"Description", "Quantity", "Unit Price", "Total"} {
		w.set(col+1, headerRow, title)
		w.style(col+1, headerRow, bold)
	}

	row := headerRow + 1
	for _, item := range invoice.LineItems {
		w.set(1, row, item.Description)
		w.set(2, row, item.Quantity)
		w.money(3, row, item.UnitPrice, money)
		w.money(4, row, item.Total, money)
		row++
	}

	row++
	summary := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Subtotal", invoice.Subtotal},
		{fmt.Sprintf("Tax (%s%%)", invoice.TaxRate.Mul(decimal.NewFromInt(100)).String()), invoice.TaxAmount},
		{"Total", invoice.Total},
	}
	for _, line := range summary {
		w.set(3, row, line.label)
		w.money(4, row, line.amount, money)
		row++
	}
	w.style(3, row-1, bold)

	if w.err == nil {
		w.err = f.SetColWidth(sheetName, "A", "A", 42)
	}
	if w.err == nil {
		w.err = f.SetColWidth(sheetName, "B", "D", 14)
	}
	if w.err != nil {
		return nil, fmt.Errorf("render invoice: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render invoice: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so cell writes read as a flat list.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

func (w *sheetWriter) set(col, row int, value any) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(sheetName, w.cell(col, row), value)
}

func (w *sheetWriter) money(col, row int, amount decimal.Decimal, style int) {
	w.set(col, row, amount.Round(2).InexactFloat64())
	w.style(col, row, style)
}

func (w *sheetWriter) style(col, row, style int) {
	if w.err != nil {
		return
	}
	cell := w.cell(col, row)
	w.err = w.f.SetCellStyle(sheetName, cell, cell, style)
}
