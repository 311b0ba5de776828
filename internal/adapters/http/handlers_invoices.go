package httpadapter

import (
	"net/http"
	"strconv"
)

func (rt *Router) createInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := rt.invoices.CreateInvoice(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

func (rt *Router) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := rt.invoices.ListInvoices(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, toInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, listResponse[invoiceResponse]{Items: items})
}

func (rt *Router) getInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := rt.invoices.GetInvoice(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

func (rt *Router) exportInvoice(w http.ResponseWriter, r *http.Request) {
	filename, contentType, body, err := rt.invoices.ExportInvoice(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (rt *Router) getPricingTable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toPricingTableResponse(rt.pricing.Table()))
}
