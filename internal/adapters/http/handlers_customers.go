package httpadapter

import (
	"net/http"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

func (rt *Router) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	customer, err := rt.customers.CreateCustomer(r.Context(), domain.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (rt *Router) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := rt.customers.GetCustomer(r.Context(), urlID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (rt *Router) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	customers, err := rt.customers.ListCustomers(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Customer]{
		Items:  customers,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}
