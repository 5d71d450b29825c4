package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/loanbook/internal/domain"
	"github.com/segyhp/loanbook/pkg/response"
)

// CreateCustomer handles POST /customers
func (h *LoanHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateCustomerRequest
	if err := h.decode(r, &request); err != nil {
		response.FromError(w, err)
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, customer)
}

// ListCustomers handles GET /customers
func (h *LoanHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customers)
}

// GetCustomer handles GET /customers/{customerId}
func (h *LoanHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.GetCustomer(r.Context(), mux.Vars(r)["customerId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, customer)
}

// ListCustomerLoans handles GET /customers/{customerId}/loans
func (h *LoanHandler) ListCustomerLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListCustomerLoans(r.Context(), mux.Vars(r)["customerId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loans)
}
