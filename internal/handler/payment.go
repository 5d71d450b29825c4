package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/loanbook/internal/domain"
	"github.com/segyhp/loanbook/pkg/response"
)

// MakePayment handles POST /loans/{loanId}/payments. payment_type defaults
// to EMI.
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.MakePaymentRequest
	if err := decodeJSON(r, &request); err != nil {
		response.FromError(w, err)
		return
	}
	if request.PaymentType == "" {
		request.PaymentType = domain.PaymentTypeEMI
	}
	if err := h.validate(&request); err != nil {
		response.FromError(w, err)
		return
	}
	request.LoanID = mux.Vars(r)["loanId"]

	result, err := h.service.ApplyPayment(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, result)
}

// ListLoanPayments handles GET /loans/{loanId}/payments
func (h *LoanHandler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}

// ListPayments handles GET /payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListAllPayments(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}
