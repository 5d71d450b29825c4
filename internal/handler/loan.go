package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/segyhp/loanbook/internal/domain"
	"github.com/segyhp/loanbook/pkg/response"
)

// QuoteLoan handles POST /loans/quote. Nothing is stored.
func (h *LoanHandler) QuoteLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.LoanQuoteRequest
	if err := h.decode(r, &request); err != nil {
		response.FromError(w, err)
		return
	}

	quote, err := h.service.QuoteLoan(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, quote)
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := h.decode(r, &request); err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, loan)
}

// ListLoans handles GET /loans?status=ACTIVE|PAID_OFF
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	status := domain.LoanStatus(strings.ToUpper(r.URL.Query().Get("status")))

	loans, err := h.service.ListLoans(r.Context(), status)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.GetSchedule(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, schedule)
}
