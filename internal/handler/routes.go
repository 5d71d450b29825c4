package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/loanbook/pkg/response"
)

// NewRouter wires every endpoint under /api/v1 plus the health probes.
// CORS is applied outside the router so preflight requests, which match no
// route, still get answered.
func NewRouter(loanHandler *LoanHandler, healthHandler *HealthHandler, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger), response.RecoverMiddleware(logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w)
	})

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/customers", loanHandler.CreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers", loanHandler.ListCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}", loanHandler.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customerId}/loans", loanHandler.ListCustomerLoans).Methods(http.MethodGet)

	api.HandleFunc("/loans/quote", loanHandler.QuoteLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", loanHandler.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.ListLoanPayments).Methods(http.MethodGet)

	api.HandleFunc("/payments", loanHandler.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", loanHandler.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/backup", loanHandler.Backup).Methods(http.MethodGet)

	return router
}
