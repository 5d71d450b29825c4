package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats is recomputed from the store on every request.
type DashboardStats struct {
	TotalCustomers   int64           `json:"total_customers" db:"total_customers"`
	TotalLoans       int64           `json:"total_loans" db:"total_loans"`
	ActiveLoans      int64           `json:"active_loans" db:"active_loans"`
	PaidOffLoans     int64           `json:"paid_off_loans" db:"paid_off_loans"`
	TotalPrincipal   decimal.Decimal `json:"total_principal" db:"total_principal"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding" db:"total_outstanding"`
	TotalCollected   decimal.Decimal `json:"total_collected" db:"total_collected"`
	GeneratedAt      time.Time       `json:"generated_at" db:"-"`
}

// Backup is a full export of the book.
type Backup struct {
	ExportedAt time.Time   `json:"exported_at"`
	Customers  []*Customer `json:"customers"`
	Loans      []*Loan     `json:"loans"`
	Payments   []*Payment  `json:"payments"`
}

// LedgerDiscrepancy is one invariant violation found by the ledger audit.
type LedgerDiscrepancy struct {
	LoanID string `json:"loan_id"`
	Reason string `json:"reason"`
}
