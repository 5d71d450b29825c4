package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when a loan changed after it was read.
	ErrVersionConflict = errors.New("loan version conflict")
)

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// Create creates a new customer. Emails are unique ignoring case.
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByCustomerID retrieves a customer by its customer ID
	GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error)

	// List returns all customers, newest first
	List(ctx context.Context) ([]*domain.Customer, error)
}

// LoanFilter narrows List. Zero values match everything.
type LoanFilter struct {
	Status     domain.LoanStatus
	CustomerID string
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// List returns loans matching filter, newest first
	List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error)

	// RecordPayment atomically stores loan's new balance and status and inserts
	// payment. loan.Version must be the version that was read; on success it is
	// incremented. If the stored version differs nothing is written and
	// ErrVersionConflict is returned.
	RecordPayment(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// GetByLoanID retrieves all payments for a loan, most recent first
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)

	// List returns every payment, most recent first
	List(ctx context.Context) ([]*domain.Payment, error)

	// GetTotalPaid sums completed payments for a loan
	GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)
}

// DashboardRepository computes portfolio aggregates.
type DashboardRepository interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Customers CustomerRepository
	Loans     LoanRepository
	Payments  PaymentRepository
	Dashboard DashboardRepository
}
