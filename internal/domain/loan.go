package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "ACTIVE"
	LoanStatusPaidOff LoanStatus = "PAID_OFF"
)

func (s LoanStatus) Valid() bool {
	return s == LoanStatusActive || s == LoanStatusPaidOff
}

// Origination bounds. Requests outside them are rejected, never clamped.
var (
	MinPrincipal    = decimal.NewFromInt(1000)
	MinInterestRate = decimal.RequireFromString("0.1")
	MaxInterestRate = decimal.NewFromInt(50)
)

const (
	MinTermMonths = 1
	MaxTermMonths = 360
)

// Storage precision of money and rates. Values finer than this are rejected
// since the stored loan would differ from the one that was priced.
const (
	MoneyPlaces int32 = 2
	RatePlaces  int32 = 4
)

// HasPlaces reports whether d needs no more than places fractional digits.
// Trailing zeros do not count, so 1.500 fits two places.
func HasPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// Loan represents a loan entity
type Loan struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	CustomerID       string          `json:"customer_id" db:"customer_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermMonths       int             `json:"term" db:"term_months"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	Status           LoanStatus      `json:"status" db:"status"`
	Version          int64           `json:"version" db:"version"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPaidOff reports whether the loan has reached its terminal state.
func (l *Loan) IsPaidOff() bool {
	return l.Status == LoanStatusPaidOff
}

// AmountPaid is the part of TotalAmount already repaid.
func (l *Loan) AmountPaid() decimal.Decimal {
	return l.TotalAmount.Sub(l.RemainingBalance)
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerID   string          `json:"customer_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"decimal_gte=1000,decimal_places=2"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0.1,decimal_lte=50,decimal_places=4"`
	TermMonths   int             `json:"term" validate:"required,gte=1,lte=360"`
}

type LoanQuoteRequest struct {
	Amount       decimal.Decimal `json:"amount" validate:"decimal_gte=1000,decimal_places=2"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0.1,decimal_lte=50,decimal_places=4"`
	TermMonths   int             `json:"term" validate:"required,gte=1,lte=360"`
}

type LoanQuoteResponse struct {
	Amount         decimal.Decimal `json:"amount"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TermMonths     int             `json:"term"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
}

type InstallmentStatus string

const (
	InstallmentPaid     InstallmentStatus = "PAID"
	InstallmentOverdue  InstallmentStatus = "OVERDUE"
	InstallmentUpcoming InstallmentStatus = "UPCOMING"
)

// ScheduleEntry is one month of a loan's amortization table.
type ScheduleEntry struct {
	Installment      int               `json:"installment"`
	DueDate          time.Time         `json:"due_date"`
	Payment          decimal.Decimal   `json:"payment"`
	Principal        decimal.Decimal   `json:"principal"`
	Interest         decimal.Decimal   `json:"interest"`
	RemainingBalance decimal.Decimal   `json:"remaining_principal"`
	Status           InstallmentStatus `json:"status"`
}

type ScheduleResponse struct {
	LoanID     string          `json:"loan_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	// CurrentInstallment is the installment whose due date comes next by the
	// calendar, capped at the last one.
	CurrentInstallment int              `json:"current_installment"`
	Schedule           []*ScheduleEntry `json:"schedule"`
}
