// Package ledger holds the balance/status rules of a single loan.
//
// A loan starts ACTIVE with RemainingBalance = TotalAmount and moves to
// PAID_OFF exactly once, when a payment brings the balance to zero. Nothing
// leaves PAID_OFF.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/domain"
	customError "github.com/segyhp/loanbook/pkg/errors"
)

// Transition is the outcome of applying one payment to a loan.
type Transition struct {
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	NewStatus       domain.LoanStatus
}

// PaidOff reports whether this transition closed the loan.
func (t Transition) PaidOff() bool {
	return t.NewStatus == domain.LoanStatusPaidOff
}

// Open initialises a freshly originated loan.
func Open(loan *domain.Loan) {
	loan.RemainingBalance = loan.TotalAmount
	loan.Status = domain.LoanStatusActive
}

// Apply validates a payment of amount against loan and returns the resulting
// balance and status. loan is not modified.
func Apply(loan *domain.Loan, amount decimal.Decimal) (Transition, error) {
	if !amount.IsPositive() || !domain.HasPlaces(amount, domain.MoneyPlaces) {
		return Transition{}, customError.WrapInvalidPaymentAmount(amount.String())
	}
	if loan.IsPaidOff() {
		return Transition{}, customError.WrapLoanAlreadyPaidOff(loan.LoanID)
	}
	if amount.GreaterThan(loan.RemainingBalance) {
		return Transition{}, customError.WrapPaymentExceedsBalance(amount.StringFixed(2), loan.RemainingBalance.StringFixed(2))
	}

	next := loan.RemainingBalance.Sub(amount).Round(2)
	status := domain.LoanStatusActive
	if !next.IsPositive() {
		next = decimal.Zero
		status = domain.LoanStatusPaidOff
	}

	return Transition{
		PreviousBalance: loan.RemainingBalance,
		NewBalance:      next,
		NewStatus:       status,
	}, nil
}

// Commit writes t onto loan.
func Commit(loan *domain.Loan, t Transition) {
	loan.RemainingBalance = t.NewBalance
	loan.Status = t.NewStatus
}

// CheckInvariants lists every balance/status rule loan currently breaks.
func CheckInvariants(loan *domain.Loan) []string {
	var violations []string

	if loan.RemainingBalance.IsNegative() {
		violations = append(violations, fmt.Sprintf("remaining balance %s is negative", loan.RemainingBalance))
	}
	if loan.RemainingBalance.GreaterThan(loan.TotalAmount) {
		violations = append(violations, fmt.Sprintf("remaining balance %s exceeds total amount %s", loan.RemainingBalance, loan.TotalAmount))
	}
	if !loan.Status.Valid() {
		violations = append(violations, fmt.Sprintf("unknown status %q", loan.Status))
	}
	if loan.IsPaidOff() && !loan.RemainingBalance.IsZero() {
		violations = append(violations, fmt.Sprintf("paid off with balance %s", loan.RemainingBalance))
	}
	if loan.Status == domain.LoanStatusActive && loan.RemainingBalance.IsZero() {
		violations = append(violations, "active with zero balance")
	}

	return violations
}

// Reconcile checks that the payments recorded against loan account for the
// difference between its total and remaining balance.
func Reconcile(loan *domain.Loan, payments []*domain.Payment) []string {
	collected := decimal.Zero
	for _, p := range payments {
		if p.Status == domain.PaymentStatusCompleted {
			collected = collected.Add(p.Amount)
		}
	}

	if !collected.Equal(loan.AmountPaid()) {
		return []string{fmt.Sprintf("completed payments total %s but balance implies %s",
			collected.String(), loan.AmountPaid().String())}
	}
	return nil
}
