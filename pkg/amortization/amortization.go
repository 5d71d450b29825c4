// Package amortization computes fixed-payment (EMI) figures for fully
// amortizing loans.
//
// Amounts are rounded half-up to the cent. Only the (1+m)^n power term is
// evaluated in float64; every other step is decimal arithmetic.
package amortization

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loanbook/pkg/errors"
	"github.com/segyhp/loanbook/pkg/utils"
)

const centPlaces = 2

var (
	hundred    = decimal.NewFromInt(100)
	monthsYear = decimal.NewFromInt(12)
	one        = decimal.NewFromInt(1)
)

// Quote is the result of pricing a loan.
type Quote struct {
	MonthlyPayment decimal.Decimal
	TotalAmount    decimal.Decimal
}

// TotalInterest is what the borrower pays on top of principal.
func (q Quote) TotalInterest(principal decimal.Decimal) decimal.Decimal {
	return q.TotalAmount.Sub(principal)
}

// Entry is one installment of an amortization table.
type Entry struct {
	Installment      int
	DueDate          time.Time
	Payment          decimal.Decimal
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(hundred).Div(monthsYear)
}

// Calculate prices a loan of principal over termMonths at annualRatePercent.
//
//	m       = r / 100 / 12
//	payment = P / n                          if m == 0
//	payment = P * m * (1+m)^n / ((1+m)^n - 1) otherwise
//	total   = payment * n
func Calculate(principal, annualRatePercent decimal.Decimal, termMonths int) (Quote, error) {
	if termMonths <= 0 {
		return Quote{}, customError.WrapInvalidLoanTerms(fmt.Sprintf("term must be at least 1 month, got %d", termMonths))
	}
	if !principal.IsPositive() {
		return Quote{}, customError.WrapInvalidLoanTerms(fmt.Sprintf("principal must be positive, got %s", principal))
	}
	if annualRatePercent.IsNegative() {
		return Quote{}, customError.WrapInvalidLoanTerms(fmt.Sprintf("interest rate cannot be negative, got %s", annualRatePercent))
	}

	n := decimal.NewFromInt(int64(termMonths))
	m := MonthlyRate(annualRatePercent)

	var payment decimal.Decimal
	if m.IsZero() {
		payment = principal.Div(n)
	} else {
		factor, err := growthFactor(m, termMonths)
		if err != nil {
			return Quote{}, err
		}
		payment = principal.Mul(m).Mul(factor).Div(factor.Sub(one))
	}

	payment = payment.Round(centPlaces)
	if !payment.IsPositive() {
		return Quote{}, customError.WrapInvalidLoanTerms("principal too small to amortize over the requested term")
	}

	return Quote{
		MonthlyPayment: payment,
		TotalAmount:    payment.Mul(n).Round(centPlaces),
	}, nil
}

// growthFactor returns (1+m)^n.
func growthFactor(m decimal.Decimal, n int) (decimal.Decimal, error) {
	f := math.Pow(1+m.InexactFloat64(), float64(n))
	if math.IsInf(f, 0) || math.IsNaN(f) || f <= 1 {
		return decimal.Zero, customError.WrapInvalidLoanTerms("interest rate and term produce a non-finite growth factor")
	}
	return decimal.NewFromFloat(f), nil
}

// Schedule builds the month-by-month table for a loan priced by Calculate.
// Installment k is due k months after start. The last installment absorbs
// rounding residue so the remaining principal ends at exactly zero.
func Schedule(principal, annualRatePercent decimal.Decimal, termMonths int, start time.Time) ([]Entry, error) {
	quote, err := Calculate(principal, annualRatePercent, termMonths)
	if err != nil {
		return nil, err
	}

	m := MonthlyRate(annualRatePercent)
	remaining := principal
	entries := make([]Entry, 0, termMonths)

	for k := 1; k <= termMonths; k++ {
		interest := remaining.Mul(m).Round(centPlaces)
		payment := quote.MonthlyPayment
		principalPart := payment.Sub(interest)

		if k == termMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
			payment = principalPart.Add(interest)
		}

		remaining = remaining.Sub(principalPart)

		entries = append(entries, Entry{
			Installment:      k,
			DueDate:          utils.CalculateDueDate(start, k),
			Payment:          payment,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: remaining,
		})

		if remaining.IsZero() {
			break
		}
	}

	return entries, nil
}
