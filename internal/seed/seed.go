// Package seed fills a book with demo customers, loans and payments through
// the loan service, so every record obeys the same rules as API traffic.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/domain"
)

// LoanService is the subset of the loan service the generator drives.
type LoanService interface {
	CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error)
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	ApplyPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error)
}

type Config struct {
	Customers        int
	LoansPerCustomer int
	// MaxInstallments caps how many EMIs are paid per loan.
	MaxInstallments int
	// PayOffChance is the probability a loan is settled with one lump sum.
	PayOffChance float64
	Seed         int64
	// EmailDomain keeps repeated runs from colliding on unique emails.
	EmailDomain string
}

func DefaultConfig() Config {
	return Config{
		Customers:        10,
		LoansPerCustomer: 2,
		MaxInstallments:  6,
		PayOffChance:     0.2,
		Seed:             42,
		EmailDomain:      "demo.loanbook.local",
	}
}

type Summary struct {
	Customers int `json:"customers"`
	Loans     int `json:"loans"`
	Payments  int `json:"payments"`
	PaidOff   int `json:"paid_off"`
}

type Generator struct {
	cfg     Config
	service LoanService
	rand    *rand.Rand
}

func New(cfg Config, service LoanService) *Generator {
	def := DefaultConfig()
	if cfg.Customers <= 0 {
		cfg.Customers = def.Customers
	}
	if cfg.LoansPerCustomer <= 0 {
		cfg.LoansPerCustomer = def.LoansPerCustomer
	}
	if cfg.MaxInstallments < 0 {
		cfg.MaxInstallments = 0
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = def.EmailDomain
	}

	return &Generator{
		cfg:     cfg,
		service: service,
		rand:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

var (
	firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Kabir", "Ananya", "Rohan", "Saanvi", "Vihaan", "Priya"}
	lastNames  = []string{"Sharma", "Iyer", "Patel", "Reddy", "Menon", "Gupta", "Nair", "Singh", "Das", "Kulkarni"}
	cities     = []string{"Mumbai", "Pune", "Bengaluru", "Chennai", "Hyderabad", "Kochi", "Jaipur", "Kolkata"}
	methods    = []domain.PaymentMethod{
		domain.PaymentMethodCash,
		domain.PaymentMethodBankTransfer,
		domain.PaymentMethodUPI,
		domain.PaymentMethodCheque,
		domain.PaymentMethodCard,
	}
	terms = []int{6, 12, 24, 36, 60, 120, 240}
)

// Run creates the configured book. It stops at the first failure and returns
// what was created up to that point.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	for i := 0; i < g.cfg.Customers; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		customer, err := g.service.CreateCustomer(ctx, g.customerRequest(i))
		if err != nil {
			return summary, fmt.Errorf("create customer %d: %w", i+1, err)
		}
		summary.Customers++

		for j := 0; j < g.cfg.LoansPerCustomer; j++ {
			loan, err := g.service.CreateLoan(ctx, g.loanRequest(customer.CustomerID))
			if err != nil {
				return summary, fmt.Errorf("create loan for %s: %w", customer.CustomerID, err)
			}
			summary.Loans++

			if err := g.pay(ctx, loan, &summary); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (g *Generator) customerRequest(i int) *domain.CreateCustomerRequest {
	first := firstNames[g.rand.Intn(len(firstNames))]
	last := lastNames[g.rand.Intn(len(lastNames))]

	return &domain.CreateCustomerRequest{
		Name:    first + " " + last,
		Email:   fmt.Sprintf("%s.%s.%03d@%s", strings.ToLower(first), strings.ToLower(last), i+1, g.cfg.EmailDomain),
		Phone:   fmt.Sprintf("+91-9%09d", g.rand.Intn(1_000_000_000)),
		Address: fmt.Sprintf("%d MG Road, %s", 1+g.rand.Intn(400), cities[g.rand.Intn(len(cities))]),
	}
}

func (g *Generator) loanRequest(customerID string) *domain.CreateLoanRequest {
	// 10k to 2.5M in steps of 5k, 6.50% to 18.00% in steps of 0.25.
	amount := decimal.NewFromInt(int64(2+g.rand.Intn(499)) * 5000)
	rate := decimal.NewFromInt(int64(26 + g.rand.Intn(47))).Div(decimal.NewFromInt(4))

	return &domain.CreateLoanRequest{
		CustomerID:   customerID,
		Amount:       amount,
		InterestRate: rate,
		TermMonths:   terms[g.rand.Intn(len(terms))],
	}
}

func (g *Generator) pay(ctx context.Context, loan *domain.Loan, summary *Summary) error {
	installments := 0
	if g.cfg.MaxInstallments > 0 {
		installments = g.rand.Intn(g.cfg.MaxInstallments + 1)
	}

	for k := 0; k < installments && loan.Status == domain.LoanStatusActive; k++ {
		amount := decimal.Min(loan.MonthlyPayment, loan.RemainingBalance)
		next, err := g.apply(ctx, loan.LoanID, amount, domain.PaymentTypeEMI, fmt.Sprintf("EMI-%d", k+1))
		if err != nil {
			return err
		}
		loan = next
		summary.Payments++
	}

	if loan.Status == domain.LoanStatusActive && g.rand.Float64() < g.cfg.PayOffChance {
		next, err := g.apply(ctx, loan.LoanID, loan.RemainingBalance, domain.PaymentTypeLumpSum, "FORECLOSURE")
		if err != nil {
			return err
		}
		loan = next
		summary.Payments++
	}

	if loan.Status == domain.LoanStatusPaidOff {
		summary.PaidOff++
	}
	return nil
}

func (g *Generator) apply(ctx context.Context, loanID string, amount decimal.Decimal, paymentType domain.PaymentType, reference string) (*domain.Loan, error) {
	result, err := g.service.ApplyPayment(ctx, &domain.MakePaymentRequest{
		LoanID:        loanID,
		Amount:        amount,
		PaymentType:   paymentType,
		PaymentMethod: methods[g.rand.Intn(len(methods))],
		Reference:     reference,
	})
	if err != nil {
		return nil, fmt.Errorf("pay %s on %s: %w", amount.StringFixed(2), loanID, err)
	}
	return result.Loan, nil
}
