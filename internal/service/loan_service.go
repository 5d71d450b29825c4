package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/domain"
	"github.com/segyhp/loanbook/internal/events"
	"github.com/segyhp/loanbook/internal/ledger"
	"github.com/segyhp/loanbook/internal/lock"
	"github.com/segyhp/loanbook/internal/repository"
	"github.com/segyhp/loanbook/pkg/amortization"
	customError "github.com/segyhp/loanbook/pkg/errors"
	"github.com/segyhp/loanbook/pkg/utils"
)

type LoanService struct {
	CustomerRepo  repository.CustomerRepository
	LoanRepo      repository.LoanRepository
	PaymentRepo   repository.PaymentRepository
	DashboardRepo repository.DashboardRepository
	locker        lock.Locker
	publisher     events.Publisher
	config        *config.Config
	logger        *slog.Logger
	now           func() time.Time
}

func NewLoanService(
	store *repository.Store,
	locker lock.Locker,
	publisher events.Publisher,
	config *config.Config,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{
		CustomerRepo:  store.Customers,
		LoanRepo:      store.Loans,
		PaymentRepo:   store.Payments,
		DashboardRepo: store.Dashboard,
		locker:        locker,
		publisher:     publisher,
		config:        config,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateCustomer registers a borrower. Emails are stored lower-cased.
func (s *LoanService) CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error) {
	customer := &domain.Customer{
		ID:         uuid.New(),
		CustomerID: utils.NewReference(utils.CustomerPrefix),
		Name:       strings.TrimSpace(request.Name),
		Email:      strings.ToLower(strings.TrimSpace(request.Email)),
		Phone:      strings.TrimSpace(request.Phone),
		Address:    strings.TrimSpace(request.Address),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.CustomerRepo.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, customError.WrapCustomerEmailTaken(customer.Email)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.InfoContext(ctx, "customer created", "customer_id", customer.CustomerID)
	return customer, nil
}

func (s *LoanService) GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	customer, err := s.CustomerRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapCustomerNotFound(customerID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return customer, nil
}

func (s *LoanService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	customers, err := s.CustomerRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return customers, nil
}

// ListCustomerLoans returns the loans of an existing customer.
func (s *LoanService) ListCustomerLoans(ctx context.Context, customerID string) ([]*domain.Loan, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	loans, err := s.LoanRepo.List(ctx, repository.LoanFilter{CustomerID: customerID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// QuoteLoan prices a loan without persisting anything.
func (s *LoanService) QuoteLoan(_ context.Context, request *domain.LoanQuoteRequest) (*domain.LoanQuoteResponse, error) {
	quote, err := price(request.Amount, request.InterestRate, request.TermMonths)
	if err != nil {
		return nil, err
	}

	return &domain.LoanQuoteResponse{
		Amount:         request.Amount,
		InterestRate:   request.InterestRate,
		TermMonths:     request.TermMonths,
		MonthlyPayment: quote.MonthlyPayment,
		TotalAmount:    quote.TotalAmount,
		TotalInterest:  quote.TotalInterest(request.Amount),
	}, nil
}

// CreateLoan originates a loan for an existing customer. Monthly payment and
// total amount are fixed here and never recomputed.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	quote, err := price(request.Amount, request.InterestRate, request.TermMonths)
	if err != nil {
		return nil, err
	}

	if _, err := s.GetCustomer(ctx, request.CustomerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	loan := &domain.Loan{
		ID:             uuid.New(),
		LoanID:         utils.NewReference(utils.LoanPrefix),
		CustomerID:     request.CustomerID,
		Amount:         request.Amount,
		InterestRate:   request.InterestRate,
		TermMonths:     request.TermMonths,
		MonthlyPayment: quote.MonthlyPayment,
		TotalAmount:    quote.TotalAmount,
		Version:        1,
		StartDate:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ledger.Open(loan)

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapCustomerNotFound(request.CustomerID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.InfoContext(ctx, "loan created",
		"loan_id", loan.LoanID,
		"customer_id", loan.CustomerID,
		"monthly_payment", loan.MonthlyPayment.StringFixed(2),
		"total_amount", loan.TotalAmount.StringFixed(2),
	)
	s.publish(ctx, events.New(events.LoanCreated, loan.LoanID, loan))

	return loan, nil
}

// price checks origination bounds and runs the calculator. Out of range
// terms are rejected, never clamped.
func price(amount, rate decimal.Decimal, termMonths int) (amortization.Quote, error) {
	switch {
	case amount.LessThan(domain.MinPrincipal):
		return amortization.Quote{}, customError.WrapInvalidLoanTerms(
			fmt.Sprintf("amount must be at least %s, got %s", domain.MinPrincipal, amount))
	case !domain.HasPlaces(amount, domain.MoneyPlaces):
		return amortization.Quote{}, customError.WrapInvalidLoanTerms(
			fmt.Sprintf("amount must have at most %d decimal places, got %s", domain.MoneyPlaces, amount))
	case rate.LessThan(domain.MinInterestRate) || rate.GreaterThan(domain.MaxInterestRate):
		return amortization.Quote{}, customError.WrapInvalidLoanTerms(
			fmt.Sprintf("interest rate must be between %s and %s, got %s", domain.MinInterestRate, domain.MaxInterestRate, rate))
	case !domain.HasPlaces(rate, domain.RatePlaces):
		return amortization.Quote{}, customError.WrapInvalidLoanTerms(
			fmt.Sprintf("interest rate must have at most %d decimal places, got %s", domain.RatePlaces, rate))
	case termMonths < domain.MinTermMonths || termMonths > domain.MaxTermMonths:
		return amortization.Quote{}, customError.WrapInvalidLoanTerms(
			fmt.Sprintf("term must be between %d and %d months, got %d", domain.MinTermMonths, domain.MaxTermMonths, termMonths))
	}

	return amortization.Calculate(amount, rate, termMonths)
}

func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

// ListLoans returns all loans, or only those in status when it is set.
func (s *LoanService) ListLoans(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	if status != "" && !status.Valid() {
		return nil, customError.WrapInvalidRequest(fmt.Sprintf("unknown loan status %q", status), nil)
	}

	loans, err := s.LoanRepo.List(ctx, repository.LoanFilter{Status: status})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loans, nil
}

// GetSchedule returns the amortization table of a loan along with how much
// of it has been repaid so far. Installments are marked PAID in order while
// the amount repaid covers them; unpaid ones past their due date are OVERDUE.
func (s *LoanService) GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	entries, err := amortization.Schedule(loan.Amount, loan.InterestRate, loan.TermMonths, loan.StartDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	paid := loan.AmountPaid()
	covered := decimal.Zero

	schedule := make([]*domain.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		covered = covered.Add(e.Payment)

		status := domain.InstallmentUpcoming
		switch {
		case loan.IsPaidOff() || covered.LessThanOrEqual(paid):
			status = domain.InstallmentPaid
		case utils.IsDateOverdue(e.DueDate, now):
			status = domain.InstallmentOverdue
		}

		schedule = append(schedule, &domain.ScheduleEntry{
			Installment:      e.Installment,
			DueDate:          e.DueDate,
			Payment:          e.Payment,
			Principal:        e.Principal,
			Interest:         e.Interest,
			RemainingBalance: e.RemainingBalance,
			Status:           status,
		})
	}

	return &domain.ScheduleResponse{
		LoanID:             loan.LoanID,
		AmountPaid:         paid,
		CurrentInstallment: min(utils.GetCurrentInstallment(loan.StartDate, now), len(schedule)),
		Schedule:           schedule,
	}, nil
}

// ApplyPayment records a payment against a loan and moves its balance.
//
// The loan is locked for the whole read-validate-write cycle, and the write
// itself only succeeds if the loan version is still the one that was read.
// On any error neither the loan nor the payment history changes.
func (s *LoanService) ApplyPayment(ctx context.Context, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	lockCtx, cancel := ctx, context.CancelFunc(func() {})
	if wait := s.config.Lock.WaitTimeout; wait > 0 {
		lockCtx, cancel = context.WithTimeout(ctx, wait)
	}
	release, err := s.locker.Lock(lockCtx, request.LoanID)
	cancel()
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, customError.WrapLoanBusy(request.LoanID, err)
		}
		return nil, customError.WrapLockError(err)
	}
	defer release()

	loan, err := s.GetLoan(ctx, request.LoanID)
	if err != nil {
		return nil, err
	}

	transition, err := ledger.Apply(loan, request.Amount)
	if err != nil {
		s.logger.WarnContext(ctx, "payment rejected",
			"loan_id", request.LoanID,
			"amount", request.Amount.String(),
			"error", err,
		)
		return nil, err
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		PaymentID:     utils.NewReference(utils.PaymentPrefix),
		LoanID:        loan.LoanID,
		Amount:        request.Amount,
		PaymentDate:   s.now().UTC(),
		PaymentType:   request.PaymentType,
		PaymentMethod: request.PaymentMethod,
		Status:        domain.PaymentStatusCompleted,
		Reference:     strings.TrimSpace(request.Reference),
	}

	updated := *loan
	ledger.Commit(&updated, transition)

	if err := s.LoanRepo.RecordPayment(ctx, &updated, payment); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, customError.WrapConcurrentModification(loan.LoanID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, customError.WrapLoanNotFound(loan.LoanID)
		default:
			return nil, customError.WrapDatabaseError(err)
		}
	}

	s.logger.InfoContext(ctx, "payment recorded",
		"loan_id", updated.LoanID,
		"payment_id", payment.PaymentID,
		"amount", payment.Amount.StringFixed(2),
		"remaining_balance", updated.RemainingBalance.StringFixed(2),
	)
	s.publish(ctx, events.New(events.PaymentRecorded, updated.LoanID, payment))
	if transition.PaidOff() {
		s.logger.InfoContext(ctx, "loan paid off", "loan_id", updated.LoanID)
		s.publish(ctx, events.New(events.LoanPaidOff, updated.LoanID, &updated))
	}

	return &domain.MakePaymentResponse{Payment: payment, Loan: &updated}, nil
}

// ListPayments returns the payments of an existing loan, most recent first.
func (s *LoanService) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

func (s *LoanService) ListAllPayments(ctx context.Context) ([]*domain.Payment, error) {
	payments, err := s.PaymentRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// Dashboard aggregates the whole book. Nothing is cached.
func (s *LoanService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.DashboardRepo.Stats(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	stats.GeneratedAt = s.now().UTC()
	return stats, nil
}

// Backup exports every customer, loan and payment.
func (s *LoanService) Backup(ctx context.Context) (*domain.Backup, error) {
	customers, err := s.CustomerRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loans, err := s.LoanRepo.List(ctx, repository.LoanFilter{})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	payments, err := s.PaymentRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.Backup{
		ExportedAt: s.now().UTC(),
		Customers:  customers,
		Loans:      loans,
		Payments:   payments,
	}, nil
}

// AuditLedger checks every loan against the balance and status rules and
// against its payment trail.
func (s *LoanService) AuditLedger(ctx context.Context) ([]domain.LedgerDiscrepancy, error) {
	loans, err := s.LoanRepo.List(ctx, repository.LoanFilter{})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	var discrepancies []domain.LedgerDiscrepancy
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return discrepancies, err
		}

		payments, err := s.PaymentRepo.GetByLoanID(ctx, loan.LoanID)
		if err != nil {
			return discrepancies, customError.WrapDatabaseError(err)
		}

		reasons := append(ledger.CheckInvariants(loan), ledger.Reconcile(loan, payments)...)
		for _, reason := range reasons {
			discrepancies = append(discrepancies, domain.LedgerDiscrepancy{LoanID: loan.LoanID, Reason: reason})
		}
	}

	return discrepancies, nil
}

// publish sends event and only logs failures; a recorded payment is never
// undone because the event could not be delivered.
func (s *LoanService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "type", event.Type, "key", event.Key, "error", err)
	}
}
