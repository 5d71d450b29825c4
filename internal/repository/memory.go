package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loanbook/internal/domain"
)

// MemoryBackend keeps customers, loans and payments in process memory. It
// honours the same uniqueness and version rules as the Postgres schema and is
// used by tests and by the server when no database URL is configured.
type MemoryBackend struct {
	mu         sync.RWMutex
	customers  map[string]*domain.Customer
	emails     map[string]string
	loans      map[string]*domain.Loan
	payments   []*domain.Payment
	writeError error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		customers: make(map[string]*domain.Customer),
		emails:    make(map[string]string),
		loans:     make(map[string]*domain.Loan),
	}
}

// NewMemoryStore returns repositories sharing one MemoryBackend.
func NewMemoryStore(b *MemoryBackend) *Store {
	return &Store{
		Customers: memoryCustomers{b},
		Loans:     memoryLoans{b},
		Payments:  memoryPayments{b},
		Dashboard: memoryDashboard{b},
	}
}

// WithWriteError makes every following write fail with err. Pass nil to clear.
func (b *MemoryBackend) WithWriteError(err error) *MemoryBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeError = err
	return b
}

type memoryCustomers struct{ b *MemoryBackend }

func (m memoryCustomers) Create(_ context.Context, customer *domain.Customer) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	if m.b.writeError != nil {
		return m.b.writeError
	}
	email := strings.ToLower(customer.Email)
	if _, taken := m.b.emails[email]; taken {
		return ErrDuplicate
	}
	if _, taken := m.b.customers[customer.CustomerID]; taken {
		return ErrDuplicate
	}

	c := *customer
	m.b.customers[c.CustomerID] = &c
	m.b.emails[email] = c.CustomerID
	return nil
}

func (m memoryCustomers) GetByCustomerID(_ context.Context, customerID string) (*domain.Customer, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	c, ok := m.b.customers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m memoryCustomers) List(_ context.Context) ([]*domain.Customer, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	out := make([]*domain.Customer, 0, len(m.b.customers))
	for _, c := range m.b.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryLoans struct{ b *MemoryBackend }

func (m memoryLoans) Create(_ context.Context, loan *domain.Loan) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	if m.b.writeError != nil {
		return m.b.writeError
	}
	if _, taken := m.b.loans[loan.LoanID]; taken {
		return ErrDuplicate
	}
	if _, ok := m.b.customers[loan.CustomerID]; !ok {
		return ErrNotFound
	}

	l := *loan
	m.b.loans[l.LoanID] = &l
	return nil
}

func (m memoryLoans) GetByLoanID(_ context.Context, loanID string) (*domain.Loan, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	l, ok := m.b.loans[loanID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *l
	return &out, nil
}

func (m memoryLoans) List(_ context.Context, filter LoanFilter) ([]*domain.Loan, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	out := []*domain.Loan{}
	for _, l := range m.b.loans {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && l.CustomerID != filter.CustomerID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memoryLoans) RecordPayment(_ context.Context, loan *domain.Loan, payment *domain.Payment) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	if m.b.writeError != nil {
		return m.b.writeError
	}
	stored, ok := m.b.loans[loan.LoanID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != loan.Version {
		return ErrVersionConflict
	}

	now := time.Now()
	stored.RemainingBalance = loan.RemainingBalance
	stored.Status = loan.Status
	stored.Version++
	stored.UpdatedAt = now

	p := *payment
	m.b.payments = append(m.b.payments, &p)

	loan.Version = stored.Version
	loan.UpdatedAt = now
	return nil
}

type memoryPayments struct{ b *MemoryBackend }

func (m memoryPayments) GetByLoanID(_ context.Context, loanID string) ([]*domain.Payment, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	out := []*domain.Payment{}
	for _, p := range m.b.payments {
		if p.LoanID == loanID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m memoryPayments) List(_ context.Context) ([]*domain.Payment, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	out := make([]*domain.Payment, 0, len(m.b.payments))
	for _, p := range m.b.payments {
		cp := *p
		out = append(out, &cp)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m memoryPayments) GetTotalPaid(_ context.Context, loanID string) (decimal.Decimal, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	total := decimal.Zero
	for _, p := range m.b.payments {
		if p.LoanID == loanID && p.Status == domain.PaymentStatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

// sortNewestFirst orders by payment date, later insertions first on ties.
func sortNewestFirst(payments []*domain.Payment) {
	for i, j := 0, len(payments)-1; i < j; i, j = i+1, j-1 {
		payments[i], payments[j] = payments[j], payments[i]
	}
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaymentDate.After(payments[j].PaymentDate) })
}

type memoryDashboard struct{ b *MemoryBackend }

func (m memoryDashboard) Stats(_ context.Context) (*domain.DashboardStats, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	stats := &domain.DashboardStats{
		TotalCustomers:   int64(len(m.b.customers)),
		TotalLoans:       int64(len(m.b.loans)),
		TotalPrincipal:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalCollected:   decimal.Zero,
		GeneratedAt:      time.Now(),
	}
	for _, l := range m.b.loans {
		switch l.Status {
		case domain.LoanStatusActive:
			stats.ActiveLoans++
		case domain.LoanStatusPaidOff:
			stats.PaidOffLoans++
		}
		stats.TotalPrincipal = stats.TotalPrincipal.Add(l.Amount)
		stats.TotalOutstanding = stats.TotalOutstanding.Add(l.RemainingBalance)
	}
	for _, p := range m.b.payments {
		if p.Status == domain.PaymentStatusCompleted {
			stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
		}
	}
	return stats, nil
}
