package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loanbook/internal/domain"
)

type storeFactory func(t *testing.T) *Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) *Store {
			return NewMemoryStore(NewMemoryBackend())
		},
		"postgres": setupPostgres,
	}
}

func setupPostgres(t *testing.T) *Store {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	cleanupTestData(db)

	return NewPostgresStore(db)
}

func cleanupTestData(db *sqlx.DB) {
	db.Exec("DELETE FROM payments")
	db.Exec("DELETE FROM loans")
	db.Exec("DELETE FROM customers")
}

func testCustomer(id, email string) *domain.Customer {
	return &domain.Customer{
		ID:         uuid.New(),
		CustomerID: id,
		Name:       "Asha Rao",
		Email:      email,
		Phone:      "+91-9800000000",
		Address:    "12 MG Road, Bengaluru",
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func testLoan(loanID, customerID string) *domain.Loan {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Loan{
		ID:               uuid.New(),
		LoanID:           loanID,
		CustomerID:       customerID,
		Amount:           decimal.NewFromInt(500000),
		InterestRate:     decimal.RequireFromString("8.5"),
		TermMonths:       60,
		MonthlyPayment:   decimal.RequireFromString("10258.27"),
		TotalAmount:      decimal.RequireFromString("615496.20"),
		RemainingBalance: decimal.RequireFromString("615496.20"),
		Status:           domain.LoanStatusActive,
		Version:          1,
		StartDate:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func testPayment(loanID, amount string, at time.Time) *domain.Payment {
	return &domain.Payment{
		ID:            uuid.New(),
		PaymentID:     "PY-" + uuid.NewString()[:8],
		LoanID:        loanID,
		Amount:        decimal.RequireFromString(amount),
		PaymentDate:   at,
		PaymentType:   domain.PaymentTypeEMI,
		PaymentMethod: domain.PaymentMethodUPI,
		Status:        domain.PaymentStatusCompleted,
	}
}

func TestCustomerRepository(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			customer := testCustomer("CU-0001", "asha@example.com")
			require.NoError(t, store.Customers.Create(ctx, customer))

			fetched, err := store.Customers.GetByCustomerID(ctx, "CU-0001")
			require.NoError(t, err)
			assert.Equal(t, customer.Email, fetched.Email)
			assert.Equal(t, customer.Name, fetched.Name)

			err = store.Customers.Create(ctx, testCustomer("CU-0002", "ASHA@example.com"))
			assert.ErrorIs(t, err, ErrDuplicate)

			_, err = store.Customers.GetByCustomerID(ctx, "CU-missing")
			assert.ErrorIs(t, err, ErrNotFound)

			list, err := store.Customers.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestLoanRepository_CreateGetList(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0001", "a@example.com")))
			require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0002", "b@example.com")))

			first := testLoan("LN-0001", "CU-0001")
			second := testLoan("LN-0002", "CU-0002")
			second.RemainingBalance = decimal.Zero
			second.Status = domain.LoanStatusPaidOff
			require.NoError(t, store.Loans.Create(ctx, first))
			require.NoError(t, store.Loans.Create(ctx, second))

			assert.ErrorIs(t, store.Loans.Create(ctx, testLoan("LN-0001", "CU-0001")), ErrDuplicate)

			fetched, err := store.Loans.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			assert.True(t, fetched.TotalAmount.Equal(first.TotalAmount))
			assert.True(t, fetched.InterestRate.Equal(first.InterestRate))
			assert.Equal(t, 60, fetched.TermMonths)
			assert.Equal(t, domain.LoanStatusActive, fetched.Status)

			_, err = store.Loans.GetByLoanID(ctx, "LN-missing")
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := store.Loans.List(ctx, LoanFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2)

			active, err := store.Loans.List(ctx, LoanFilter{Status: domain.LoanStatusActive})
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, "LN-0001", active[0].LoanID)

			byCustomer, err := store.Loans.List(ctx, LoanFilter{CustomerID: "CU-0002"})
			require.NoError(t, err)
			require.Len(t, byCustomer, 1)
			assert.Equal(t, "LN-0002", byCustomer[0].LoanID)
		})
	}
}

func TestLoanRepository_RecordPayment(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0001", "a@example.com")))
			loan := testLoan("LN-0001", "CU-0001")
			require.NoError(t, store.Loans.Create(ctx, loan))

			base := time.Now().UTC().Truncate(time.Microsecond)
			loan.RemainingBalance = decimal.RequireFromString("605237.93")
			require.NoError(t, store.Loans.RecordPayment(ctx, loan, testPayment("LN-0001", "10258.27", base)))
			assert.Equal(t, int64(2), loan.Version)

			loan.RemainingBalance = decimal.RequireFromString("600237.93")
			require.NoError(t, store.Loans.RecordPayment(ctx, loan, testPayment("LN-0001", "5000.00", base.Add(time.Minute))))
			assert.Equal(t, int64(3), loan.Version)

			stored, err := store.Loans.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			assert.Equal(t, int64(3), stored.Version)
			assert.True(t, stored.RemainingBalance.Equal(decimal.RequireFromString("600237.93")))

			payments, err := store.Payments.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			require.Len(t, payments, 2)
			assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("5000.00")), "most recent first")

			total, err := store.Payments.GetTotalPaid(ctx, "LN-0001")
			require.NoError(t, err)
			assert.True(t, total.Equal(decimal.RequireFromString("15258.27")))
		})
	}
}

func TestLoanRepository_RecordPaymentStaleVersion(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0001", "a@example.com")))
			require.NoError(t, store.Loans.Create(ctx, testLoan("LN-0001", "CU-0001")))

			reader1, err := store.Loans.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			reader2, err := store.Loans.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)

			reader1.RemainingBalance = decimal.RequireFromString("615396.20")
			require.NoError(t, store.Loans.RecordPayment(ctx, reader1, testPayment("LN-0001", "100.00", time.Now())))

			reader2.RemainingBalance = decimal.RequireFromString("615296.20")
			err = store.Loans.RecordPayment(ctx, reader2, testPayment("LN-0001", "200.00", time.Now()))
			assert.ErrorIs(t, err, ErrVersionConflict)

			stored, err := store.Loans.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			assert.True(t, stored.RemainingBalance.Equal(decimal.RequireFromString("615396.20")))

			payments, err := store.Payments.GetByLoanID(ctx, "LN-0001")
			require.NoError(t, err)
			assert.Len(t, payments, 1, "the rejected payment must not be stored")
		})
	}
}

func TestDashboardRepository_Stats(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			empty, err := store.Dashboard.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), empty.TotalLoans)
			assert.True(t, empty.TotalCollected.IsZero())

			require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0001", "a@example.com")))
			active := testLoan("LN-0001", "CU-0001")
			paid := testLoan("LN-0002", "CU-0001")
			paid.Amount = decimal.NewFromInt(1000)
			require.NoError(t, store.Loans.Create(ctx, active))
			require.NoError(t, store.Loans.Create(ctx, paid))

			paid.RemainingBalance = decimal.Zero
			paid.Status = domain.LoanStatusPaidOff
			require.NoError(t, store.Loans.RecordPayment(ctx, paid, testPayment("LN-0002", "615496.20", time.Now())))

			stats, err := store.Dashboard.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), stats.TotalCustomers)
			assert.Equal(t, int64(2), stats.TotalLoans)
			assert.Equal(t, int64(1), stats.ActiveLoans)
			assert.Equal(t, int64(1), stats.PaidOffLoans)
			assert.True(t, stats.TotalPrincipal.Equal(decimal.NewFromInt(501000)), "got %s", stats.TotalPrincipal)
			assert.True(t, stats.TotalOutstanding.Equal(decimal.RequireFromString("615496.20")))
			assert.True(t, stats.TotalCollected.Equal(decimal.RequireFromString("615496.20")))
		})
	}
}

func TestMemoryBackend_WriteErrorLeavesStateUntouched(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewMemoryStore(backend)
	ctx := context.Background()

	require.NoError(t, store.Customers.Create(ctx, testCustomer("CU-0001", "a@example.com")))
	loan := testLoan("LN-0001", "CU-0001")
	require.NoError(t, store.Loans.Create(ctx, loan))

	backend.WithWriteError(errors.New("disk full"))
	loan.RemainingBalance = decimal.RequireFromString("1.00")
	err := store.Loans.RecordPayment(ctx, loan, testPayment("LN-0001", "615495.20", time.Now()))
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, int64(1), loan.Version)

	backend.WithWriteError(nil)
	stored, err := store.Loans.GetByLoanID(ctx, "LN-0001")
	require.NoError(t, err)
	assert.True(t, stored.RemainingBalance.Equal(decimal.RequireFromString("615496.20")))

	payments, err := store.Payments.GetByLoanID(ctx, "LN-0001")
	require.NoError(t, err)
	assert.Empty(t, payments)
}
