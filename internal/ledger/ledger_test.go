package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loanbook/internal/domain"
	customError "github.com/segyhp/loanbook/pkg/errors"
)

func newLoan(total string) *domain.Loan {
	loan := &domain.Loan{
		LoanID:      "LN-TEST",
		TotalAmount: decimal.RequireFromString(total),
	}
	Open(loan)
	return loan
}

func TestOpen(t *testing.T) {
	loan := newLoan("615496.20")

	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.True(t, loan.RemainingBalance.Equal(loan.TotalAmount))
	assert.Empty(t, CheckInvariants(loan))
}

func TestApply(t *testing.T) {
	tests := []struct {
		name            string
		balance         string
		status          domain.LoanStatus
		amount          string
		expectedBalance string
		expectedStatus  domain.LoanStatus
		expectedErr     error
	}{
		{
			name:            "partial payment keeps loan active",
			balance:         "1000.00",
			status:          domain.LoanStatusActive,
			amount:          "250.50",
			expectedBalance: "749.50",
			expectedStatus:  domain.LoanStatusActive,
		},
		{
			name:            "exact balance pays off",
			balance:         "1000.00",
			status:          domain.LoanStatusActive,
			amount:          "1000.00",
			expectedBalance: "0",
			expectedStatus:  domain.LoanStatusPaidOff,
		},
		{
			name:            "sub-cent remainder rounds to payoff",
			balance:         "100.004",
			status:          domain.LoanStatusActive,
			amount:          "100.00",
			expectedBalance: "0",
			expectedStatus:  domain.LoanStatusPaidOff,
		},
		{
			name:           "overpayment by one cent rejected",
			balance:        "1000.00",
			status:         domain.LoanStatusActive,
			amount:         "1000.01",
			expectedErr:    customError.ErrPaymentExceedsBalance,
			expectedStatus: domain.LoanStatusActive,
		},
		{
			name:        "zero amount rejected",
			balance:     "1000.00",
			status:      domain.LoanStatusActive,
			amount:      "0",
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "negative amount rejected",
			balance:     "1000.00",
			status:      domain.LoanStatusActive,
			amount:      "-5",
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "sub-cent amount rejected",
			balance:     "1000.00",
			status:      domain.LoanStatusActive,
			amount:      "0.004",
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "half cent amount rejected",
			balance:     "1000.00",
			status:      domain.LoanStatusActive,
			amount:      "0.005",
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "fraction of a cent on a whole amount rejected",
			balance:     "1000.00",
			status:      domain.LoanStatusActive,
			amount:      "100.001",
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:            "trailing zeros are not extra precision",
			balance:         "1000.00",
			status:          domain.LoanStatusActive,
			amount:          "250.500",
			expectedBalance: "749.50",
			expectedStatus:  domain.LoanStatusActive,
		},
		{
			name:        "paid off loan rejects payment",
			balance:     "0",
			status:      domain.LoanStatusPaidOff,
			amount:      "10",
			expectedErr: customError.ErrLoanAlreadyPaidOff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &domain.Loan{
				LoanID:           "LN-1",
				TotalAmount:      decimal.RequireFromString("1000.00"),
				RemainingBalance: decimal.RequireFromString(tt.balance),
				Status:           tt.status,
			}
			before := *loan

			transition, err := Apply(loan, decimal.RequireFromString(tt.amount))

			assert.Equal(t, before, *loan, "Apply must not mutate the loan")
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, transition.NewBalance.Equal(decimal.RequireFromString(tt.expectedBalance)),
				"Expected balance %s, but got %s", tt.expectedBalance, transition.NewBalance)
			assert.Equal(t, tt.expectedStatus, transition.NewStatus)
			assert.Equal(t, tt.expectedStatus == domain.LoanStatusPaidOff, transition.PaidOff())
		})
	}
}

func TestApply_ErrorKinds(t *testing.T) {
	loan := newLoan("500.00")

	_, err := Apply(loan, decimal.RequireFromString("500.01"))
	assert.ErrorIs(t, err, customError.ErrInvalidArgument)

	_, err = Apply(loan, decimal.Zero)
	assert.ErrorIs(t, err, customError.ErrInvalidArgument)

	transition, err := Apply(loan, decimal.RequireFromString("500.00"))
	require.NoError(t, err)
	Commit(loan, transition)

	_, err = Apply(loan, decimal.RequireFromString("1"))
	assert.ErrorIs(t, err, customError.ErrInvalidState)
}

func TestApply_TerminalTransition(t *testing.T) {
	loan := newLoan("615496.20")

	for i := 0; i < 3; i++ {
		tr, err := Apply(loan, decimal.RequireFromString("10258.27"))
		require.NoError(t, err)
		Commit(loan, tr)
	}

	tr, err := Apply(loan, loan.RemainingBalance)
	require.NoError(t, err)
	Commit(loan, tr)

	assert.True(t, loan.RemainingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusPaidOff, loan.Status)
	assert.Empty(t, CheckInvariants(loan))

	_, err = Apply(loan, decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, customError.ErrLoanAlreadyPaidOff)
}

func TestApply_BalanceNeverIncreasesOrGoesNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		loan := newLoan("25000.00")
		previous := loan.RemainingBalance

		for !loan.IsPaidOff() {
			cents := rng.Int63n(loan.RemainingBalance.Mul(decimal.NewFromInt(100)).IntPart()+50) + 1
			amount := decimal.New(cents, -2)

			tr, err := Apply(loan, amount)
			if amount.GreaterThan(loan.RemainingBalance) {
				require.ErrorIs(t, err, customError.ErrPaymentExceedsBalance)
				continue
			}
			require.NoError(t, err)
			Commit(loan, tr)

			assert.True(t, loan.RemainingBalance.LessThan(previous))
			assert.False(t, loan.RemainingBalance.IsNegative())
			assert.Empty(t, CheckInvariants(loan))
			previous = loan.RemainingBalance
		}

		assert.True(t, loan.RemainingBalance.IsZero())
	}
}

func TestCheckInvariants(t *testing.T) {
	tests := []struct {
		name    string
		loan    domain.Loan
		wantLen int
	}{
		{
			name:    "negative balance",
			loan:    domain.Loan{TotalAmount: decimal.NewFromInt(10), RemainingBalance: decimal.NewFromInt(-1), Status: domain.LoanStatusActive},
			wantLen: 1,
		},
		{
			name:    "balance above total",
			loan:    domain.Loan{TotalAmount: decimal.NewFromInt(10), RemainingBalance: decimal.NewFromInt(11), Status: domain.LoanStatusActive},
			wantLen: 1,
		},
		{
			name:    "paid off with balance",
			loan:    domain.Loan{TotalAmount: decimal.NewFromInt(10), RemainingBalance: decimal.NewFromInt(1), Status: domain.LoanStatusPaidOff},
			wantLen: 1,
		},
		{
			name:    "active with zero balance",
			loan:    domain.Loan{TotalAmount: decimal.NewFromInt(10), RemainingBalance: decimal.Zero, Status: domain.LoanStatusActive},
			wantLen: 1,
		},
		{
			name:    "unknown status",
			loan:    domain.Loan{TotalAmount: decimal.NewFromInt(10), RemainingBalance: decimal.NewFromInt(5), Status: "closed"},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, CheckInvariants(&tt.loan), tt.wantLen)
		})
	}
}

func TestReconcile(t *testing.T) {
	loan := newLoan("1000.00")
	loan.RemainingBalance = decimal.RequireFromString("700.00")

	payments := []*domain.Payment{
		{Amount: decimal.RequireFromString("200.00"), Status: domain.PaymentStatusCompleted},
		{Amount: decimal.RequireFromString("100.00"), Status: domain.PaymentStatusCompleted},
		{Amount: decimal.RequireFromString("999.00"), Status: domain.PaymentStatusFailed},
	}
	assert.Empty(t, Reconcile(loan, payments))

	assert.Len(t, Reconcile(loan, payments[:1]), 1)

	drift := []*domain.Payment{
		{Amount: decimal.RequireFromString("300.004"), Status: domain.PaymentStatusCompleted},
	}
	problems := Reconcile(loan, drift)
	require.Len(t, problems, 1)
	assert.Equal(t, "completed payments total 300.004 but balance implies 300", problems[0])
}
