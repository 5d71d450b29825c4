package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/domain"
	"github.com/segyhp/loanbook/internal/logging"
	"github.com/segyhp/loanbook/internal/mocks"
)

func newRunner(svc *mocks.MockLoanService) (*Runner, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	return NewRunner(svc, logger, time.Second), &buf
}

func TestRunner_AuditLedger(t *testing.T) {
	tests := []struct {
		name          string
		discrepancies []domain.LedgerDiscrepancy
		err           error
		expected      int
		logContains   []string
	}{
		{
			name:        "clean book",
			expected:    0,
			logContains: []string{"ledger audit finished", "discrepancies=0"},
		},
		{
			name: "discrepancies are logged per loan",
			discrepancies: []domain.LedgerDiscrepancy{
				{LoanID: "LN-0001", Reason: "remaining balance 10.00 does not match payment trail 0.00"},
				{LoanID: "LN-0002", Reason: "status PAID_OFF with non-zero balance"},
			},
			expected:    2,
			logContains: []string{"loan_id=LN-0001", "loan_id=LN-0002", "discrepancies=2"},
		},
		{
			name:        "store failure",
			err:         errors.New("connection reset"),
			expected:    0,
			logContains: []string{"ledger audit failed", "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockLoanService{}
			svc.On("AuditLedger", mock.Anything).Return(tt.discrepancies, tt.err).Once()
			runner, logs := newRunner(svc)

			found := runner.AuditLedger(context.Background())

			assert.Equal(t, tt.expected, found)
			for _, s := range tt.logContains {
				assert.Contains(t, logs.String(), s)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRunner_AuditLedgerAppliesTimeout(t *testing.T) {
	svc := &mocks.MockLoanService{}
	svc.On("AuditLedger", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(nil, nil).Once()
	runner, _ := newRunner(svc)

	runner.AuditLedger(context.Background())

	svc.AssertExpectations(t)
}

func TestRunner_DashboardSnapshot(t *testing.T) {
	svc := &mocks.MockLoanService{}
	svc.On("Dashboard", mock.Anything).Return(&domain.DashboardStats{
		TotalCustomers:   2,
		TotalLoans:       3,
		ActiveLoans:      2,
		PaidOffLoans:     1,
		TotalPrincipal:   decimal.NewFromInt(700000),
		TotalOutstanding: decimal.RequireFromString("600000.5"),
		TotalCollected:   decimal.NewFromInt(20000),
	}, nil).Once()
	runner, logs := newRunner(svc)

	runner.DashboardSnapshot(context.Background())

	assert.Contains(t, logs.String(), "dashboard snapshot")
	assert.Contains(t, logs.String(), "outstanding=600000.50")
	assert.Contains(t, logs.String(), "paid_off=1")
	svc.AssertExpectations(t)
}

func TestRunner_DashboardSnapshotFailure(t *testing.T) {
	svc := &mocks.MockLoanService{}
	svc.On("Dashboard", mock.Anything).Return(nil, errors.New("timeout")).Once()
	runner, logs := newRunner(svc)

	runner.DashboardSnapshot(context.Background())

	assert.Contains(t, logs.String(), "dashboard snapshot failed")
}

func TestRegister(t *testing.T) {
	cfg := config.SchedulerConfig{AuditSpec: "0 0 * * * *", SnapshotSpec: "@every 15m", Timezone: "Asia/Kolkata"}
	runner, _ := newRunner(&mocks.MockLoanService{})

	c, err := NewCron(cfg, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, runner.Register(c, cfg))
	assert.Len(t, c.Entries(), 2)
	assert.Equal(t, "Asia/Kolkata", c.Location().String())

	cfg.AuditSpec = "hourly"
	require.Error(t, runner.Register(c, cfg))
}

func TestNewCron_BadTimezone(t *testing.T) {
	_, err := NewCron(config.SchedulerConfig{Timezone: "Nowhere/Else"}, logging.Discard())
	assert.Error(t, err)
}
