package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loanbook/internal/domain"
)

const loanColumns = `id, loan_id, customer_id, amount, interest_rate, term_months, monthly_payment,
	total_amount, remaining_balance, status, version, start_date, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :loan_id, :customer_id, :amount, :interest_rate, :term_months, :monthly_payment,
			:total_amount, :remaining_balance, :status, :version, :start_date, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, loan)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, notFound(err)
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + ` FROM loans
		WHERE ($1::text = '' OR status = $1::text) AND ($2::text = '' OR customer_id = $2::text)
		ORDER BY created_at DESC
	`

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, query, string(filter.Status), filter.CustomerID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) RecordPayment(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET remaining_balance = $3, status = $4, version = version + 1, updated_at = $5
		WHERE loan_id = $1 AND version = $2
	`,
		loan.LoanID,
		loan.Version,
		loan.RemainingBalance,
		loan.Status,
		now,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO payments (id, payment_id, loan_id, amount, payment_date, payment_type, payment_method, status, reference)
		VALUES (:id, :payment_id, :loan_id, :amount, :payment_date, :payment_type, :payment_method, :status, :reference)
	`, payment)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	loan.Version++
	loan.UpdatedAt = now
	return nil
}
