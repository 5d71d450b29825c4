package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// NewPostgresStore returns repositories backed by db.
func NewPostgresStore(db *sqlx.DB) *Store {
	return &Store{
		Customers: NewCustomerRepository(db),
		Loans:     NewLoanRepository(db),
		Payments:  NewPaymentRepository(db),
		Dashboard: NewDashboardRepository(db),
	}
}

// Migrate creates the tables and indexes if they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
